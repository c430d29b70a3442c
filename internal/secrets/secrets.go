package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"github.com/BaSui01/pandemonium/config"
	"github.com/BaSui01/pandemonium/types"
)

// Source 名称
const (
	SourceEnv = "env"
	SourceSSM = "ssm"
)

// Source resolves the LLM API key.
type Source interface {
	Name() string
	Resolve(ctx context.Context) (string, error)
}

// =============================================================================
// Static
// =============================================================================

// StaticSource returns a value already resolved by the config loader
// (file, PANDEMONIUM_LLM_API_KEY or OPENAI_API_KEY).
type StaticSource struct {
	value string
}

// NewStaticSource 创建静态凭证源
func NewStaticSource(value string) *StaticSource {
	return &StaticSource{value: strings.TrimSpace(value)}
}

func (s *StaticSource) Name() string { return SourceEnv }

func (s *StaticSource) Resolve(context.Context) (string, error) {
	if s.value == "" {
		return "", types.NewError(types.ErrMissingCredentials, "API key not set; export OPENAI_API_KEY or set llm.api_key")
	}
	return s.value, nil
}

// =============================================================================
// AWS SSM Parameter Store
// =============================================================================

// ssmAPI is the subset of *ssm.Client used by SSMSource.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMSource reads a SecureString parameter.
type SSMSource struct {
	api       ssmAPI
	parameter string
}

// NewSSMSource wraps an SSM API implementation.
func NewSSMSource(api ssmAPI, parameter string) (*SSMSource, error) {
	if api == nil {
		return nil, types.NewError(types.ErrConfiguration, "ssm api must not be nil")
	}
	parameter = strings.TrimSpace(parameter)
	if parameter == "" {
		return nil, types.NewError(types.ErrConfiguration, "ssm parameter name is required")
	}
	return &SSMSource{api: api, parameter: parameter}, nil
}

// NewSSMSourceFromAWS loads the default AWS credential chain.
func NewSSMSourceFromAWS(ctx context.Context, region, parameter string) (*SSMSource, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, types.NewError(types.ErrConfiguration, "load aws config").WithCause(err)
	}
	return NewSSMSource(ssm.NewFromConfig(awsCfg), parameter)
}

func (s *SSMSource) Name() string { return SourceSSM }

func (s *SSMSource) Resolve(ctx context.Context) (string, error) {
	out, err := s.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.parameter),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", types.Errorf(types.ErrMissingCredentials, "get parameter %q", s.parameter).WithCause(err)
	}
	if out == nil || out.Parameter == nil || strings.TrimSpace(aws.ToString(out.Parameter.Value)) == "" {
		return "", types.Errorf(types.ErrMissingCredentials, "parameter %q has no value", s.parameter)
	}
	return strings.TrimSpace(aws.ToString(out.Parameter.Value)), nil
}

// =============================================================================
// Chain
// =============================================================================

// Chain tries each source in order and returns the first key found.
type Chain struct {
	sources []Source
	logger  *zap.Logger
}

// NewChain 创建凭证链
func NewChain(logger *zap.Logger, sources ...Source) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{sources: sources, logger: logger.With(zap.String("component", "secrets"))}
}

func (c *Chain) Name() string {
	names := make([]string, 0, len(c.sources))
	for _, s := range c.sources {
		names = append(names, s.Name())
	}
	return strings.Join(names, ",")
}

func (c *Chain) Resolve(ctx context.Context) (string, error) {
	var errs []string
	for _, s := range c.sources {
		key, err := s.Resolve(ctx)
		if err == nil {
			c.logger.Debug("api key resolved", zap.String("source", s.Name()))
			return key, nil
		}
		if ctx.Err() != nil {
			return "", types.NewError(types.ErrMissingCredentials, "credential lookup cancelled").WithCause(ctx.Err())
		}
		c.logger.Debug("credential source failed", zap.String("source", s.Name()), zap.Error(err))
		errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
	}
	if len(errs) == 0 {
		return "", types.NewError(types.ErrMissingCredentials, "no credential sources configured")
	}
	return "", types.Errorf(types.ErrMissingCredentials, "API key not found (%s)", strings.Join(errs, "; "))
}

// FromConfig builds the source chain for cfg. The config-resolved key is
// always tried first; "ssm" adds Parameter Store as a fallback.
func FromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Source, error) {
	static := NewStaticSource(cfg.LLM.APIKey)
	switch strings.ToLower(strings.TrimSpace(cfg.Secrets.Source)) {
	case "", SourceEnv:
		return NewChain(logger, static), nil
	case SourceSSM:
		ssmSource, err := NewSSMSourceFromAWS(ctx, cfg.Secrets.Region, cfg.Secrets.SSMParameter)
		if err != nil {
			return nil, err
		}
		return NewChain(logger, static, ssmSource), nil
	default:
		return nil, types.Errorf(types.ErrConfiguration, "unsupported secrets source %q (valid: env, ssm)", cfg.Secrets.Source)
	}
}
