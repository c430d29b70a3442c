package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/pandemonium/config"
	"github.com/BaSui01/pandemonium/types"
)

// fakeSSM implements ssmAPI for tests.
type fakeSSM struct {
	out   *ssm.GetParameterOutput
	err   error
	input *ssm.GetParameterInput
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.input = in
	return f.out, f.err
}

func parameter(value string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{
		Name:  aws.String("/pandemonium/openai_api_key"),
		Value: aws.String(value),
		Type:  ssmtypes.ParameterTypeSecureString,
	}}
}

func TestStaticSource(t *testing.T) {
	key, err := NewStaticSource("  sk-test  ").Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)

	_, err = NewStaticSource("").Resolve(context.Background())
	require.Error(t, err)
	assert.Equal(t, types.ErrMissingCredentials, types.GetErrorCode(err))
	assert.True(t, types.IsConfigurationError(err))
}

func TestSSMSource_Resolve(t *testing.T) {
	api := &fakeSSM{out: parameter("sk-from-ssm\n")}
	src, err := NewSSMSource(api, "/pandemonium/openai_api_key")
	require.NoError(t, err)

	key, err := src.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk-from-ssm", key)
	require.NotNil(t, api.input)
	assert.Equal(t, "/pandemonium/openai_api_key", aws.ToString(api.input.Name))
	assert.True(t, aws.ToBool(api.input.WithDecryption))
}

func TestSSMSource_Errors(t *testing.T) {
	tests := map[string]*fakeSSM{
		"api error":     {err: errors.New("AccessDenied")},
		"missing value": {out: &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{}}},
		"blank value":   {out: parameter("   ")},
		"nil output":    {},
	}
	for name, api := range tests {
		t.Run(name, func(t *testing.T) {
			src, err := NewSSMSource(api, "p")
			require.NoError(t, err)
			_, err = src.Resolve(context.Background())
			require.Error(t, err)
			assert.Equal(t, types.ErrMissingCredentials, types.GetErrorCode(err))
		})
	}
}

func TestNewSSMSource_Validation(t *testing.T) {
	_, err := NewSSMSource(nil, "p")
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))

	_, err = NewSSMSource(&fakeSSM{}, "  ")
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
}

func TestChain_FallsBackInOrder(t *testing.T) {
	ssmSrc, err := NewSSMSource(&fakeSSM{out: parameter("sk-ssm")}, "p")
	require.NoError(t, err)

	chain := NewChain(nil, NewStaticSource(""), ssmSrc)
	key, err := chain.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk-ssm", key)
	assert.Equal(t, "env,ssm", chain.Name())

	chain = NewChain(nil, NewStaticSource("sk-env"), ssmSrc)
	key, err = chain.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk-env", key)
}

func TestChain_AllFail(t *testing.T) {
	ssmSrc, err := NewSSMSource(&fakeSSM{err: errors.New("throttled")}, "p")
	require.NoError(t, err)

	_, err = NewChain(nil, NewStaticSource(""), ssmSrc).Resolve(context.Background())
	require.Error(t, err)
	assert.Equal(t, types.ErrMissingCredentials, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "throttled")

	_, err = NewChain(nil).Resolve(context.Background())
	assert.Equal(t, types.ErrMissingCredentials, types.GetErrorCode(err))
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.APIKey = "sk-config"

	src, err := FromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	key, err := src.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk-config", key)

	cfg.Secrets.Source = "vault"
	_, err = FromConfig(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
}
