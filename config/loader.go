// =============================================================================
// 📦 Pandemonium 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("pandemonium.yaml").
//	    WithEnvPrefix("PANDEMONIUM").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 兼容环境变量 → 带前缀的环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/pandemonium/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 Pandemonium 的完整配置结构
type Config struct {
	// Conversation 会话配置
	Conversation ConversationConfig `yaml:"conversation" env:"CONVERSATION"`

	// LLM 参与者使用的大语言模型配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Evaluator 收尾评估者配置
	Evaluator EvaluatorConfig `yaml:"evaluator" env:"EVALUATOR"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Archive 会话归档配置
	Archive ArchiveConfig `yaml:"archive" env:"ARCHIVE"`

	// Secrets 凭证来源配置
	Secrets SecretsConfig `yaml:"secrets" env:"SECRETS"`
}

// ConversationConfig 会话配置
type ConversationConfig struct {
	// 最大轮数
	MaxRounds int `yaml:"max_rounds" env:"MAX_ROUNDS"`
	// 每位发言者可见的最近消息数
	WindowSize int `yaml:"window_size" env:"WINDOW_SIZE"`
	// 评估标准（可选）
	Criteria string `yaml:"criteria" env:"CRITERIA"`
	// 主持人插话概率
	BrokerProbability float64 `yaml:"broker_probability" env:"BROKER_PROBABILITY"`
	// 随机点名概率
	RandomProbability float64 `yaml:"random_probability" env:"RANDOM_PROBABILITY"`
	// 随机种子，0 表示使用随机种子
	Seed uint64 `yaml:"seed" env:"SEED"`
	// 参与者规格 temperament:expertise，空表示随机生成默认人数
	Agents []string `yaml:"agents" env:"AGENTS"`
	// 人设目录文件（可选），为空使用内置目录
	PersonasPath string `yaml:"personas_path" env:"PERSONAS_PATH"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	// Provider 名称
	Provider string `yaml:"provider" env:"PROVIDER"`
	// API Key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// 温度参数
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 单次回复最大 Token 数，0 表示不限制
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// 上下文 Token 预算，0 表示使用模型上限
	MaxContextTokens int `yaml:"max_context_tokens" env:"MAX_CONTEXT_TOKENS"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 每秒请求数限制，0 表示不限制
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 限流突发量
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// 可重试错误的最大重试次数，0 表示不重试
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
}

// EvaluatorConfig 评估者配置
type EvaluatorConfig struct {
	// 评估者身份
	Name string `yaml:"name" env:"NAME"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// 温度参数
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 最大 Token 数
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 是否使用明文连接
	Insecure bool `yaml:"insecure" env:"INSECURE"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// 是否暴露 /metrics
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 监听地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// ArchiveConfig 会话归档配置
type ArchiveConfig struct {
	// 是否在会话结束后归档
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 后端: memory, file, redis, sql
	Type string `yaml:"type" env:"TYPE"`
	// 文件后端目录
	BaseDir string `yaml:"base_dir" env:"BASE_DIR"`
	// Redis 地址
	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR"`
	// Redis 密码
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	// Redis 数据库编号
	RedisDB int `yaml:"redis_db" env:"REDIS_DB"`
	// Redis 是否启用 TLS
	RedisTLS bool `yaml:"redis_tls" env:"REDIS_TLS"`
	// 归档过期时间，0 表示永久
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// SQL 驱动: sqlite, postgres, mysql
	SQLDriver string `yaml:"sql_driver" env:"SQL_DRIVER"`
	// SQL DSN
	SQLDSN string `yaml:"sql_dsn" env:"SQL_DSN"`
}

// SecretsConfig 凭证来源配置
type SecretsConfig struct {
	// 来源: env, ssm
	Source string `yaml:"source" env:"SOURCE"`
	// SSM 参数名
	SSMParameter string `yaml:"ssm_parameter" env:"SSM_PARAMETER"`
	// AWS 区域（可选）
	Region string `yaml:"region" env:"REGION"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// legacyEnv 兼容旧版的无前缀环境变量，优先级低于带前缀的变量。
var legacyEnv = map[string]func(*Config, string) error{
	"OPENAI_API_KEY": func(c *Config, v string) error {
		c.LLM.APIKey = v
		return nil
	},
	"OPENAI_MODEL": func(c *Config, v string) error {
		c.LLM.Model = v
		return nil
	},
	"MEMORY_WINDOW_SIZE": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Conversation.WindowSize = n
		return nil
	},
}

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	lookupEnv  func(string) (string, bool)
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "PANDEMONIUM",
		lookupEnv:  os.LookupEnv,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithLookupEnv 替换环境变量读取函数，用于测试
func (l *Loader) WithLookupEnv(fn func(string) (string, bool)) *Loader {
	if fn != nil {
		l.lookupEnv = fn
	}
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置并运行 Validate 与附加验证器。
// 所有错误都属于配置错误（types.ErrConfiguration）。
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, configError("failed to load config from file", err)
		}
	}

	if err := l.loadLegacyEnv(cfg); err != nil {
		return nil, configError("failed to load config from env", err)
	}
	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, configError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, configError("config validation failed", err)
		}
	}

	return cfg, nil
}

func configError(msg string, err error) error {
	return types.NewError(types.ErrConfiguration, msg).WithCause(err)
}

// loadFromFile 从 YAML 文件加载配置；显式指定的文件不存在视为错误
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadLegacyEnv(cfg *Config) error {
	for key, apply := range legacyEnv {
		v, ok := l.lookupEnv(key)
		if !ok || v == "" {
			continue
		}
		if err := apply(cfg, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := l.lookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 校验
// =============================================================================

var (
	validLogLevels     = []string{"debug", "info", "warn", "error"}
	validLogFormats    = []string{"json", "console"}
	validArchives      = []string{"memory", "file", "redis", "sql"}
	validSQLDrivers    = []string{"sqlite", "postgres", "mysql"}
	validSecretSources = []string{"env", "ssm"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Validate 汇总所有校验错误，返回 types.ErrConfiguration。
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	conv := c.Conversation
	if conv.MaxRounds <= 0 {
		add("conversation.max_rounds must be positive")
	}
	if conv.WindowSize <= 0 {
		add("conversation.window_size must be positive")
	}
	if conv.BrokerProbability < 0 || conv.BrokerProbability > 1 {
		add("conversation.broker_probability must be between 0 and 1")
	}
	if conv.RandomProbability < 0 || conv.RandomProbability > 1 {
		add("conversation.random_probability must be between 0 and 1")
	}

	if c.LLM.Model == "" {
		add("llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		add("llm.temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens < 0 || c.LLM.MaxContextTokens < 0 {
		add("llm token limits must not be negative")
	}
	if c.LLM.RateLimitRPS < 0 {
		add("llm.rate_limit_rps must not be negative")
	}
	if c.LLM.MaxRetries < 0 {
		add("llm.max_retries must not be negative")
	}

	if c.Evaluator.Temperature < 0 || c.Evaluator.Temperature > 2 {
		add("evaluator.temperature must be between 0 and 2")
	}

	if !oneOf(c.Log.Level, validLogLevels) {
		add("log.level must be one of %s", strings.Join(validLogLevels, ", "))
	}
	if !oneOf(c.Log.Format, validLogFormats) {
		add("log.format must be one of %s", strings.Join(validLogFormats, ", "))
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		add("telemetry.sample_rate must be between 0 and 1")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		add("metrics.addr is required when metrics are enabled")
	}

	if c.Archive.Enabled {
		if !oneOf(c.Archive.Type, validArchives) {
			add("archive.type must be one of %s", strings.Join(validArchives, ", "))
		}
		if c.Archive.Type == "sql" && !oneOf(c.Archive.SQLDriver, validSQLDrivers) {
			add("archive.sql_driver must be one of %s", strings.Join(validSQLDrivers, ", "))
		}
	}

	if !oneOf(c.Secrets.Source, validSecretSources) {
		add("secrets.source must be one of %s", strings.Join(validSecretSources, ", "))
	}
	if c.Secrets.Source == "ssm" && c.Secrets.SSMParameter == "" {
		add("secrets.ssm_parameter is required for the ssm source")
	}

	if len(errs) > 0 {
		return types.NewError(types.ErrConfiguration, "config validation errors: "+strings.Join(errs, "; "))
	}
	return nil
}
