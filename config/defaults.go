// =============================================================================
// 📦 Pandemonium 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Conversation: DefaultConversationConfig(),
		LLM:          DefaultLLMConfig(),
		Evaluator:    DefaultEvaluatorConfig(),
		Log:          DefaultLogConfig(),
		Telemetry:    DefaultTelemetryConfig(),
		Metrics:      DefaultMetricsConfig(),
		Archive:      DefaultArchiveConfig(),
		Secrets:      DefaultSecretsConfig(),
	}
}

// DefaultConversationConfig 返回默认会话配置
func DefaultConversationConfig() ConversationConfig {
	return ConversationConfig{
		MaxRounds:         3,
		WindowSize:        10,
		BrokerProbability: 0.1,
		RandomProbability: 0.1,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:       "openai",
		BaseURL:        "https://api.openai.com",
		Model:          "gpt-5",
		Temperature:    0.7,
		Timeout:        60 * time.Second,
		RateLimitBurst: 1,
		MaxRetries:     2,
	}
}

// DefaultEvaluatorConfig 返回默认评估者配置
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		Name:        "Evaluator",
		Model:       "gpt-5",
		Temperature: 0.5,
		Timeout:     2 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "warn",
		Format:      "console",
		OutputPaths: []string{"stderr"},
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		Insecure:     true,
		ServiceName:  "pandemonium",
		SampleRate:   1.0,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Addr:      ":9091",
		Namespace: "pandemonium",
	}
}

// DefaultArchiveConfig 返回默认归档配置
func DefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Enabled:   false,
		Type:      "file",
		BaseDir:   "./data",
		RedisAddr: "localhost:6379",
		SQLDriver: "sqlite",
		SQLDSN:    "pandemonium.db",
	}
}

// DefaultSecretsConfig 返回默认凭证配置
func DefaultSecretsConfig() SecretsConfig {
	return SecretsConfig{
		Source:       "env",
		SSMParameter: "/pandemonium/openai_api_key",
	}
}
