package persistence

import (
	"fmt"

	"go.uber.org/zap"
)

// NewTranscriptStore creates a TranscriptStore based on the configuration
func NewTranscriptStore(config StoreConfig, logger *zap.Logger) (TranscriptStore, error) {
	switch config.Type {
	case StoreTypeMemory, "":
		return NewMemoryTranscriptStore(), nil
	case StoreTypeFile:
		return NewFileTranscriptStore(config)
	case StoreTypeRedis:
		return NewRedisTranscriptStore(config, logger)
	case StoreTypeSQL:
		return NewSQLTranscriptStore(config, logger)
	default:
		return nil, fmt.Errorf("unsupported transcript store type: %s", config.Type)
	}
}
