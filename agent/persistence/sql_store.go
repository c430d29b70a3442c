package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/BaSui01/pandemonium/internal/database"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const sqlSaveRetries = 3

// SQLTranscriptStore stores transcripts in a relational database through
// GORM. Messages are kept as a JSON column.
type SQLTranscriptStore struct {
	pool   *database.PoolManager
	logger *zap.Logger
}

// NewSQLTranscriptStore opens the configured database and migrates the schema.
func NewSQLTranscriptStore(config StoreConfig, logger *zap.Logger) (*SQLTranscriptStore, error) {
	pool, err := database.Open(config.SQL.Driver, config.SQL.DSN, config.SQL.Pool, logger)
	if err != nil {
		return nil, err
	}
	store, err := OpenSQLTranscriptStore(pool, config.SQL.SkipMigration, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// OpenSQLTranscriptStore wraps an existing pool.
func OpenSQLTranscriptStore(pool *database.PoolManager, skipMigration bool, logger *zap.Logger) (*SQLTranscriptStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !skipMigration {
		if err := pool.DB().AutoMigrate(&Transcript{}); err != nil {
			return nil, fmt.Errorf("failed to migrate transcripts table: %w", err)
		}
	}
	return &SQLTranscriptStore{
		pool:   pool,
		logger: logger.With(zap.String("component", "transcript_sql_store")),
	}, nil
}

func (s *SQLTranscriptStore) Save(ctx context.Context, t *Transcript) error {
	rec, err := prepare(t)
	if err != nil {
		return err
	}
	return s.pool.WithTransactionRetry(ctx, sqlSaveRetries, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
	})
}

func (s *SQLTranscriptStore) Load(ctx context.Context, id string) (*Transcript, error) {
	var t Transcript
	err := s.pool.DB().WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript %s: %w", id, err)
	}
	return &t, nil
}

func (s *SQLTranscriptStore) List(ctx context.Context, limit int) ([]*Transcript, error) {
	q := s.pool.DB().WithContext(ctx).Order("created_at DESC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*Transcript
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	return out, nil
}

func (s *SQLTranscriptStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *SQLTranscriptStore) Close() error {
	return s.pool.Close()
}
