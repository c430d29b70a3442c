package persistence

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/BaSui01/pandemonium/agent/memory"
	"github.com/BaSui01/pandemonium/internal/database"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreType represents the type of storage backend
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeSQL    StoreType = "sql"
)

// Transcript is the archived record of a concluded conversation.
type Transcript struct {
	ID        string           `json:"id" gorm:"primaryKey;size:64"`
	Topic     string           `json:"topic" gorm:"type:text"`
	Criteria  string           `json:"criteria,omitempty" gorm:"type:text"`
	MaxRounds int              `json:"max_rounds"`
	Rounds    int              `json:"rounds"`
	Turns     int              `json:"turns"`
	Messages  []memory.Message `json:"messages" gorm:"serializer:json;type:text"`
	Evaluator string           `json:"evaluator,omitempty" gorm:"size:128"`
	Verdict   string           `json:"verdict,omitempty" gorm:"type:text"`
	Result    string           `json:"result,omitempty" gorm:"type:text"`
	CreatedAt time.Time        `json:"created_at" gorm:"index"`
}

// TableName 指定 SQL 后端的表名。
func (Transcript) TableName() string { return "transcripts" }

// TranscriptStore persists concluded conversations.
type TranscriptStore interface {
	// Save 按 ID 覆盖写入；ID 为空时生成 UUID，CreatedAt 为零时取当前时间。
	Save(ctx context.Context, t *Transcript) error

	// Load 返回指定 ID 的归档，不存在时返回 ErrNotFound。
	Load(ctx context.Context, id string) (*Transcript, error)

	// List 按 CreatedAt 倒序返回最多 limit 条归档，limit <= 0 表示全部。
	List(ctx context.Context, limit int) ([]*Transcript, error)

	Ping(ctx context.Context) error
	Close() error
}

// StoreConfig is the base configuration for all store implementations
type StoreConfig struct {
	// Type is the storage backend type
	Type StoreType `json:"type" yaml:"type"`

	// BaseDir is the base directory for file-based storage
	BaseDir string `json:"base_dir" yaml:"base_dir"`

	// Redis configuration (only used when Type is "redis")
	Redis RedisStoreConfig `json:"redis" yaml:"redis"`

	// SQL configuration (only used when Type is "sql")
	SQL SQLStoreConfig `json:"sql" yaml:"sql"`
}

// RedisStoreConfig contains Redis-specific configuration
type RedisStoreConfig struct {
	// Addr is host:port of the Redis server
	Addr string `json:"addr" yaml:"addr"`

	// Password is the Redis password (optional)
	Password string `json:"password" yaml:"password"`

	// DB is the Redis database number
	DB int `json:"db" yaml:"db"`

	// PoolSize is the connection pool size
	PoolSize int `json:"pool_size" yaml:"pool_size"`

	// KeyPrefix is the prefix for all Redis keys
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`

	// TLS enables TLS with the hardened client config
	TLS bool `json:"tls" yaml:"tls"`

	// TTL expires archived transcripts; 0 keeps them forever
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// SQLStoreConfig contains SQL-specific configuration
type SQLStoreConfig struct {
	// Driver is one of sqlite, postgres, mysql
	Driver string `json:"driver" yaml:"driver"`

	// DSN is the driver-specific data source name
	DSN string `json:"dsn" yaml:"dsn"`

	// Pool configures the connection pool
	Pool database.PoolConfig `json:"pool" yaml:"pool"`

	// SkipMigration disables AutoMigrate on open
	SkipMigration bool `json:"skip_migration" yaml:"skip_migration"`
}

// DefaultStoreConfig returns the default store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type:    StoreTypeMemory,
		BaseDir: "./data/transcripts",
		Redis: RedisStoreConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "pandemonium:",
		},
		SQL: SQLStoreConfig{
			Driver: database.DriverSQLite,
			DSN:    "pandemonium.db",
			Pool:   database.DefaultPoolConfig(),
		},
	}
}

// prepare 校验并补全归档的 ID 与时间，返回写入用的副本。
func prepare(t *Transcript) (*Transcript, error) {
	if t == nil {
		return nil, ErrInvalidInput
	}
	if strings.ContainsAny(t.ID, `/\`) {
		return nil, ErrInvalidInput
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return clone(t), nil
}

func clone(t *Transcript) *Transcript {
	c := *t
	c.Messages = append([]memory.Message(nil), t.Messages...)
	return &c
}

// sortNewestFirst 按 CreatedAt 倒序排列，相同时间按 ID 排序。
func sortNewestFirst(ts []*Transcript) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].ID < ts[j].ID
		}
		return ts[i].CreatedAt.After(ts[j].CreatedAt)
	})
}

func truncate(ts []*Transcript, limit int) []*Transcript {
	if limit > 0 && len(ts) > limit {
		return ts[:limit]
	}
	return ts
}
