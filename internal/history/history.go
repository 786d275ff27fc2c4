// Package history records generation jobs in a SQL database through gorm.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Job kinds.
const (
	KindCSV  = "csv"
	KindText = "text"
)

// Job outcomes.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Job is one generation request and its outcome.
type Job struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Kind       string    `gorm:"size:8;index" json:"kind"`
	OutputFile string    `gorm:"size:255" json:"output_file"`
	Languages  string    `gorm:"size:64" json:"languages"`
	Status     string    `gorm:"size:16;index" json:"status"`
	Error      string    `gorm:"type:text" json:"error,omitempty"`
	Rows       int       `json:"rows"`
	Skipped    int       `json:"skipped"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName keeps the table name stable.
func (Job) TableName() string { return "jobs" }

// Store persists jobs.
type Store interface {
	Record(ctx context.Context, j *Job) error
	Recent(ctx context.Context, limit int) ([]Job, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// Config selects the database.
type Config struct {
	Enabled bool
	Driver  string // sqlite or postgres
	DSN     string
}

// Open connects to the configured database and migrates the schema. A
// disabled config returns a Nop store.
func Open(cfg Config) (Store, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}

	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite", "sqlite3":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown history driver %q (use sqlite or postgres)", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("history is enabled but no dsn is set")
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.AutoMigrate(&Job{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return &DB{db: db}, nil
}

// DB is the gorm backed Store.
type DB struct {
	db *gorm.DB
}

// Record inserts j, filling ID and CreatedAt when unset.
func (s *DB) Record(ctx context.Context, j *Job) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(j).Error; err != nil {
		return fmt.Errorf("failed to record job: %w", err)
	}
	return nil
}

// Recent returns up to limit jobs, newest first.
func (s *DB) Recent(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}
	var jobs []Job
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}
	return jobs, nil
}

// Prune deletes jobs created before the cutoff.
func (s *DB) Prune(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", before).Delete(&Job{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Close closes the underlying connection pool.
func (s *DB) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Nop discards everything.
type Nop struct{}

func (Nop) Record(context.Context, *Job) error              { return nil }
func (Nop) Recent(context.Context, int) ([]Job, error)      { return nil, nil }
func (Nop) Prune(context.Context, time.Time) (int64, error) { return 0, nil }
func (Nop) Close() error                                    { return nil }

var (
	_ Store = (*DB)(nil)
	_ Store = Nop{}
)
