// Package db provides postgres access for the product catalog: a thin pool
// over gorm that exposes raw SQL with positional placeholders, plus the
// queries the service layer needs.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dealscope.dev/dealscope/internal/config"
)

// ErrNoRows is returned when a single-row query matches nothing.
var ErrNoRows = sql.ErrNoRows

// IsNoRows reports whether err means "no matching row".
func IsNoRows(err error) bool {
	return errors.Is(err, ErrNoRows)
}

const (
	defaultMaxOpenConns = 8
	connMaxIdle         = 5 * time.Minute
	connMaxLifetime     = 30 * time.Minute
)

// Pool wraps a gorm connection and runs the catalog's raw SQL against it.
type Pool struct {
	orm *gorm.DB
	std *sql.DB
}

// NewPool opens the database, applies connection limits from cfg, verifies
// connectivity, and brings the schema up to date.
func NewPool(ctx context.Context, cfg *config.Config) (*Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	orm, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:  logger.Default.LogMode(gormLogLevel(cfg)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	std, err := orm.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}

	maxOpen := int(cfg.DBMaxConns)
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	maxIdle := int(cfg.DBMinConns)
	if maxIdle < 1 {
		maxIdle = 1
	}
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	std.SetMaxOpenConns(maxOpen)
	std.SetMaxIdleConns(maxIdle)
	std.SetConnMaxIdleTime(connMaxIdle)
	std.SetConnMaxLifetime(connMaxLifetime)

	if err := std.PingContext(ctx); err != nil {
		_ = std.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pool := &Pool{orm: orm, std: std}
	if err := pool.migrate(ctx); err != nil {
		_ = std.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return pool, nil
}

// Close releases the underlying connections.
func (p *Pool) Close() error {
	if p == nil || p.std == nil {
		return nil
	}
	return p.std.Close()
}

// QueryRow runs a query expected to return at most one row.
func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *Row {
	return &Row{row: p.orm.WithContext(ctx).Raw(query, args...).Row()}
}

// Query runs a multi-row query. The caller must Close the result.
func (p *Pool) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	rows, err := p.orm.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

// Exec runs a statement and returns the number of rows it affected.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res := p.orm.WithContext(ctx).Exec(query, args...)
	return res.RowsAffected, res.Error
}

// BeginTx starts a transaction exposing the same query surface as the pool.
func (p *Pool) BeginTx(ctx context.Context) (Tx, error) {
	tx := p.orm.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &poolTx{orm: tx}, nil
}

// Tx is one database transaction. Rollback after Commit is a no-op, so
// `defer tx.Rollback(ctx)` is always safe.
type Tx interface {
	QueryRow(ctx context.Context, query string, args ...any) *Row
	Query(ctx context.Context, query string, args ...any) (*Rows, error)
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type poolTx struct {
	orm *gorm.DB
}

func (t *poolTx) QueryRow(ctx context.Context, query string, args ...any) *Row {
	return &Row{row: t.orm.WithContext(ctx).Raw(query, args...).Row()}
}

func (t *poolTx) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	rows, err := t.orm.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (t *poolTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res := t.orm.WithContext(ctx).Exec(query, args...)
	return res.RowsAffected, res.Error
}

func (t *poolTx) Commit(ctx context.Context) error {
	return t.orm.WithContext(ctx).Commit().Error
}

func (t *poolTx) Rollback(ctx context.Context) error {
	return t.orm.WithContext(ctx).Rollback().Error
}

// Row adapts sql.Row so a nil receiver scans as ErrNoRows.
type Row struct {
	row *sql.Row
}

func (r *Row) Scan(dest ...any) error {
	if r == nil || r.row == nil {
		return ErrNoRows
	}
	return r.row.Scan(dest...)
}

// Rows adapts sql.Rows with nil-safe iteration.
type Rows struct {
	rows *sql.Rows
}

func (r *Rows) Next() bool {
	if r == nil || r.rows == nil {
		return false
	}
	return r.rows.Next()
}

func (r *Rows) Scan(dest ...any) error {
	if r == nil || r.rows == nil {
		return ErrNoRows
	}
	return r.rows.Scan(dest...)
}

func (r *Rows) Err() error {
	if r == nil || r.rows == nil {
		return nil
	}
	return r.rows.Err()
}

func (r *Rows) Close() {
	if r != nil && r.rows != nil {
		_ = r.rows.Close()
	}
}

// gormLogLevel maps the application log level onto gorm's coarser scale.
// Outside local environments unknown levels stay quiet.
func gormLogLevel(cfg *config.Config) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(cfg.LogLevel)) {
	case "trace", "debug":
		return logger.Info
	case "", "info", "warn", "warning":
		return logger.Warn
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Environment), "local") {
		return logger.Warn
	}
	return logger.Error
}
