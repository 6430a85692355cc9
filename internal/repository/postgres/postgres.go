// Package postgres implements repository.Backend with a direct gorm
// connection to the backend's Postgres database.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mamadbah2/farmops/internal/repository"
)

// Backend is a gorm-backed repository.Backend.
type Backend struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ repository.Backend = (*Backend)(nil)

// Open connects to the database behind dsn and verifies the connection.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Backend{db: db, logger: logger}, nil
}

// NewFromDB wraps an already opened gorm handle.
func NewFromDB(db *gorm.DB, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{db: db, logger: logger}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var comparators = map[repository.Op]string{
	repository.OpEq:  "=",
	repository.OpGte: ">=",
	repository.OpLte: "<=",
}

func backendError(err error) error {
	return &repository.BackendError{Message: err.Error()}
}

// Select implements repository.Backend.
func (b *Backend) Select(ctx context.Context, table string, q repository.Query, dest any) error {
	tx := b.db.WithContext(ctx).Table(table)
	for _, f := range q.Filters {
		cmp, ok := comparators[f.Op]
		if !ok {
			return fmt.Errorf("unsupported filter operator %q", f.Op)
		}
		tx = tx.Where(fmt.Sprintf("%s %s ?", quoteIdent(f.Column), cmp), f.Value)
	}
	if q.Order != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		tx = tx.Order(quoteIdent(q.Order) + " " + dir)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	if err := tx.Find(dest).Error; err != nil {
		b.logger.Error("select failed", zap.String("table", table), zap.Error(err))
		return backendError(err)
	}
	return nil
}

// Insert implements repository.Backend.
func (b *Backend) Insert(ctx context.Context, table string, row any) error {
	if err := b.db.WithContext(ctx).Table(table).Create(row).Error; err != nil {
		return backendError(err)
	}
	return nil
}

// Update implements repository.Backend.
func (b *Backend) Update(ctx context.Context, table, id string, patch map[string]any) error {
	res := b.db.WithContext(ctx).Table(table).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return backendError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete implements repository.Backend.
func (b *Backend) Delete(ctx context.Context, table, id string) error {
	res := b.db.WithContext(ctx).Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", quoteIdent(table)), id)
	if res.Error != nil {
		return backendError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Close closes the underlying connection pool.
func (b *Backend) Close(context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
