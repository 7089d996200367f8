package database

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// Migrator applies goose migrations against the portal database.
type Migrator struct {
	db     *sqlx.DB
	fsys   fs.FS
	dir    string
	logger *zap.Logger
}

// NewMigrator constructs a migrator reading migrations from dir inside fsys. A nil fsys reads
// from the local filesystem.
func NewMigrator(db *sqlx.DB, fsys fs.FS, dir string, logger *zap.Logger) (*Migrator, error) {
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = "."
	}
	return &Migrator{db: db, fsys: fsys, dir: dir, logger: logger}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	goose.SetBaseFS(m.fsys)
	defer goose.SetBaseFS(nil)

	m.logger.Info("applying database migrations", zap.String("dir", m.dir))
	if err := goose.UpContext(ctx, m.db.DB, m.dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, m.db.DB)
	if err != nil {
		return fmt.Errorf("get migration version: %w", err)
	}
	m.logger.Info("database migrations applied", zap.Int64("version", version))
	return nil
}
