package persistence

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"text/template"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/config"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type migrationVars struct {
	UsersTable  string
	IssuesTable string
	IssuesIndex string
}

// Migration is one rendered SQL script.
type Migration struct {
	Name string
	SQL  string
}

// RenderMigrations renders the embedded scripts against the configured table names.
func RenderMigrations(cfg config.StorageConfig) ([]Migration, error) {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	vars := migrationVars{
		UsersTable:  pgx.Identifier{cfg.UsersTable}.Sanitize(),
		IssuesTable: pgx.Identifier{cfg.IssuesTable}.Sanitize(),
		IssuesIndex: pgx.Identifier{cfg.IssuesTable + "_created_at_id_idx"}.Sanitize(),
	}

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		raw, err := migrationFiles.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		tmpl, err := template.New(name).Option("missingkey=error").Parse(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse migration %s: %w", name, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, vars); err != nil {
			return nil, fmt.Errorf("render migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{Name: name, SQL: buf.String()})
	}
	return migrations, nil
}

// RunMigrations applies the embedded migrations in name order. Every script
// is idempotent, so re-running is safe.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, cfg config.StorageConfig, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping migrations")
		return nil
	}

	migrations, err := RenderMigrations(cfg)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		logger.Info("applying migration", zap.String("file", m.Name))
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
	}

	logger.Info("migrations applied", zap.Int("count", len(migrations)))
	return nil
}
