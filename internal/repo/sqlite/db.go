package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS
var gooseMu sync.Mutex

// Open opens (or creates) a SQLite database and applies pending migrations.
// Use "file:<name>?mode=memory&cache=shared" for a throwaway database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		path = "userhub.db"
	}

	d, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// sqlite serialises writers anyway; one connection avoids SQLITE_BUSY
	// and keeps in-memory databases alive for the pool's lifetime.
	d.SetMaxOpenConns(1)

	if err := d.PingContext(ctx); err != nil {
		_ = d.Close()
		return nil, err
	}

	if err := migrate(ctx, d); err != nil {
		_ = d.Close()
		return nil, err
	}

	return d, nil
}

func migrate(ctx context.Context, d *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, d, "migrations"); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
