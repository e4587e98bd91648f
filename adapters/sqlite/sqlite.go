// Package sqlite stores fumble data in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lborres/fumble/core"
	"github.com/lborres/fumble/pkg/migrate"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type Adapter struct {
	db *sql.DB
}

var _ core.Storage = (*Adapter)(nil)

// Open opens the database at path and applies pending migrations. Use
// ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Adapter, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := "file:" + path + "?" + pragmas
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// sqlite serializes writers; one connection also keeps :memory: alive
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	a := &Adapter{db: db}
	if err := a.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return a, nil
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

func (a *Adapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// Migrate applies each embedded migration at most once
func (a *Adapter) Migrate(ctx context.Context) error {
	migrations, err := migrate.Load(migrationFS, "migrations")
	if err != nil {
		return err
	}

	createSQL := `CREATE TABLE IF NOT EXISTS ` + migrate.Table + ` (
	    name TEXT PRIMARY KEY,
	    applied_at INTEGER NOT NULL
	)`
	if _, err := a.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, m := range migrations {
		var found int
		err := a.db.QueryRowContext(ctx, `SELECT 1 FROM `+migrate.Table+` WHERE name = ?`, m.Name).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", m.Name, err)
		}

		tx, err := a.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, m.Up); err != nil && !migrate.IsAlreadyExists(err) {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO `+migrate.Table+` (name, applied_at) VALUES (?, ?)`,
			m.Name, toMillis(time.Now()),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.Name, err)
		}
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func nullMillis(value *time.Time) any {
	if value == nil {
		return nil
	}
	return toMillis(*value)
}

func fromNullMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := fromMillis(value.Int64)
	return &t
}

func jsonArg(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}

func fromJSON(value sql.NullString) []byte {
	if !value.Valid || value.String == "" {
		return nil
	}
	return []byte(value.String)
}

var uniqueErrors = map[string]error{
	"users.email":                core.ErrEmailTaken,
	"users.slug":                 core.ErrSlugTaken,
	"users.discord_id":           core.ErrAccountLinkedElsewhere,
	"users.worldanvil_id":        core.ErrAccountLinkedElsewhere,
	"accounts.provider_id":       core.ErrAccountLinkedElsewhere,
	"accounts.user_id":           core.ErrAccountLinkedElsewhere,
	"characters.slug":            core.ErrSlugTaken,
	"sheets.worldanvil_block_id": core.ErrSheetAlreadyLinked,
	"rpg_systems.slug":           core.ErrSlugTaken,
}

// translate maps constraint failures onto domain errors. SQLite does not name
// the violated foreign key, so the caller supplies fk.
func translate(err, fk error) error {
	var sqliteErr *sqlite.Error
	if err == nil || !errors.As(err, &sqliteErr) {
		return err
	}
	if sqliteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return err
	}

	msg := sqliteErr.Error()
	if idx := strings.Index(msg, "UNIQUE constraint failed: "); idx != -1 {
		column := msg[idx+len("UNIQUE constraint failed: "):]
		if end := strings.IndexAny(column, ", "); end != -1 {
			column = column[:end]
		}
		if mapped, ok := uniqueErrors[column]; ok {
			return mapped
		}
		return err
	}
	if fk != nil && strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return fk
	}
	return err
}

func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

func affected(res sql.Result, err, sentinel, fk error) error {
	if err != nil {
		return translate(err, fk)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel
	}
	return nil
}
