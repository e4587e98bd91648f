package pgx

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lborres/fumble/core"
	"github.com/lborres/fumble/pkg/migrate"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DB is the subset of *pgxpool.Pool the adapter uses
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

type Adapter struct {
	db DB
}

var _ core.Storage = (*Adapter)(nil)

func New(db DB) *Adapter {
	return &Adapter{
		db: db,
	}
}

func (a *Adapter) Ping(ctx context.Context) error {
	return a.db.Ping(ctx)
}

// Migrate applies every embedded migration that has not run yet, each in its
// own transaction.
func (a *Adapter) Migrate(ctx context.Context) error {
	migrations, err := migrate.Load(migrationFS, "migrations")
	if err != nil {
		return err
	}

	createSQL := `CREATE TABLE IF NOT EXISTS ` + migrate.Table + ` (
	    name TEXT PRIMARY KEY,
	    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := a.db.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, m := range migrations {
		var found int
		err := a.db.QueryRow(ctx, `SELECT 1 FROM `+migrate.Table+` WHERE name = $1`, m.Name).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", m.Name, err)
		}

		if err := a.apply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) apply(ctx context.Context, m migrate.Migration) error {
	tx, err := a.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.Name, err)
	}

	if _, err := tx.Exec(ctx, m.Up); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("exec migration %s: %w", m.Name, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO `+migrate.Table+` (name) VALUES ($1) ON CONFLICT DO NOTHING`, m.Name); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("record migration %s: %w", m.Name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.Name, err)
	}
	return nil
}

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

var constraintErrors = map[string]error{
	"users_email_key":                core.ErrEmailTaken,
	"users_slug_key":                 core.ErrSlugTaken,
	"users_discord_id_key":           core.ErrAccountLinkedElsewhere,
	"users_worldanvil_id_key":        core.ErrAccountLinkedElsewhere,
	"accounts_provider_account_key":  core.ErrAccountLinkedElsewhere,
	"accounts_user_provider_key":     core.ErrAccountLinkedElsewhere,
	"accounts_user_id_fkey":          core.ErrUserNotFound,
	"characters_slug_key":            core.ErrSlugTaken,
	"characters_user_id_fkey":        core.ErrUserNotFound,
	"sheets_worldanvil_block_id_key": core.ErrSheetAlreadyLinked,
	"sheets_character_id_fkey":       core.ErrCharacterNotFound,
	"sheets_rpg_system_id_fkey":      core.ErrSystemNotFound,
	"rpg_systems_slug_key":           core.ErrSlugTaken,
}

// translate maps constraint violations onto domain errors
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	if pgErr.Code != codeUniqueViolation && pgErr.Code != codeForeignKeyViolation {
		return err
	}
	if mapped, ok := constraintErrors[pgErr.ConstraintName]; ok {
		return mapped
	}
	return err
}

// notFound returns sentinel when err is pgx.ErrNoRows
func notFound(err, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}

// affected turns a zero-row write into sentinel
func affected(tag pgconn.CommandTag, err, sentinel error) error {
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel
	}
	return nil
}

// jsonArg stores empty documents as NULL
func jsonArg(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}
