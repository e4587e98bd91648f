package pgx

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lborres/fumble/core"
)

const userColumns = `id, name, slug, email, discord_id, worldanvil_id, avatar, admin, data, created_at, updated_at`

func scanUser(row pgx.Row) (*core.User, error) {
	user := &core.User{}
	var data []byte
	err := row.Scan(
		&user.ID, &user.Name, &user.Slug, &user.Email, &user.DiscordID, &user.WorldAnvilID,
		&user.Avatar, &user.Admin, &data, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Data = data
	return user, nil
}

func (a *Adapter) CreateUser(ctx context.Context, user *core.User) error {
	query := `INSERT INTO users (` + userColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := a.db.Exec(ctx, query,
		user.ID, user.Name, user.Slug, user.Email, user.DiscordID, user.WorldAnvilID,
		user.Avatar, user.Admin, jsonArg(user.Data), user.CreatedAt, user.UpdatedAt,
	)
	return translate(err)
}

func (a *Adapter) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	return a.getUser(ctx, "id", id)
}

func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	return a.getUser(ctx, "email", email)
}

func (a *Adapter) GetUserBySlug(ctx context.Context, slug string) (*core.User, error) {
	return a.getUser(ctx, "slug", slug)
}

// externalIDColumns maps SSO providers to the user column mirroring their id
var externalIDColumns = map[string]string{
	core.ProviderDiscord:    "discord_id",
	core.ProviderWorldAnvil: "worldanvil_id",
}

func (a *Adapter) GetUserByExternalID(ctx context.Context, provider, externalID string) (*core.User, error) {
	column, ok := externalIDColumns[provider]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return a.getUser(ctx, column, externalID)
}

func (a *Adapter) getUser(ctx context.Context, column, value string) (*core.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`

	user, err := scanUser(a.db.QueryRow(ctx, query, value))
	if err != nil {
		return nil, notFound(err, core.ErrUserNotFound)
	}
	return user, nil
}

// userWhere builds the WHERE clause and its arguments for filter
func userWhere(filter core.UserFilter) (string, []any) {
	var conds []string
	var args []any

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR slug ILIKE $%d)", n, n, n))
	}
	if filter.Admin != nil {
		args = append(args, *filter.Admin)
		conds = append(conds, fmt.Sprintf("admin = $%d", len(args)))
	}
	if filter.HasDiscord != nil {
		conds = append(conds, presence("discord_id", *filter.HasDiscord))
	}
	if filter.HasWorldAnvil != nil {
		conds = append(conds, presence("worldanvil_id", *filter.HasWorldAnvil))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func presence(column string, present bool) string {
	if present {
		return column + " IS NOT NULL"
	}
	return column + " IS NULL"
}

func (a *Adapter) ListUsers(ctx context.Context, filter core.UserFilter) ([]*core.User, int, error) {
	where, args := userWhere(filter)

	var total int
	if err := a.db.QueryRow(ctx, `SELECT count(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY name, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := a.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*core.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (a *Adapter) UpdateUser(ctx context.Context, user *core.User) error {
	query := `UPDATE users SET name = $1, slug = $2, email = $3, discord_id = $4, worldanvil_id = $5,
	              avatar = $6, admin = $7, data = $8, updated_at = $9
	          WHERE id = $10`

	tag, err := a.db.Exec(ctx, query,
		user.Name, user.Slug, user.Email, user.DiscordID, user.WorldAnvilID,
		user.Avatar, user.Admin, jsonArg(user.Data), user.UpdatedAt, user.ID,
	)
	return affected(tag, err, core.ErrUserNotFound)
}

func (a *Adapter) DeleteUser(ctx context.Context, id string) error {
	tag, err := a.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return affected(tag, err, core.ErrUserNotFound)
}
