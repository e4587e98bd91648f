package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lborres/fumble/core"
)

const userColumns = `id, name, slug, email, discord_id, worldanvil_id, avatar, admin, data, created_at, updated_at`

func scanUser(row scanner) (*core.User, error) {
	user := &core.User{}
	var data sql.NullString
	var createdAt, updatedAt int64
	err := row.Scan(
		&user.ID, &user.Name, &user.Slug, &user.Email, &user.DiscordID, &user.WorldAnvilID,
		&user.Avatar, &user.Admin, &data, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Data = fromJSON(data)
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}

func (a *Adapter) CreateUser(ctx context.Context, user *core.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := a.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Slug, user.Email, user.DiscordID, user.WorldAnvilID,
		user.Avatar, user.Admin, jsonArg(user.Data), toMillis(user.CreatedAt), toMillis(user.UpdatedAt),
	)
	return translate(err, nil)
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
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`

	user, err := scanUser(a.db.QueryRowContext(ctx, query, value))
	if err != nil {
		return nil, notFound(err, core.ErrUserNotFound)
	}
	return user, nil
}

func userWhere(filter core.UserFilter) (string, []any) {
	var conds []string
	var args []any

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		conds = append(conds, "(name LIKE ? OR email LIKE ? OR slug LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}
	if filter.Admin != nil {
		conds = append(conds, "admin = ?")
		args = append(args, *filter.Admin)
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
	if err := a.db.QueryRowContext(ctx, `SELECT count(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// sqlite requires a LIMIT before OFFSET; -1 means unbounded
	limit := -1
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY name, id LIMIT ? OFFSET ?`
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := a.db.QueryContext(ctx, query, args...)
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
	query := `UPDATE users SET name = ?, slug = ?, email = ?, discord_id = ?, worldanvil_id = ?,
	              avatar = ?, admin = ?, data = ?, updated_at = ?
	          WHERE id = ?`

	res, err := a.db.ExecContext(ctx, query,
		user.Name, user.Slug, user.Email, user.DiscordID, user.WorldAnvilID,
		user.Avatar, user.Admin, jsonArg(user.Data), toMillis(user.UpdatedAt), user.ID,
	)
	return affected(res, err, core.ErrUserNotFound, nil)
}

func (a *Adapter) DeleteUser(ctx context.Context, id string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return affected(res, err, core.ErrUserNotFound, nil)
}
