package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/lborres/fumble/core"
)

const systemColumns = `id, title, slug, description, worldanvil_system_id, discord_role_id, discord_chat_channel,
	discord_forum_channel, discord_voice_channel, discord_thread_id, discord_post_id, created_at, updated_at`

func scanSystem(row pgx.Row) (*core.RpgSystem, error) {
	s := &core.RpgSystem{}
	err := row.Scan(
		&s.ID, &s.Title, &s.Slug, &s.Description, &s.WorldAnvilSystemID, &s.DiscordRoleID, &s.DiscordChatChannel,
		&s.DiscordForumChannel, &s.DiscordVoiceChannel, &s.DiscordThreadID, &s.DiscordPostID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (a *Adapter) CreateSystem(ctx context.Context, s *core.RpgSystem) error {
	query := `INSERT INTO rpg_systems (` + systemColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := a.db.Exec(ctx, query,
		s.ID, s.Title, s.Slug, s.Description, s.WorldAnvilSystemID, s.DiscordRoleID, s.DiscordChatChannel,
		s.DiscordForumChannel, s.DiscordVoiceChannel, s.DiscordThreadID, s.DiscordPostID, s.CreatedAt, s.UpdatedAt,
	)
	return translate(err)
}

func (a *Adapter) GetSystemByID(ctx context.Context, id string) (*core.RpgSystem, error) {
	query := `SELECT ` + systemColumns + ` FROM rpg_systems WHERE id = $1`

	s, err := scanSystem(a.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, core.ErrSystemNotFound)
	}
	return s, nil
}

func (a *Adapter) GetSystemBySlug(ctx context.Context, slug string) (*core.RpgSystem, error) {
	query := `SELECT ` + systemColumns + ` FROM rpg_systems WHERE slug = $1`

	s, err := scanSystem(a.db.QueryRow(ctx, query, slug))
	if err != nil {
		return nil, notFound(err, core.ErrSystemNotFound)
	}
	return s, nil
}

func (a *Adapter) ListSystems(ctx context.Context) ([]*core.RpgSystem, error) {
	rows, err := a.db.Query(ctx, `SELECT `+systemColumns+` FROM rpg_systems ORDER BY title, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var systems []*core.RpgSystem
	for rows.Next() {
		s, err := scanSystem(rows)
		if err != nil {
			return nil, err
		}
		systems = append(systems, s)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return systems, nil
}

func (a *Adapter) UpdateSystem(ctx context.Context, s *core.RpgSystem) error {
	query := `UPDATE rpg_systems SET title = $1, slug = $2, description = $3, worldanvil_system_id = $4,
	              discord_role_id = $5, discord_chat_channel = $6, discord_forum_channel = $7,
	              discord_voice_channel = $8, discord_thread_id = $9, discord_post_id = $10, updated_at = $11
	          WHERE id = $12`

	tag, err := a.db.Exec(ctx, query,
		s.Title, s.Slug, s.Description, s.WorldAnvilSystemID,
		s.DiscordRoleID, s.DiscordChatChannel, s.DiscordForumChannel,
		s.DiscordVoiceChannel, s.DiscordThreadID, s.DiscordPostID, s.UpdatedAt, s.ID,
	)
	return affected(tag, err, core.ErrSystemNotFound)
}

func (a *Adapter) DeleteSystem(ctx context.Context, id string) error {
	tag, err := a.db.Exec(ctx, `DELETE FROM rpg_systems WHERE id = $1`, id)
	return affected(tag, err, core.ErrSystemNotFound)
}
