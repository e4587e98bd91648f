package sqlite

import (
	"context"

	"github.com/lborres/fumble/core"
)

const systemColumns = `id, title, slug, description, worldanvil_system_id, discord_role_id, discord_chat_channel,
	discord_forum_channel, discord_voice_channel, discord_thread_id, discord_post_id, created_at, updated_at`

func scanSystem(row scanner) (*core.RpgSystem, error) {
	s := &core.RpgSystem{}
	var createdAt, updatedAt int64
	err := row.Scan(
		&s.ID, &s.Title, &s.Slug, &s.Description, &s.WorldAnvilSystemID, &s.DiscordRoleID, &s.DiscordChatChannel,
		&s.DiscordForumChannel, &s.DiscordVoiceChannel, &s.DiscordThreadID, &s.DiscordPostID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = fromMillis(createdAt)
	s.UpdatedAt = fromMillis(updatedAt)
	return s, nil
}

func (a *Adapter) CreateSystem(ctx context.Context, s *core.RpgSystem) error {
	query := `INSERT INTO rpg_systems (` + systemColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := a.db.ExecContext(ctx, query,
		s.ID, s.Title, s.Slug, s.Description, s.WorldAnvilSystemID, s.DiscordRoleID, s.DiscordChatChannel,
		s.DiscordForumChannel, s.DiscordVoiceChannel, s.DiscordThreadID, s.DiscordPostID,
		toMillis(s.CreatedAt), toMillis(s.UpdatedAt),
	)
	return translate(err, nil)
}

func (a *Adapter) GetSystemByID(ctx context.Context, id string) (*core.RpgSystem, error) {
	query := `SELECT ` + systemColumns + ` FROM rpg_systems WHERE id = ?`

	s, err := scanSystem(a.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, core.ErrSystemNotFound)
	}
	return s, nil
}

func (a *Adapter) GetSystemBySlug(ctx context.Context, slug string) (*core.RpgSystem, error) {
	query := `SELECT ` + systemColumns + ` FROM rpg_systems WHERE slug = ?`

	s, err := scanSystem(a.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		return nil, notFound(err, core.ErrSystemNotFound)
	}
	return s, nil
}

func (a *Adapter) ListSystems(ctx context.Context) ([]*core.RpgSystem, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT `+systemColumns+` FROM rpg_systems ORDER BY title, id`)
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
	query := `UPDATE rpg_systems SET title = ?, slug = ?, description = ?, worldanvil_system_id = ?,
	              discord_role_id = ?, discord_chat_channel = ?, discord_forum_channel = ?,
	              discord_voice_channel = ?, discord_thread_id = ?, discord_post_id = ?, updated_at = ?
	          WHERE id = ?`

	res, err := a.db.ExecContext(ctx, query,
		s.Title, s.Slug, s.Description, s.WorldAnvilSystemID,
		s.DiscordRoleID, s.DiscordChatChannel, s.DiscordForumChannel,
		s.DiscordVoiceChannel, s.DiscordThreadID, s.DiscordPostID, toMillis(s.UpdatedAt), s.ID,
	)
	return affected(res, err, core.ErrSystemNotFound, nil)
}

func (a *Adapter) DeleteSystem(ctx context.Context, id string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM rpg_systems WHERE id = ?`, id)
	return affected(res, err, core.ErrSystemNotFound, nil)
}
