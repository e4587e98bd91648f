package sqlite

import (
	"context"

	"github.com/lborres/fumble/core"
)

const characterColumns = `id, user_id, name, slug, title, description, portrait_url,
	worldanvil_block_id, worldanvil_world_id, sync_with_worldanvil, created_at, updated_at`

func scanCharacter(row scanner) (*core.Character, error) {
	c := &core.Character{}
	var createdAt, updatedAt int64
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Slug, &c.Title, &c.Description, &c.PortraitURL,
		&c.WorldAnvilBlockID, &c.WorldAnvilWorldID, &c.SyncWithWorldAnvil, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

func (a *Adapter) CreateCharacter(ctx context.Context, c *core.Character) error {
	query := `INSERT INTO characters (` + characterColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := a.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.Name, c.Slug, c.Title, c.Description, c.PortraitURL,
		c.WorldAnvilBlockID, c.WorldAnvilWorldID, c.SyncWithWorldAnvil, toMillis(c.CreatedAt), toMillis(c.UpdatedAt),
	)
	return translate(err, core.ErrUserNotFound)
}

func (a *Adapter) GetCharacterByID(ctx context.Context, id string) (*core.Character, error) {
	query := `SELECT ` + characterColumns + ` FROM characters WHERE id = ?`

	c, err := scanCharacter(a.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, core.ErrCharacterNotFound)
	}
	return c, nil
}

func (a *Adapter) GetCharacterBySlug(ctx context.Context, slug string) (*core.Character, error) {
	query := `SELECT ` + characterColumns + ` FROM characters WHERE slug = ?`

	c, err := scanCharacter(a.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		return nil, notFound(err, core.ErrCharacterNotFound)
	}
	return c, nil
}

func (a *Adapter) ListCharactersByUser(ctx context.Context, userID string) ([]*core.Character, error) {
	query := `SELECT ` + characterColumns + ` FROM characters WHERE user_id = ? ORDER BY name, id`

	rows, err := a.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var characters []*core.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		characters = append(characters, c)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return characters, nil
}

func (a *Adapter) CharacterSlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var exists bool
	err := a.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM characters WHERE slug = ? AND id <> ?)`, slug, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (a *Adapter) UpdateCharacter(ctx context.Context, c *core.Character) error {
	query := `UPDATE characters SET user_id = ?, name = ?, slug = ?, title = ?, description = ?,
	              portrait_url = ?, worldanvil_block_id = ?, worldanvil_world_id = ?,
	              sync_with_worldanvil = ?, updated_at = ?
	          WHERE id = ?`

	res, err := a.db.ExecContext(ctx, query,
		c.UserID, c.Name, c.Slug, c.Title, c.Description,
		c.PortraitURL, c.WorldAnvilBlockID, c.WorldAnvilWorldID,
		c.SyncWithWorldAnvil, toMillis(c.UpdatedAt), c.ID,
	)
	return affected(res, err, core.ErrCharacterNotFound, core.ErrUserNotFound)
}

func (a *Adapter) DeleteCharacter(ctx context.Context, id string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM characters WHERE id = ?`, id)
	return affected(res, err, core.ErrCharacterNotFound, nil)
}
