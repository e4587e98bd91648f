package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/lborres/fumble/core"
)

const characterColumns = `id, user_id, name, slug, title, description, portrait_url,
	worldanvil_block_id, worldanvil_world_id, sync_with_worldanvil, created_at, updated_at`

func scanCharacter(row pgx.Row) (*core.Character, error) {
	c := &core.Character{}
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Slug, &c.Title, &c.Description, &c.PortraitURL,
		&c.WorldAnvilBlockID, &c.WorldAnvilWorldID, &c.SyncWithWorldAnvil, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (a *Adapter) CreateCharacter(ctx context.Context, c *core.Character) error {
	query := `INSERT INTO characters (` + characterColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := a.db.Exec(ctx, query,
		c.ID, c.UserID, c.Name, c.Slug, c.Title, c.Description, c.PortraitURL,
		c.WorldAnvilBlockID, c.WorldAnvilWorldID, c.SyncWithWorldAnvil, c.CreatedAt, c.UpdatedAt,
	)
	return translate(err)
}

func (a *Adapter) GetCharacterByID(ctx context.Context, id string) (*core.Character, error) {
	query := `SELECT ` + characterColumns + ` FROM characters WHERE id = $1`

	c, err := scanCharacter(a.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, core.ErrCharacterNotFound)
	}
	return c, nil
}

func (a *Adapter) GetCharacterBySlug(ctx context.Context, slug string) (*core.Character, error) {
	query := `SELECT ` + characterColumns + ` FROM characters WHERE slug = $1`

	c, err := scanCharacter(a.db.QueryRow(ctx, query, slug))
	if err != nil {
		return nil, notFound(err, core.ErrCharacterNotFound)
	}
	return c, nil
}

func (a *Adapter) ListCharactersByUser(ctx context.Context, userID string) ([]*core.Character, error) {
	query := `SELECT ` + characterColumns + ` FROM characters WHERE user_id = $1 ORDER BY name, id`

	rows, err := a.db.Query(ctx, query, userID)
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
	query := `SELECT EXISTS (SELECT 1 FROM characters WHERE slug = $1 AND id <> $2)`

	var exists bool
	if err := a.db.QueryRow(ctx, query, slug, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (a *Adapter) UpdateCharacter(ctx context.Context, c *core.Character) error {
	query := `UPDATE characters SET user_id = $1, name = $2, slug = $3, title = $4, description = $5,
	              portrait_url = $6, worldanvil_block_id = $7, worldanvil_world_id = $8,
	              sync_with_worldanvil = $9, updated_at = $10
	          WHERE id = $11`

	tag, err := a.db.Exec(ctx, query,
		c.UserID, c.Name, c.Slug, c.Title, c.Description,
		c.PortraitURL, c.WorldAnvilBlockID, c.WorldAnvilWorldID,
		c.SyncWithWorldAnvil, c.UpdatedAt, c.ID,
	)
	return affected(tag, err, core.ErrCharacterNotFound)
}

func (a *Adapter) DeleteCharacter(ctx context.Context, id string) error {
	tag, err := a.db.Exec(ctx, `DELETE FROM characters WHERE id = $1`, id)
	return affected(tag, err, core.ErrCharacterNotFound)
}
