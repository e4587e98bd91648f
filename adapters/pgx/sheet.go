package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/lborres/fumble/core"
)

const sheetColumns = `id, character_id, rpg_system_id, worldanvil_block_id, title, description, data, is_active, created_at, updated_at`

func scanSheet(row pgx.Row) (*core.Sheet, error) {
	s := &core.Sheet{}
	var data []byte
	err := row.Scan(
		&s.ID, &s.CharacterID, &s.RpgSystemID, &s.WorldAnvilBlockID, &s.Title,
		&s.Description, &data, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Data = data
	return s, nil
}

func (a *Adapter) CreateSheet(ctx context.Context, s *core.Sheet) error {
	query := `INSERT INTO sheets (` + sheetColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := a.db.Exec(ctx, query,
		s.ID, s.CharacterID, s.RpgSystemID, s.WorldAnvilBlockID, s.Title,
		s.Description, jsonArg(s.Data), s.IsActive, s.CreatedAt, s.UpdatedAt,
	)
	return translate(err)
}

func (a *Adapter) GetSheetByID(ctx context.Context, id string) (*core.Sheet, error) {
	query := `SELECT ` + sheetColumns + ` FROM sheets WHERE id = $1`

	s, err := scanSheet(a.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, core.ErrSheetNotFound)
	}
	return s, nil
}

func (a *Adapter) ListSheetsByCharacter(ctx context.Context, characterID string) ([]*core.Sheet, error) {
	query := `SELECT ` + sheetColumns + ` FROM sheets WHERE character_id = $1 ORDER BY title, id`

	rows, err := a.db.Query(ctx, query, characterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sheets []*core.Sheet
	for rows.Next() {
		s, err := scanSheet(rows)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, s)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return sheets, nil
}

func (a *Adapter) UpdateSheet(ctx context.Context, s *core.Sheet) error {
	query := `UPDATE sheets SET rpg_system_id = $1, worldanvil_block_id = $2, title = $3, description = $4,
	              data = $5, is_active = $6, updated_at = $7
	          WHERE id = $8`

	tag, err := a.db.Exec(ctx, query,
		s.RpgSystemID, s.WorldAnvilBlockID, s.Title, s.Description,
		jsonArg(s.Data), s.IsActive, s.UpdatedAt, s.ID,
	)
	return affected(tag, err, core.ErrSheetNotFound)
}

func (a *Adapter) DeleteSheet(ctx context.Context, id string) error {
	tag, err := a.db.Exec(ctx, `DELETE FROM sheets WHERE id = $1`, id)
	return affected(tag, err, core.ErrSheetNotFound)
}
