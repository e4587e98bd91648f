package sqlite

import (
	"context"
	"database/sql"

	"github.com/lborres/fumble/core"
)

const sheetColumns = `id, character_id, rpg_system_id, worldanvil_block_id, title, description, data, is_active, created_at, updated_at`

func scanSheet(row scanner) (*core.Sheet, error) {
	s := &core.Sheet{}
	var data sql.NullString
	var createdAt, updatedAt int64
	err := row.Scan(
		&s.ID, &s.CharacterID, &s.RpgSystemID, &s.WorldAnvilBlockID, &s.Title,
		&s.Description, &data, &s.IsActive, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Data = fromJSON(data)
	s.CreatedAt = fromMillis(createdAt)
	s.UpdatedAt = fromMillis(updatedAt)
	return s, nil
}

// sheetReference is the foreign key a sheet write can break. A missing
// system is the likelier cause when one is set.
func sheetReference(s *core.Sheet) error {
	if s.RpgSystemID != nil {
		return core.ErrSystemNotFound
	}
	return core.ErrCharacterNotFound
}

func (a *Adapter) CreateSheet(ctx context.Context, s *core.Sheet) error {
	query := `INSERT INTO sheets (` + sheetColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := a.db.ExecContext(ctx, query,
		s.ID, s.CharacterID, s.RpgSystemID, s.WorldAnvilBlockID, s.Title,
		s.Description, jsonArg(s.Data), s.IsActive, toMillis(s.CreatedAt), toMillis(s.UpdatedAt),
	)
	return translate(err, sheetReference(s))
}

func (a *Adapter) GetSheetByID(ctx context.Context, id string) (*core.Sheet, error) {
	query := `SELECT ` + sheetColumns + ` FROM sheets WHERE id = ?`

	s, err := scanSheet(a.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, core.ErrSheetNotFound)
	}
	return s, nil
}

func (a *Adapter) ListSheetsByCharacter(ctx context.Context, characterID string) ([]*core.Sheet, error) {
	query := `SELECT ` + sheetColumns + ` FROM sheets WHERE character_id = ? ORDER BY title, id`

	rows, err := a.db.QueryContext(ctx, query, characterID)
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
	query := `UPDATE sheets SET rpg_system_id = ?, worldanvil_block_id = ?, title = ?, description = ?,
	              data = ?, is_active = ?, updated_at = ?
	          WHERE id = ?`

	res, err := a.db.ExecContext(ctx, query,
		s.RpgSystemID, s.WorldAnvilBlockID, s.Title, s.Description,
		jsonArg(s.Data), s.IsActive, toMillis(s.UpdatedAt), s.ID,
	)
	return affected(res, err, core.ErrSheetNotFound, core.ErrSystemNotFound)
}

func (a *Adapter) DeleteSheet(ctx context.Context, id string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM sheets WHERE id = ?`, id)
	return affected(res, err, core.ErrSheetNotFound, nil)
}
