package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lborres/fumble/core"
)

const defaultSheetTitle = "Untitled Sheet"

type sheetStore interface {
	core.CharacterStorage
	core.SheetStorage
	core.SystemStorage
}

// SheetService manages the sheets of a character. Only the owner may touch them.
type SheetService struct {
	store sheetStore
	now   func() time.Time
}

func NewSheetService(store sheetStore) *SheetService {
	return &SheetService{store: store, now: time.Now}
}

func (s *SheetService) owned(ctx context.Context, caller core.Caller, characterID string) (*core.Character, error) {
	character, err := s.store.GetCharacterByID(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if character.UserID != caller.UserID {
		return nil, core.ErrAccessDenied
	}
	return character, nil
}

func (s *SheetService) List(ctx context.Context, caller core.Caller, characterID string) ([]*core.Sheet, error) {
	if _, err := s.owned(ctx, caller, characterID); err != nil {
		return nil, err
	}
	sheets, err := s.store.ListSheetsByCharacter(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets: %w", err)
	}
	if sheets == nil {
		sheets = []*core.Sheet{}
	}
	return sheets, nil
}

func (s *SheetService) Create(ctx context.Context, caller core.Caller, characterID string, input core.SheetInput) (*core.Sheet, error) {
	if _, err := s.owned(ctx, caller, characterID); err != nil {
		return nil, err
	}
	if input.WorldAnvilBlockID == nil || strings.TrimSpace(*input.WorldAnvilBlockID) == "" {
		return nil, core.ErrSheetBlockRequired
	}

	now := s.now()
	sheet := &core.Sheet{
		ID:          uuid.NewString(),
		CharacterID: characterID,
		Title:       defaultSheetTitle,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.apply(ctx, sheet, input); err != nil {
		return nil, err
	}

	if err := s.store.CreateSheet(ctx, sheet); err != nil {
		return nil, err
	}
	return sheet, nil
}

func (s *SheetService) Get(ctx context.Context, caller core.Caller, characterID, sheetID string) (*core.Sheet, error) {
	if _, err := s.owned(ctx, caller, characterID); err != nil {
		return nil, err
	}
	return s.sheet(ctx, characterID, sheetID)
}

func (s *SheetService) sheet(ctx context.Context, characterID, sheetID string) (*core.Sheet, error) {
	sheet, err := s.store.GetSheetByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if sheet.CharacterID != characterID {
		return nil, core.ErrSheetNotFound
	}
	return sheet, nil
}

func (s *SheetService) Update(ctx context.Context, caller core.Caller, characterID, sheetID string, input core.SheetInput) (*core.Sheet, error) {
	if _, err := s.owned(ctx, caller, characterID); err != nil {
		return nil, err
	}
	sheet, err := s.sheet(ctx, characterID, sheetID)
	if err != nil {
		return nil, err
	}
	if input.WorldAnvilBlockID != nil && strings.TrimSpace(*input.WorldAnvilBlockID) == "" {
		return nil, core.ErrSheetBlockRequired
	}

	if err := s.apply(ctx, sheet, input); err != nil {
		return nil, err
	}
	sheet.UpdatedAt = s.now()
	if err := s.store.UpdateSheet(ctx, sheet); err != nil {
		return nil, err
	}
	return sheet, nil
}

func (s *SheetService) Delete(ctx context.Context, caller core.Caller, characterID, sheetID string) error {
	if _, err := s.owned(ctx, caller, characterID); err != nil {
		return err
	}
	if _, err := s.sheet(ctx, characterID, sheetID); err != nil {
		return err
	}
	return s.store.DeleteSheet(ctx, sheetID)
}

func (s *SheetService) apply(ctx context.Context, sheet *core.Sheet, input core.SheetInput) error {
	if input.WorldAnvilBlockID != nil {
		sheet.WorldAnvilBlockID = strings.TrimSpace(*input.WorldAnvilBlockID)
	}
	if input.RpgSystemID != nil {
		sheet.RpgSystemID = emptyToNil(*input.RpgSystemID)
		if sheet.RpgSystemID != nil {
			if _, err := s.store.GetSystemByID(ctx, *sheet.RpgSystemID); err != nil {
				return err
			}
		}
	}
	if input.Title != nil {
		if title := strings.TrimSpace(*input.Title); title != "" {
			sheet.Title = title
		}
	}
	if input.Description != nil {
		sheet.Description = emptyToNil(*input.Description)
	}
	if input.Data != nil {
		sheet.Data = input.Data
	}
	if input.IsActive != nil {
		sheet.IsActive = *input.IsActive
	}
	return nil
}
