package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lborres/fumble/core"
)

type characterStore interface {
	core.CharacterStorage
	core.SheetStorage
}

type CharacterConfig struct {
	WorldAnvil core.WorldAnvilAPI     // optional
	Writer     core.DescriptionWriter // optional
	// OpenAIKey is used for descriptions when the owner has not linked a key
	OpenAIKey string
	Logger    *slog.Logger
}

// CharacterService manages characters and keeps their WorldAnvil blocks in step
type CharacterService struct {
	store      characterStore
	vault      *Vault
	worldAnvil core.WorldAnvilAPI
	writer     core.DescriptionWriter
	openAIKey  string
	logger     *slog.Logger
	now        func() time.Time
}

func NewCharacterService(store characterStore, vault *Vault, cfg CharacterConfig) *CharacterService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CharacterService{
		store:      store,
		vault:      vault,
		worldAnvil: cfg.WorldAnvil,
		writer:     cfg.Writer,
		openAIKey:  cfg.OpenAIKey,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// List returns userID's characters. An empty userID lists the caller's own.
func (s *CharacterService) List(ctx context.Context, caller core.Caller, userID string) ([]*core.Character, error) {
	if userID == "" {
		userID = caller.UserID
	}
	if !caller.CanAccess(userID) {
		return nil, core.ErrAccessDenied
	}

	characters, err := s.store.ListCharactersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	if characters == nil {
		characters = []*core.Character{}
	}
	return characters, nil
}

func (s *CharacterService) Create(ctx context.Context, caller core.Caller, input core.CharacterInput) (*core.Character, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, core.ErrCharacterNameRequired
	}

	ownerID := caller.UserID
	if input.UserID != nil && *input.UserID != "" {
		ownerID = *input.UserID
	}
	if !caller.CanAccess(ownerID) {
		return nil, core.ErrAccessDenied
	}

	now := s.now()
	character := &core.Character{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyCharacterInput(character, input)

	slug, err := s.uniqueSlug(ctx, character.Name, "")
	if err != nil {
		return nil, err
	}
	character.Slug = slug

	if character.SyncWithWorldAnvil && character.WorldAnvilWorldID != nil {
		s.createBlock(ctx, character)
	}

	if err := s.store.CreateCharacter(ctx, character); err != nil {
		return nil, fmt.Errorf("failed to create character: %w", err)
	}

	s.logger.Info("character created", "character_id", character.ID, "user_id", ownerID)
	return character, nil
}

// createBlock links a new WorldAnvil block to character. Failures leave the
// character unlinked.
func (s *CharacterService) createBlock(ctx context.Context, character *core.Character) {
	if s.worldAnvil == nil {
		return
	}
	token, _, err := s.vault.AccessToken(ctx, character.UserID, core.ProviderWorldAnvil)
	if err != nil {
		s.logger.Warn("world anvil sync skipped", "character_id", character.ID, "error", err)
		return
	}

	input := core.WorldAnvilBlockInput{
		Title:    character.Name,
		WorldID:  *character.WorldAnvilWorldID,
		Template: "character",
	}
	if character.Description != nil {
		input.Content = *character.Description
	}

	block, err := s.worldAnvil.CreateBlock(ctx, token, input)
	if err != nil {
		s.logger.Warn("world anvil block create failed", "character_id", character.ID, "error", err)
		return
	}
	character.WorldAnvilBlockID = &block.ID
}

// Get returns a character with its sheets
func (s *CharacterService) Get(ctx context.Context, caller core.Caller, id string) (*core.Character, error) {
	character, err := s.store.GetCharacterByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withSheets(ctx, caller, character)
}

func (s *CharacterService) GetBySlug(ctx context.Context, caller core.Caller, slug string) (*core.Character, error) {
	character, err := s.store.GetCharacterBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.withSheets(ctx, caller, character)
}

func (s *CharacterService) withSheets(ctx context.Context, caller core.Caller, character *core.Character) (*core.Character, error) {
	if !caller.CanAccess(character.UserID) {
		return nil, core.ErrAccessDenied
	}
	sheets, err := s.store.ListSheetsByCharacter(ctx, character.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets: %w", err)
	}
	character.Sheets = sheets
	return character, nil
}

// Update applies input. The slug only changes when the name does.
func (s *CharacterService) Update(ctx context.Context, caller core.Caller, id string, input core.CharacterInput) (*core.Character, error) {
	character, err := s.store.GetCharacterByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(character.UserID) {
		return nil, core.ErrAccessDenied
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, core.ErrCharacterNameRequired
	}
	// Ownership is not transferable through an update.
	input.UserID = nil

	previousName := character.Name
	applyCharacterInput(character, input)
	if character.Name != previousName {
		slug, err := s.uniqueSlug(ctx, character.Name, character.ID)
		if err != nil {
			return nil, err
		}
		character.Slug = slug
	}

	if character.SyncWithWorldAnvil && character.WorldAnvilWorldID != nil {
		if character.WorldAnvilBlockID == nil {
			s.createBlock(ctx, character)
		} else {
			s.updateBlock(ctx, character)
		}
	}

	character.UpdatedAt = s.now()
	if err := s.store.UpdateCharacter(ctx, character); err != nil {
		return nil, fmt.Errorf("failed to update character: %w", err)
	}
	return character, nil
}

func (s *CharacterService) updateBlock(ctx context.Context, character *core.Character) {
	if s.worldAnvil == nil {
		return
	}
	token, _, err := s.vault.AccessToken(ctx, character.UserID, core.ProviderWorldAnvil)
	if err != nil {
		s.logger.Warn("world anvil sync skipped", "character_id", character.ID, "error", err)
		return
	}
	input := core.WorldAnvilBlockInput{Title: character.Name}
	if character.Description != nil {
		input.Content = *character.Description
	}
	if _, err := s.worldAnvil.UpdateBlock(ctx, token, *character.WorldAnvilBlockID, input); err != nil {
		s.logger.Warn("world anvil block update failed", "character_id", character.ID, "error", err)
	}
}

func (s *CharacterService) Delete(ctx context.Context, caller core.Caller, id string) error {
	character, err := s.store.GetCharacterByID(ctx, id)
	if err != nil {
		return err
	}
	if !caller.CanAccess(character.UserID) {
		return core.ErrAccessDenied
	}

	if character.WorldAnvilBlockID != nil && s.worldAnvil != nil {
		token, _, err := s.vault.AccessToken(ctx, character.UserID, core.ProviderWorldAnvil)
		if err == nil {
			err = s.worldAnvil.DeleteBlock(ctx, token, *character.WorldAnvilBlockID)
		}
		if err != nil {
			s.logger.Warn("world anvil block delete failed", "character_id", character.ID, "error", err)
		}
	}

	if err := s.store.DeleteCharacter(ctx, id); err != nil {
		return fmt.Errorf("failed to delete character: %w", err)
	}
	return nil
}

// GenerateDescription asks OpenAI for a description using the owner's key,
// or the server key when the owner has none.
func (s *CharacterService) GenerateDescription(ctx context.Context, caller core.Caller, id, prompt string) (string, error) {
	if s.writer == nil {
		return "", core.ErrIntegrationNotConfigured
	}
	character, err := s.store.GetCharacterByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !caller.CanAccess(character.UserID) {
		return "", core.ErrAccessDenied
	}

	key, _, err := s.vault.AccessToken(ctx, character.UserID, core.ProviderOpenAI)
	switch {
	case errors.Is(err, core.ErrAccountNotFound):
		key = s.openAIKey
	case err != nil:
		return "", err
	}
	if key == "" {
		return "", core.ErrIntegrationNotConfigured
	}

	return s.writer.Describe(ctx, key, character, prompt)
}

// uniqueSlug derives a slug from name and appends the current unix millis
// when it is already taken by another character.
func (s *CharacterService) uniqueSlug(ctx context.Context, name, excludeID string) (string, error) {
	slug := characterSlug(name)
	if slug == "" {
		slug = "character"
	}

	exists, err := s.store.CharacterSlugExists(ctx, slug, excludeID)
	if err != nil {
		return "", fmt.Errorf("failed to check slug: %w", err)
	}
	if exists {
		slug = slug + "-" + strconv.FormatInt(s.now().UnixMilli(), 10)
	}
	return slug, nil
}

func applyCharacterInput(c *core.Character, input core.CharacterInput) {
	if input.Name != nil {
		c.Name = strings.TrimSpace(*input.Name)
	}
	if input.Title != nil {
		c.Title = emptyToNil(*input.Title)
	}
	if input.Description != nil {
		c.Description = emptyToNil(*input.Description)
	}
	if input.PortraitURL != nil {
		c.PortraitURL = emptyToNil(*input.PortraitURL)
	}
	if input.SyncWithWorldAnvil != nil {
		c.SyncWithWorldAnvil = *input.SyncWithWorldAnvil
	}
	if input.WorldAnvilWorldID != nil {
		c.WorldAnvilWorldID = emptyToNil(*input.WorldAnvilWorldID)
	}
}
