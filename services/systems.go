package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lborres/fumble/core"
)

// SystemService manages the catalogue of RPG systems
type SystemService struct {
	systems core.SystemStorage
	now     func() time.Time
}

func NewSystemService(systems core.SystemStorage) *SystemService {
	return &SystemService{systems: systems, now: time.Now}
}

// List returns every system ordered by title
func (s *SystemService) List(ctx context.Context) ([]*core.RpgSystem, error) {
	systems, err := s.systems.ListSystems(ctx)
	if err != nil {
		return nil, err
	}
	if systems == nil {
		systems = []*core.RpgSystem{}
	}
	return systems, nil
}

func (s *SystemService) Get(ctx context.Context, id string) (*core.RpgSystem, error) {
	return s.systems.GetSystemByID(ctx, id)
}

func (s *SystemService) Create(ctx context.Context, input core.RpgSystemInput) (*core.RpgSystem, error) {
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		return nil, core.ErrSystemTitleRequired
	}

	now := s.now()
	system := &core.RpgSystem{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applySystemInput(system, input)

	if err := s.checkSlug(ctx, system); err != nil {
		return nil, err
	}
	if err := s.systems.CreateSystem(ctx, system); err != nil {
		return nil, err
	}
	return system, nil
}

func (s *SystemService) Update(ctx context.Context, id string, input core.RpgSystemInput) (*core.RpgSystem, error) {
	system, err := s.systems.GetSystemByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, core.ErrSystemTitleRequired
	}

	applySystemInput(system, input)
	if err := s.checkSlug(ctx, system); err != nil {
		return nil, err
	}
	system.UpdatedAt = s.now()
	if err := s.systems.UpdateSystem(ctx, system); err != nil {
		return nil, err
	}
	return system, nil
}

func (s *SystemService) Delete(ctx context.Context, id string) error {
	if _, err := s.systems.GetSystemByID(ctx, id); err != nil {
		return err
	}
	return s.systems.DeleteSystem(ctx, id)
}

func (s *SystemService) checkSlug(ctx context.Context, system *core.RpgSystem) error {
	if system.Slug == "" {
		system.Slug = slugify(system.Title)
	}
	existing, err := s.systems.GetSystemBySlug(ctx, system.Slug)
	switch {
	case err == nil && existing.ID != system.ID:
		return core.ErrSlugTaken
	case err != nil && !errors.Is(err, core.ErrSystemNotFound):
		return err
	}
	return nil
}

func applySystemInput(system *core.RpgSystem, input core.RpgSystemInput) {
	if input.Title != nil {
		system.Title = strings.TrimSpace(*input.Title)
	}
	if input.Slug != nil {
		system.Slug = slugify(*input.Slug)
	}
	if input.Description != nil {
		system.Description = emptyToNil(*input.Description)
	}
	if input.WorldAnvilSystemID != nil {
		system.WorldAnvilSystemID = emptyToNil(*input.WorldAnvilSystemID)
	}
	if input.DiscordRoleID != nil {
		system.DiscordRoleID = emptyToNil(*input.DiscordRoleID)
	}
	if input.DiscordChatChannel != nil {
		system.DiscordChatChannel = emptyToNil(*input.DiscordChatChannel)
	}
	if input.DiscordForumChannel != nil {
		system.DiscordForumChannel = emptyToNil(*input.DiscordForumChannel)
	}
	if input.DiscordVoiceChannel != nil {
		system.DiscordVoiceChannel = emptyToNil(*input.DiscordVoiceChannel)
	}
	if input.DiscordThreadID != nil {
		system.DiscordThreadID = emptyToNil(*input.DiscordThreadID)
	}
	if input.DiscordPostID != nil {
		system.DiscordPostID = emptyToNil(*input.DiscordPostID)
	}
}
