package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lborres/fumble/core"
)

const (
	defaultUserPageSize = 50
	maxUserPageSize     = 200
)

// UserService backs the admin user directory
type UserService struct {
	users  core.UserStorage
	logger *slog.Logger
	now    func() time.Time
}

func NewUserService(users core.UserStorage, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{users: users, logger: logger, now: time.Now}
}

func (s *UserService) List(ctx context.Context, filter core.UserFilter) (*core.UserList, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultUserPageSize
	}
	if filter.Limit > maxUserPageSize {
		filter.Limit = maxUserPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Search = strings.TrimSpace(filter.Search)

	users, total, err := s.users.ListUsers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []*core.User{}
	}

	return &core.UserList{
		Users:   users,
		Total:   total,
		HasMore: filter.Offset+filter.Limit < total,
	}, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*core.User, error) {
	return s.users.GetUserByID(ctx, id)
}

func (s *UserService) Create(ctx context.Context, input core.UserInput) (*core.User, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, core.ErrNameRequired
	}

	now := s.now()
	user := &core.User{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyUserInput(user, input)
	if user.Slug == "" {
		user.Slug = slugify(user.Name)
	}

	if err := s.checkUnique(ctx, user); err != nil {
		return nil, err
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created", "user_id", user.ID)
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id string, input core.UserInput) (*core.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, core.ErrNameRequired
	}

	applyUserInput(user, input)
	if user.Slug == "" {
		user.Slug = slugify(user.Name)
	}
	user.UpdatedAt = s.now()

	if err := s.checkUnique(ctx, user); err != nil {
		return nil, err
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, callerID, id string) error {
	if callerID == id {
		return core.ErrCannotDeleteSelf
	}
	if _, err := s.users.GetUserByID(ctx, id); err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted", "user_id", id, "by", callerID)
	return nil
}

func (s *UserService) SetAdmin(ctx context.Context, id string, admin bool) (*core.User, error) {
	return s.Update(ctx, id, core.UserInput{Admin: &admin})
}

// checkUnique rejects an email or slug held by a different user
func (s *UserService) checkUnique(ctx context.Context, user *core.User) error {
	if user.Email != nil && *user.Email != "" {
		existing, err := s.users.GetUserByEmail(ctx, *user.Email)
		switch {
		case err == nil && existing.ID != user.ID:
			return core.ErrEmailTaken
		case err != nil && !errors.Is(err, core.ErrUserNotFound):
			return err
		}
	}

	existing, err := s.users.GetUserBySlug(ctx, user.Slug)
	switch {
	case err == nil && existing.ID != user.ID:
		return core.ErrSlugTaken
	case err != nil && !errors.Is(err, core.ErrUserNotFound):
		return err
	}
	return nil
}

func applyUserInput(user *core.User, input core.UserInput) {
	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Slug != nil {
		user.Slug = slugify(*input.Slug)
	}
	if input.Email != nil {
		user.Email = emptyToNil(*input.Email)
	}
	if input.DiscordID != nil {
		user.DiscordID = emptyToNil(*input.DiscordID)
	}
	if input.WorldAnvilID != nil {
		user.WorldAnvilID = emptyToNil(*input.WorldAnvilID)
	}
	if input.Avatar != nil {
		user.Avatar = emptyToNil(*input.Avatar)
	}
	if input.Admin != nil {
		user.Admin = *input.Admin
	}
	if input.Data != nil {
		user.Data = input.Data
	}
}

func emptyToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
