package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lborres/fumble/core"
)

const minWorldAnvilTokenLength = 10

// linkableProviders are reported by Status, in order
var linkableProviders = []string{core.ProviderDiscord, core.ProviderWorldAnvil, core.ProviderOpenAI}

// AccountLinkService links WorldAnvil tokens and OpenAI keys pasted in by users.
type AccountLinkService struct {
	users      core.UserStorage
	vault      *Vault
	worldAnvil core.WorldAnvilAPI     // optional
	writer     core.DescriptionWriter // optional
	logger     *slog.Logger
	now        func() time.Time
}

func NewAccountLinkService(users core.UserStorage, vault *Vault, worldAnvil core.WorldAnvilAPI, writer core.DescriptionWriter, logger *slog.Logger) *AccountLinkService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountLinkService{
		users:      users,
		vault:      vault,
		worldAnvil: worldAnvil,
		writer:     writer,
		logger:     logger,
		now:        time.Now,
	}
}

// LinkWorldAnvilToken validates token against the WorldAnvil identity endpoint
// and stores it for userID.
func (s *AccountLinkService) LinkWorldAnvilToken(ctx context.Context, userID, token string) (*core.LinkStatus, error) {
	token = strings.TrimSpace(token)
	if len(token) < minWorldAnvilTokenLength {
		return nil, fmt.Errorf("%w: world anvil token is too short", core.ErrInvalidAPIKey)
	}
	if s.worldAnvil == nil {
		return nil, core.ErrIntegrationNotConfigured
	}

	identity, err := s.worldAnvil.Identity(ctx, token)
	switch {
	case errors.Is(err, core.ErrUpstreamUnauthorized):
		return nil, fmt.Errorf("%w: world anvil rejected the token", core.ErrInvalidAPIKey)
	case err != nil:
		return nil, fmt.Errorf("failed to verify world anvil token: %w", err)
	}

	acct, err := s.accountFor(ctx, userID, core.ProviderWorldAnvil, identity.ID)
	if err != nil {
		return nil, err
	}

	// The user row is written first so a conflicting worldanvil_id leaves no account behind.
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := user.ExternalID(core.ProviderWorldAnvil)
	user.SetExternalID(core.ProviderWorldAnvil, identity.ID)
	user.UpdatedAt = s.now()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	acct.Username = identity.Username
	if err := s.vault.Store(ctx, acct, token, ""); err != nil {
		user.SetExternalID(core.ProviderWorldAnvil, previous)
		if restoreErr := s.users.UpdateUser(ctx, user); restoreErr != nil {
			s.logger.Warn("failed to restore world anvil id", "user_id", userID, "error", restoreErr)
		}
		return nil, err
	}

	s.logger.Info("world anvil token linked", "user_id", userID)
	return linkStatus(core.ProviderWorldAnvil, acct), nil
}

// LinkOpenAIKey validates key by listing models and stores it for userID.
func (s *AccountLinkService) LinkOpenAIKey(ctx context.Context, userID, key string) (*core.LinkStatus, error) {
	key = strings.TrimSpace(key)
	if !strings.HasPrefix(key, "sk-") {
		return nil, fmt.Errorf("%w: openai keys start with sk-", core.ErrInvalidAPIKey)
	}
	if s.writer == nil {
		return nil, core.ErrIntegrationNotConfigured
	}
	if err := s.writer.ValidateKey(ctx, key); err != nil {
		return nil, err
	}

	// An API key has no remote identity; the account is keyed by the user.
	acct, err := s.accountFor(ctx, userID, core.ProviderOpenAI, userID)
	if err != nil {
		return nil, err
	}
	if err := s.vault.Store(ctx, acct, key, ""); err != nil {
		return nil, err
	}

	s.logger.Info("openai key linked", "user_id", userID)
	return linkStatus(core.ProviderOpenAI, acct), nil
}

// accountFor returns the account to write for userID, refusing identities
// that belong to another user.
func (s *AccountLinkService) accountFor(ctx context.Context, userID, provider, accountID string) (*core.Account, error) {
	acct, err := s.vault.Owner(ctx, provider, accountID)
	switch {
	case err == nil && acct.UserID != userID:
		return nil, core.ErrAccountLinkedElsewhere
	case err == nil:
		return acct, nil
	case !errors.Is(err, core.ErrAccountNotFound):
		return nil, err
	}

	acct, err = s.vault.Account(ctx, userID, provider)
	switch {
	case err == nil:
		acct.AccountID = accountID
		return acct, nil
	case errors.Is(err, core.ErrAccountNotFound):
		return &core.Account{UserID: userID, ProviderID: provider, AccountID: accountID}, nil
	default:
		return nil, err
	}
}

// Unlink forgets the user's credential for provider
func (s *AccountLinkService) Unlink(ctx context.Context, userID, provider string) error {
	acct, err := s.vault.Account(ctx, userID, provider)
	if err != nil {
		return err
	}
	if err := s.vault.Delete(ctx, acct); err != nil {
		return err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.ExternalID(provider) != "" {
		user.SetExternalID(provider, "")
		user.UpdatedAt = s.now()
		return s.users.UpdateUser(ctx, user)
	}
	return nil
}

// ProviderStatus reports whether userID has linked provider
func (s *AccountLinkService) ProviderStatus(ctx context.Context, userID, provider string) (*core.LinkStatus, error) {
	acct, err := s.vault.Account(ctx, userID, provider)
	switch {
	case errors.Is(err, core.ErrAccountNotFound):
		return &core.LinkStatus{Provider: provider}, nil
	case err != nil:
		return nil, err
	}
	return linkStatus(provider, acct), nil
}

// Status reports every linkable provider for userID
func (s *AccountLinkService) Status(ctx context.Context, userID string) ([]core.LinkStatus, error) {
	statuses := make([]core.LinkStatus, 0, len(linkableProviders))
	for _, provider := range linkableProviders {
		status, err := s.ProviderStatus(ctx, userID, provider)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *status)
	}
	return statuses, nil
}

func linkStatus(provider string, acct *core.Account) *core.LinkStatus {
	linkedAt := acct.CreatedAt
	status := &core.LinkStatus{
		Provider: provider,
		Linked:   true,
		Username: acct.Username,
		LinkedAt: &linkedAt,
	}
	// The OpenAI account id is our own user id, not worth echoing.
	if provider != core.ProviderOpenAI {
		status.AccountID = acct.AccountID
	}
	return status
}
