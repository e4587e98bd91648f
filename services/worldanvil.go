package services

import (
	"context"

	"github.com/lborres/fumble/core"
)

// WorldAnvilService browses a user's WorldAnvil content with their linked token.
type WorldAnvilService struct {
	api   core.WorldAnvilAPI
	vault *Vault
}

func NewWorldAnvilService(api core.WorldAnvilAPI, vault *Vault) *WorldAnvilService {
	return &WorldAnvilService{api: api, vault: vault}
}

func (s *WorldAnvilService) token(ctx context.Context, userID string) (string, *core.Account, error) {
	if s.api == nil {
		return "", nil, core.ErrIntegrationNotConfigured
	}
	return s.vault.AccessToken(ctx, userID, core.ProviderWorldAnvil)
}

func (s *WorldAnvilService) Worlds(ctx context.Context, userID string) ([]core.WorldAnvilWorld, error) {
	token, acct, err := s.token(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.api.Worlds(ctx, token, acct.AccountID)
}

func (s *WorldAnvilService) BlockFolders(ctx context.Context, userID, worldID string) ([]core.WorldAnvilBlockFolder, error) {
	token, _, err := s.token(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.api.BlockFolders(ctx, token, worldID)
}

func (s *WorldAnvilService) Block(ctx context.Context, userID, blockID string) (*core.WorldAnvilBlock, error) {
	token, _, err := s.token(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.api.Block(ctx, token, blockID)
}
