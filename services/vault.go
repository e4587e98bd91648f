package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lborres/fumble/core"
	"github.com/lborres/fumble/pkg/crypto"
)

// Vault stores provider credentials on Account rows, sealed at rest.
type Vault struct {
	accounts core.AccountStorage
	sealer   *crypto.Sealer
	now      func() time.Time
}

func NewVault(accounts core.AccountStorage, sealer *crypto.Sealer) *Vault {
	return &Vault{accounts: accounts, sealer: sealer, now: time.Now}
}

// Store seals the tokens onto acct and upserts it. Empty tokens leave the
// stored value untouched.
func (v *Vault) Store(ctx context.Context, acct *core.Account, accessToken, refreshToken string) error {
	now := v.now()
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = now
	}
	acct.UpdatedAt = now

	if accessToken != "" {
		sealed, err := v.sealer.Seal(accessToken)
		if err != nil {
			return fmt.Errorf("failed to seal access token: %w", err)
		}
		acct.AccessToken = &sealed
	}
	if refreshToken != "" {
		sealed, err := v.sealer.Seal(refreshToken)
		if err != nil {
			return fmt.Errorf("failed to seal refresh token: %w", err)
		}
		acct.RefreshToken = &sealed
	}

	return v.accounts.UpsertAccount(ctx, acct)
}

// Account returns the user's account for provider
func (v *Vault) Account(ctx context.Context, userID, provider string) (*core.Account, error) {
	return v.accounts.GetAccountByUserAndProvider(ctx, userID, provider)
}

// AccessToken returns the opened access token of the user's account for provider.
func (v *Vault) AccessToken(ctx context.Context, userID, provider string) (string, *core.Account, error) {
	acct, err := v.accounts.GetAccountByUserAndProvider(ctx, userID, provider)
	if err != nil {
		return "", nil, err
	}
	if acct.AccessToken == nil || *acct.AccessToken == "" {
		return "", acct, core.ErrAccountNotFound
	}
	token, err := v.sealer.Open(*acct.AccessToken)
	if err != nil {
		return "", acct, err
	}
	return token, acct, nil
}

// RefreshToken opens the stored refresh token of acct
func (v *Vault) RefreshToken(acct *core.Account) (string, error) {
	if acct.RefreshToken == nil || *acct.RefreshToken == "" {
		return "", core.ErrNoRefreshToken
	}
	return v.sealer.Open(*acct.RefreshToken)
}

// Owner returns the account holding the external identity accountID at provider
func (v *Vault) Owner(ctx context.Context, provider, accountID string) (*core.Account, error) {
	return v.accounts.GetAccountByProvider(ctx, provider, accountID)
}

func (v *Vault) Delete(ctx context.Context, acct *core.Account) error {
	return v.accounts.DeleteAccount(ctx, acct.ID)
}
