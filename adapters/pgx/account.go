package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/lborres/fumble/core"
)

const accountColumns = `id, user_id, provider_id, account_id, username, access_token, refresh_token, scope, expires_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*core.Account, error) {
	acc := &core.Account{}
	err := row.Scan(
		&acc.ID, &acc.UserID, &acc.ProviderID, &acc.AccountID, &acc.Username, &acc.AccessToken,
		&acc.RefreshToken, &acc.Scope, &acc.ExpiresAt, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (a *Adapter) UpsertAccount(ctx context.Context, acc *core.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          ON CONFLICT (id) DO UPDATE SET
	              account_id = EXCLUDED.account_id,
	              username = EXCLUDED.username,
	              access_token = EXCLUDED.access_token,
	              refresh_token = EXCLUDED.refresh_token,
	              scope = EXCLUDED.scope,
	              expires_at = EXCLUDED.expires_at,
	              updated_at = EXCLUDED.updated_at`

	_, err := a.db.Exec(ctx, query,
		acc.ID, acc.UserID, acc.ProviderID, acc.AccountID, acc.Username, acc.AccessToken,
		acc.RefreshToken, acc.Scope, acc.ExpiresAt, acc.CreatedAt, acc.UpdatedAt,
	)
	return translate(err)
}

func (a *Adapter) GetAccountByProvider(ctx context.Context, providerID, accountID string) (*core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE provider_id = $1 AND account_id = $2`

	acc, err := scanAccount(a.db.QueryRow(ctx, query, providerID, accountID))
	if err != nil {
		return nil, notFound(err, core.ErrAccountNotFound)
	}
	return acc, nil
}

func (a *Adapter) GetAccountByUserAndProvider(ctx context.Context, userID, providerID string) (*core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 AND provider_id = $2`

	acc, err := scanAccount(a.db.QueryRow(ctx, query, userID, providerID))
	if err != nil {
		return nil, notFound(err, core.ErrAccountNotFound)
	}
	return acc, nil
}

func (a *Adapter) ListAccountsByUser(ctx context.Context, userID string) ([]*core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY provider_id`

	rows, err := a.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*core.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (a *Adapter) DeleteAccount(ctx context.Context, id string) error {
	tag, err := a.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return affected(tag, err, core.ErrAccountNotFound)
}
