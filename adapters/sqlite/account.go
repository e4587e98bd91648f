package sqlite

import (
	"context"
	"database/sql"

	"github.com/lborres/fumble/core"
)

const accountColumns = `id, user_id, provider_id, account_id, username, access_token, refresh_token, scope, expires_at, created_at, updated_at`

func scanAccount(row scanner) (*core.Account, error) {
	acc := &core.Account{}
	var expiresAt sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(
		&acc.ID, &acc.UserID, &acc.ProviderID, &acc.AccountID, &acc.Username, &acc.AccessToken,
		&acc.RefreshToken, &acc.Scope, &expiresAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	acc.ExpiresAt = fromNullMillis(expiresAt)
	acc.CreatedAt = fromMillis(createdAt)
	acc.UpdatedAt = fromMillis(updatedAt)
	return acc, nil
}

func (a *Adapter) UpsertAccount(ctx context.Context, acc *core.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT (id) DO UPDATE SET
	              account_id = excluded.account_id,
	              username = excluded.username,
	              access_token = excluded.access_token,
	              refresh_token = excluded.refresh_token,
	              scope = excluded.scope,
	              expires_at = excluded.expires_at,
	              updated_at = excluded.updated_at`

	_, err := a.db.ExecContext(ctx, query,
		acc.ID, acc.UserID, acc.ProviderID, acc.AccountID, acc.Username, acc.AccessToken,
		acc.RefreshToken, acc.Scope, nullMillis(acc.ExpiresAt), toMillis(acc.CreatedAt), toMillis(acc.UpdatedAt),
	)
	return translate(err, core.ErrUserNotFound)
}

func (a *Adapter) GetAccountByProvider(ctx context.Context, providerID, accountID string) (*core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE provider_id = ? AND account_id = ?`

	acc, err := scanAccount(a.db.QueryRowContext(ctx, query, providerID, accountID))
	if err != nil {
		return nil, notFound(err, core.ErrAccountNotFound)
	}
	return acc, nil
}

func (a *Adapter) GetAccountByUserAndProvider(ctx context.Context, userID, providerID string) (*core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ? AND provider_id = ?`

	acc, err := scanAccount(a.db.QueryRowContext(ctx, query, userID, providerID))
	if err != nil {
		return nil, notFound(err, core.ErrAccountNotFound)
	}
	return acc, nil
}

func (a *Adapter) ListAccountsByUser(ctx context.Context, userID string) ([]*core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ? ORDER BY provider_id`

	rows, err := a.db.QueryContext(ctx, query, userID)
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
	res, err := a.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	return affected(res, err, core.ErrAccountNotFound, nil)
}
