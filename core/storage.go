package core

import "context"

type UserStorage interface {
	CreateUser(ctx context.Context, u *User) error

	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserBySlug(ctx context.Context, slug string) (*User, error)
	// GetUserByExternalID finds the user whose row mirrors the provider's id.
	// Providers without such a column report ErrUserNotFound.
	GetUserByExternalID(ctx context.Context, provider, externalID string) (*User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]*User, int, error)

	UpdateUser(ctx context.Context, u *User) error

	DeleteUser(ctx context.Context, id string) error
}

type AccountStorage interface {
	// UpsertAccount inserts the account or updates the row with the same id
	UpsertAccount(ctx context.Context, a *Account) error

	GetAccountByProvider(ctx context.Context, providerID, accountID string) (*Account, error)
	GetAccountByUserAndProvider(ctx context.Context, userID, providerID string) (*Account, error)
	ListAccountsByUser(ctx context.Context, userID string) ([]*Account, error)

	DeleteAccount(ctx context.Context, id string) error
}

type CharacterStorage interface {
	CreateCharacter(ctx context.Context, c *Character) error

	GetCharacterByID(ctx context.Context, id string) (*Character, error)
	GetCharacterBySlug(ctx context.Context, slug string) (*Character, error)
	ListCharactersByUser(ctx context.Context, userID string) ([]*Character, error)
	// CharacterSlugExists ignores the character with excludeID when it is not empty
	CharacterSlugExists(ctx context.Context, slug, excludeID string) (bool, error)

	UpdateCharacter(ctx context.Context, c *Character) error

	DeleteCharacter(ctx context.Context, id string) error
}

type SheetStorage interface {
	CreateSheet(ctx context.Context, s *Sheet) error

	GetSheetByID(ctx context.Context, id string) (*Sheet, error)
	ListSheetsByCharacter(ctx context.Context, characterID string) ([]*Sheet, error)

	UpdateSheet(ctx context.Context, s *Sheet) error

	DeleteSheet(ctx context.Context, id string) error
}

type SystemStorage interface {
	CreateSystem(ctx context.Context, s *RpgSystem) error

	GetSystemByID(ctx context.Context, id string) (*RpgSystem, error)
	GetSystemBySlug(ctx context.Context, slug string) (*RpgSystem, error)
	ListSystems(ctx context.Context) ([]*RpgSystem, error)

	UpdateSystem(ctx context.Context, s *RpgSystem) error

	DeleteSystem(ctx context.Context, id string) error
}

type Storage interface {
	UserStorage
	AccountStorage
	CharacterStorage
	SheetStorage
	SystemStorage

	Ping(ctx context.Context) error
}
