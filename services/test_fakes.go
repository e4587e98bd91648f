package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lborres/fumble/core"
)

// FakeStorage is a test-only fake implementing core.Storage.
// It keeps copies of rows in maps, enforces the unique constraints of the real
// schema and exposes error fields for behavior injection.
type FakeStorage struct {
	mu         sync.RWMutex
	users      map[string]core.User
	accounts   map[string]core.Account
	characters map[string]core.Character
	sheets     map[string]core.Sheet
	systems    map[string]core.RpgSystem

	createUserErr error
	getUserErr    error
	updateUserErr error
	upsertErr     error
	pingErr       error

	createUserCalls int
}

var _ core.Storage = (*FakeStorage)(nil)

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		users:      make(map[string]core.User),
		accounts:   make(map[string]core.Account),
		characters: make(map[string]core.Character),
		sheets:     make(map[string]core.Sheet),
		systems:    make(map[string]core.RpgSystem),
	}
}

func (f *FakeStorage) Ping(ctx context.Context) error {
	return f.pingErr
}

// UserCount returns the number of stored users
func (f *FakeStorage) UserCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.users)
}

// ============================================
// USERS
// ============================================

func (f *FakeStorage) CreateUser(ctx context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createUserCalls++
	if f.createUserErr != nil {
		return f.createUserErr
	}
	if err := f.userConflict(u); err != nil {
		return err
	}
	f.users[u.ID] = *u
	return nil
}

func (f *FakeStorage) userConflict(u *core.User) error {
	for _, existing := range f.users {
		if existing.ID == u.ID {
			continue
		}
		if u.Email != nil && existing.Email != nil && *u.Email == *existing.Email {
			return core.ErrEmailTaken
		}
		if u.Slug == existing.Slug {
			return core.ErrSlugTaken
		}
		for _, provider := range []string{core.ProviderDiscord, core.ProviderWorldAnvil} {
			if id := u.ExternalID(provider); id != "" && id == existing.ExternalID(provider) {
				return core.ErrAccountLinkedElsewhere
			}
		}
	}
	return nil
}

func (f *FakeStorage) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	if u, ok := f.users[id]; ok {
		return &u, nil
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeStorage) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, u := range f.users {
		if u.Email != nil && *u.Email == email {
			return &u, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeStorage) GetUserBySlug(ctx context.Context, slug string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, u := range f.users {
		if u.Slug == slug {
			return &u, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeStorage) GetUserByExternalID(ctx context.Context, provider, externalID string) (*core.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, u := range f.users {
		if id := u.ExternalID(provider); id != "" && id == externalID {
			return &u, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeStorage) ListUsers(ctx context.Context, filter core.UserFilter) ([]*core.User, int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var matched []*core.User
	for _, u := range f.users {
		if search != "" {
			email := ""
			if u.Email != nil {
				email = *u.Email
			}
			haystack := strings.ToLower(u.Name + " " + email + " " + u.Slug)
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		if filter.Admin != nil && u.Admin != *filter.Admin {
			continue
		}
		if filter.HasDiscord != nil && (u.DiscordID != nil) != *filter.HasDiscord {
			continue
		}
		if filter.HasWorldAnvil != nil && (u.WorldAnvilID != nil) != *filter.HasWorldAnvil {
			continue
		}
		u := u
		matched = append(matched, &u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := len(matched)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

func (f *FakeStorage) UpdateUser(ctx context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateUserErr != nil {
		return f.updateUserErr
	}
	if _, exists := f.users[u.ID]; !exists {
		return core.ErrUserNotFound
	}
	if err := f.userConflict(u); err != nil {
		return err
	}
	f.users[u.ID] = *u
	return nil
}

func (f *FakeStorage) DeleteUser(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[id]; !exists {
		return core.ErrUserNotFound
	}
	delete(f.users, id)
	for aid, a := range f.accounts {
		if a.UserID == id {
			delete(f.accounts, aid)
		}
	}
	return nil
}

// ============================================
// ACCOUNTS
// ============================================

func (f *FakeStorage) UpsertAccount(ctx context.Context, a *core.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, existing := range f.accounts {
		if existing.ID == a.ID {
			continue
		}
		if existing.ProviderID == a.ProviderID && (existing.AccountID == a.AccountID || existing.UserID == a.UserID) {
			return core.ErrAccountLinkedElsewhere
		}
	}
	f.accounts[a.ID] = *a
	return nil
}

func (f *FakeStorage) GetAccountByProvider(ctx context.Context, providerID, accountID string) (*core.Account, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, a := range f.accounts {
		if a.ProviderID == providerID && a.AccountID == accountID {
			return &a, nil
		}
	}
	return nil, core.ErrAccountNotFound
}

func (f *FakeStorage) GetAccountByUserAndProvider(ctx context.Context, userID, providerID string) (*core.Account, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, a := range f.accounts {
		if a.UserID == userID && a.ProviderID == providerID {
			return &a, nil
		}
	}
	return nil, core.ErrAccountNotFound
}

func (f *FakeStorage) ListAccountsByUser(ctx context.Context, userID string) ([]*core.Account, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var accounts []*core.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			a := a
			accounts = append(accounts, &a)
		}
	}
	return accounts, nil
}

func (f *FakeStorage) DeleteAccount(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[id]; !exists {
		return core.ErrAccountNotFound
	}
	delete(f.accounts, id)
	return nil
}

// ============================================
// CHARACTERS
// ============================================

func (f *FakeStorage) CreateCharacter(ctx context.Context, c *core.Character) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.characters {
		if existing.Slug == c.Slug {
			return core.ErrSlugTaken
		}
	}
	stored := *c
	stored.Sheets = nil
	f.characters[c.ID] = stored
	return nil
}

func (f *FakeStorage) GetCharacterByID(ctx context.Context, id string) (*core.Character, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if c, ok := f.characters[id]; ok {
		return &c, nil
	}
	return nil, core.ErrCharacterNotFound
}

func (f *FakeStorage) GetCharacterBySlug(ctx context.Context, slug string) (*core.Character, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, c := range f.characters {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, core.ErrCharacterNotFound
}

func (f *FakeStorage) ListCharactersByUser(ctx context.Context, userID string) ([]*core.Character, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var characters []*core.Character
	for _, c := range f.characters {
		if c.UserID == userID {
			c := c
			characters = append(characters, &c)
		}
	}
	sort.Slice(characters, func(i, j int) bool { return characters[i].Name < characters[j].Name })
	return characters, nil
}

func (f *FakeStorage) CharacterSlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, c := range f.characters {
		if c.Slug == slug && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeStorage) UpdateCharacter(ctx context.Context, c *core.Character) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.characters[c.ID]; !exists {
		return core.ErrCharacterNotFound
	}
	stored := *c
	stored.Sheets = nil
	f.characters[c.ID] = stored
	return nil
}

func (f *FakeStorage) DeleteCharacter(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.characters[id]; !exists {
		return core.ErrCharacterNotFound
	}
	delete(f.characters, id)
	for sid, s := range f.sheets {
		if s.CharacterID == id {
			delete(f.sheets, sid)
		}
	}
	return nil
}

// ============================================
// SHEETS
// ============================================

func (f *FakeStorage) CreateSheet(ctx context.Context, s *core.Sheet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.sheets {
		if existing.WorldAnvilBlockID == s.WorldAnvilBlockID {
			return core.ErrSheetAlreadyLinked
		}
	}
	f.sheets[s.ID] = *s
	return nil
}

func (f *FakeStorage) GetSheetByID(ctx context.Context, id string) (*core.Sheet, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if s, ok := f.sheets[id]; ok {
		return &s, nil
	}
	return nil, core.ErrSheetNotFound
}

func (f *FakeStorage) ListSheetsByCharacter(ctx context.Context, characterID string) ([]*core.Sheet, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var sheets []*core.Sheet
	for _, s := range f.sheets {
		if s.CharacterID == characterID {
			s := s
			sheets = append(sheets, &s)
		}
	}
	sort.Slice(sheets, func(i, j int) bool { return sheets[i].Title < sheets[j].Title })
	return sheets, nil
}

func (f *FakeStorage) UpdateSheet(ctx context.Context, s *core.Sheet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.sheets[s.ID]; !exists {
		return core.ErrSheetNotFound
	}
	for _, existing := range f.sheets {
		if existing.ID != s.ID && existing.WorldAnvilBlockID == s.WorldAnvilBlockID {
			return core.ErrSheetAlreadyLinked
		}
	}
	f.sheets[s.ID] = *s
	return nil
}

func (f *FakeStorage) DeleteSheet(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.sheets[id]; !exists {
		return core.ErrSheetNotFound
	}
	delete(f.sheets, id)
	return nil
}

// ============================================
// RPG SYSTEMS
// ============================================

func (f *FakeStorage) CreateSystem(ctx context.Context, s *core.RpgSystem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.systems {
		if existing.Slug == s.Slug {
			return core.ErrSlugTaken
		}
	}
	f.systems[s.ID] = *s
	return nil
}

func (f *FakeStorage) GetSystemByID(ctx context.Context, id string) (*core.RpgSystem, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if s, ok := f.systems[id]; ok {
		return &s, nil
	}
	return nil, core.ErrSystemNotFound
}

func (f *FakeStorage) GetSystemBySlug(ctx context.Context, slug string) (*core.RpgSystem, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.systems {
		if s.Slug == slug {
			return &s, nil
		}
	}
	return nil, core.ErrSystemNotFound
}

func (f *FakeStorage) ListSystems(ctx context.Context) ([]*core.RpgSystem, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var systems []*core.RpgSystem
	for _, s := range f.systems {
		s := s
		systems = append(systems, &s)
	}
	sort.Slice(systems, func(i, j int) bool { return systems[i].Title < systems[j].Title })
	return systems, nil
}

func (f *FakeStorage) UpdateSystem(ctx context.Context, s *core.RpgSystem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.systems[s.ID]; !exists {
		return core.ErrSystemNotFound
	}
	f.systems[s.ID] = *s
	return nil
}

func (f *FakeStorage) DeleteSystem(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.systems[id]; !exists {
		return core.ErrSystemNotFound
	}
	delete(f.systems, id)
	return nil
}

// ============================================
// PROVIDERS AND INTEGRATIONS
// ============================================

// FakeProvider is a test-only core.SSOProvider returning canned tokens and profiles.
type FakeProvider struct {
	name        string
	profile     *core.SSOProfile
	token       *core.ProviderToken
	exchangeErr error
	profileErr  error
	refreshErr  error
	revokeErr   error

	exchangedCodes []string
	revoked        []string
	refreshed      []string
}

var _ core.SSOProvider = (*FakeProvider)(nil)

func NewFakeProvider(name string, profile *core.SSOProfile) *FakeProvider {
	return &FakeProvider{
		name:    name,
		profile: profile,
		token:   &core.ProviderToken{AccessToken: "access-" + name, RefreshToken: "refresh-" + name, TokenType: "Bearer", Scope: "identify"},
	}
}

func (p *FakeProvider) Name() string {
	return p.name
}

func (p *FakeProvider) GetAuthorizationURL(state string) string {
	return "https://" + p.name + ".example/authorize?state=" + state
}

func (p *FakeProvider) ExchangeCodeForToken(ctx context.Context, code string) (*core.ProviderToken, error) {
	p.exchangedCodes = append(p.exchangedCodes, code)
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	token := *p.token
	return &token, nil
}

func (p *FakeProvider) GetUserProfile(ctx context.Context, accessToken string) (*core.SSOProfile, error) {
	if p.profileErr != nil {
		return nil, p.profileErr
	}
	profile := *p.profile
	return &profile, nil
}

func (p *FakeProvider) RefreshToken(ctx context.Context, refreshToken string) (*core.ProviderToken, error) {
	p.refreshed = append(p.refreshed, refreshToken)
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	return &core.ProviderToken{AccessToken: "rotated-access", RefreshToken: "rotated-refresh", Scope: "identify email"}, nil
}

func (p *FakeProvider) RevokeToken(ctx context.Context, token string) error {
	p.revoked = append(p.revoked, token)
	return p.revokeErr
}

// FakeWorldAnvil is a test-only core.WorldAnvilAPI
type FakeWorldAnvil struct {
	identity    *core.WorldAnvilIdentity
	identityErr error
	createErr   error
	deleteErr   error

	created []core.WorldAnvilBlockInput
	updated []string
	deleted []string
	tokens  []string
}

var _ core.WorldAnvilAPI = (*FakeWorldAnvil)(nil)

func (f *FakeWorldAnvil) Identity(ctx context.Context, token string) (*core.WorldAnvilIdentity, error) {
	f.tokens = append(f.tokens, token)
	if f.identityErr != nil {
		return nil, f.identityErr
	}
	if f.identity == nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUpstream, core.ErrUpstreamUnauthorized)
	}
	return f.identity, nil
}

func (f *FakeWorldAnvil) Worlds(ctx context.Context, token, userID string) ([]core.WorldAnvilWorld, error) {
	f.tokens = append(f.tokens, token)
	return []core.WorldAnvilWorld{{ID: "world-1", Title: "Eberron"}}, nil
}

func (f *FakeWorldAnvil) World(ctx context.Context, token, id string) (*core.WorldAnvilWorld, error) {
	return &core.WorldAnvilWorld{ID: id, Title: "Eberron"}, nil
}

func (f *FakeWorldAnvil) Block(ctx context.Context, token, id string) (*core.WorldAnvilBlock, error) {
	return &core.WorldAnvilBlock{ID: id, Title: "Block"}, nil
}

func (f *FakeWorldAnvil) CreateBlock(ctx context.Context, token string, input core.WorldAnvilBlockInput) (*core.WorldAnvilBlock, error) {
	f.tokens = append(f.tokens, token)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, input)
	return &core.WorldAnvilBlock{ID: "block-1", Title: input.Title, WorldID: input.WorldID}, nil
}

func (f *FakeWorldAnvil) UpdateBlock(ctx context.Context, token, id string, input core.WorldAnvilBlockInput) (*core.WorldAnvilBlock, error) {
	f.updated = append(f.updated, id)
	return &core.WorldAnvilBlock{ID: id, Title: input.Title}, nil
}

func (f *FakeWorldAnvil) DeleteBlock(ctx context.Context, token, id string) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *FakeWorldAnvil) BlockFolders(ctx context.Context, token, worldID string) ([]core.WorldAnvilBlockFolder, error) {
	return []core.WorldAnvilBlockFolder{{ID: "folder-1", Title: "Sheets"}}, nil
}

// FakeWriter is a test-only core.DescriptionWriter recording the keys it was given.
type FakeWriter struct {
	validateErr error
	keys        []string
}

var _ core.DescriptionWriter = (*FakeWriter)(nil)

func (f *FakeWriter) ValidateKey(ctx context.Context, apiKey string) error {
	f.keys = append(f.keys, apiKey)
	return f.validateErr
}

func (f *FakeWriter) Describe(ctx context.Context, apiKey string, character *core.Character, prompt string) (string, error) {
	f.keys = append(f.keys, apiKey)
	return "A description of " + character.Name, nil
}
