package core

import "context"

// Ports for the third-party services fumble talks to

// ============================================
// DISCORD GUILD PORT (bot token)
// ============================================

type GuildDirectory interface {
	MemberRoles(ctx context.Context, userID string) ([]string, error)
	Roles(ctx context.Context) ([]GuildRole, error)
	Channels(ctx context.Context) (*GuildChannels, error)
}

type GuildRole struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       int    `json:"color"`
	Position    int    `json:"position"`
	Permissions string `json:"permissions"`
	Managed     bool   `json:"managed"`
	Mentionable bool   `json:"mentionable"`
	Hoist       bool   `json:"hoist"`
	IsAdmin     bool   `json:"isAdmin"`
	IsModerator bool   `json:"isModerator"`
}

type GuildChannel struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     int     `json:"type"`
	Position int     `json:"position"`
	ParentID *string `json:"parentId,omitempty"`
	Topic    *string `json:"topic,omitempty"`
}

// GuildChannels groups a guild's channels by kind, each sorted by position
type GuildChannels struct {
	Text       []GuildChannel `json:"text"`
	Voice      []GuildChannel `json:"voice"`
	Categories []GuildChannel `json:"categories"`
	Forums     []GuildChannel `json:"forums"`
	Threads    []GuildChannel `json:"threads"`
}

// ============================================
// WORLDANVIL PORT (user bearer token)
// ============================================

type WorldAnvilAPI interface {
	Identity(ctx context.Context, token string) (*WorldAnvilIdentity, error)
	Worlds(ctx context.Context, token, userID string) ([]WorldAnvilWorld, error)
	World(ctx context.Context, token, id string) (*WorldAnvilWorld, error)
	Block(ctx context.Context, token, id string) (*WorldAnvilBlock, error)
	CreateBlock(ctx context.Context, token string, input WorldAnvilBlockInput) (*WorldAnvilBlock, error)
	UpdateBlock(ctx context.Context, token, id string, input WorldAnvilBlockInput) (*WorldAnvilBlock, error)
	DeleteBlock(ctx context.Context, token, id string) error
	BlockFolders(ctx context.Context, token, worldID string) ([]WorldAnvilBlockFolder, error)
}

type WorldAnvilIdentity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type WorldAnvilWorld struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

type WorldAnvilBlock struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	WorldID  string         `json:"worldId,omitempty"`
	FolderID string         `json:"folderId,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

type WorldAnvilBlockInput struct {
	Title    string `json:"title"`
	WorldID  string `json:"world"`
	FolderID string `json:"folder,omitempty"`
	Template string `json:"template,omitempty"`
	Content  string `json:"content,omitempty"`
}

type WorldAnvilBlockFolder struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ============================================
// OPENAI PORT
// ============================================

type DescriptionWriter interface {
	ValidateKey(ctx context.Context, apiKey string) error
	Describe(ctx context.Context, apiKey string, character *Character, prompt string) (string, error)
}
