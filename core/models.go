package core

import (
	"encoding/json"
	"time"
)

// Character is a player's persona
type Character struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	Name               string    `json:"name"`
	Slug               string    `json:"slug"`
	Title              *string   `json:"title,omitempty"`
	Description        *string   `json:"description,omitempty"`
	PortraitURL        *string   `json:"portraitUrl,omitempty"`
	WorldAnvilBlockID  *string   `json:"worldAnvilBlockId,omitempty"`
	WorldAnvilWorldID  *string   `json:"worldAnvilWorldId,omitempty"`
	SyncWithWorldAnvil bool      `json:"syncWithWorldAnvil"`
	Sheets             []*Sheet  `json:"sheets,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type CharacterInput struct {
	Name               *string `json:"name" validate:"omitempty,max=100"`
	Title              *string `json:"title" validate:"omitempty,max=200"`
	Description        *string `json:"description"`
	PortraitURL        *string `json:"portrait_url" validate:"omitempty,url"`
	SyncWithWorldAnvil *bool   `json:"sync_with_worldanvil"`
	WorldAnvilWorldID  *string `json:"worldanvil_world_id"`
	UserID             *string `json:"user_id"`
}

// Sheet is a character's stat block, backed by a WorldAnvil block
type Sheet struct {
	ID                string          `json:"id"`
	CharacterID       string          `json:"characterId"`
	RpgSystemID       *string         `json:"rpgSystemId,omitempty"`
	WorldAnvilBlockID string          `json:"worldAnvilBlockId"`
	Title             string          `json:"title"`
	Description       *string         `json:"description,omitempty"`
	Data              json.RawMessage `json:"data,omitempty"`
	IsActive          bool            `json:"isActive"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

type SheetInput struct {
	WorldAnvilBlockID *string         `json:"worldanvilBlockId"`
	RpgSystemID       *string         `json:"rpgSystemId"`
	Title             *string         `json:"title" validate:"omitempty,max=200"`
	Description       *string         `json:"description"`
	Data              json.RawMessage `json:"data"`
	IsActive          *bool           `json:"isActive"`
}

// RpgSystem is a tabletop ruleset and its community channels
type RpgSystem struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Slug                string    `json:"slug"`
	Description         *string   `json:"description,omitempty"`
	WorldAnvilSystemID  *string   `json:"worldAnvilSystemId,omitempty"`
	DiscordRoleID       *string   `json:"discordRoleId,omitempty"`
	DiscordChatChannel  *string   `json:"discordChatChannelId,omitempty"`
	DiscordForumChannel *string   `json:"discordForumChannelId,omitempty"`
	DiscordVoiceChannel *string   `json:"discordVoiceChannelId,omitempty"`
	DiscordThreadID     *string   `json:"discordThreadId,omitempty"`
	DiscordPostID       *string   `json:"discordPostId,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type RpgSystemInput struct {
	Title               *string `json:"title" validate:"omitempty,max=200"`
	Slug                *string `json:"slug" validate:"omitempty,max=200"`
	Description         *string `json:"description"`
	WorldAnvilSystemID  *string `json:"worldanvil_system_id"`
	DiscordRoleID       *string `json:"discord_role_id"`
	DiscordChatChannel  *string `json:"discord_chat_channel_id"`
	DiscordForumChannel *string `json:"discord_forum_channel_id"`
	DiscordVoiceChannel *string `json:"discord_voice_channel_id"`
	DiscordThreadID     *string `json:"discord_thread_id"`
	DiscordPostID       *string `json:"discord_post_id"`
}
