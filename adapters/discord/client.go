package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/lborres/fumble/core"
	"github.com/lborres/fumble/pkg/cache"
	"github.com/lborres/fumble/pkg/metrics"
	"golang.org/x/time/rate"
)

const DefaultBotAPIBase = "https://discord.com/api/v10"

// Channel types
const (
	ChannelText          = 0
	ChannelVoice         = 2
	ChannelCategory      = 4
	ChannelAnnouncThread = 10
	ChannelPublicThread  = 11
	ChannelPrivateThread = 12
	ChannelForum         = 15
)

type ClientConfig struct {
	BotToken   string
	GuildID    string
	APIBase    string
	HTTPClient *http.Client
	// RequestsPerSecond caps outbound calls; Discord rate limits bots per route.
	RequestsPerSecond float64
	RolesTTL          time.Duration
	Metrics           *metrics.Metrics
}

// Client reads guild state with the web bot token
type Client struct {
	token   string
	guildID string
	apiBase string
	http    *http.Client
	limiter *rate.Limiter
	roles   *cache.InMemoryCache[[]core.GuildRole]
	metrics *metrics.Metrics
}

var _ core.GuildDirectory = (*Client)(nil)

// GuildMember is the subset of a guild member fumble uses
type GuildMember struct {
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Nick     *string  `json:"nick"`
	Roles    []string `json:"roles"`
	JoinedAt string   `json:"joined_at"`
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BotToken == "" || cfg.GuildID == "" {
		return nil, fmt.Errorf("%w: discord bot token and server id are required", core.ErrIntegrationNotConfigured)
	}

	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = DefaultBotAPIBase
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	ttl := cfg.RolesTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Client{
		token:   cfg.BotToken,
		guildID: cfg.GuildID,
		apiBase: apiBase,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		roles:   cache.NewInMemoryCache[[]core.GuildRole](core.CacheConfig{TTL: ttl, MaxSize: 4}),
		metrics: cfg.Metrics,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, out any) (err error) {
	defer func() { c.metrics.Upstream("discord", err) }()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("discord request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return core.ErrUpstreamNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: discord %s returned %d", core.ErrUpstream, path, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// Member returns the guild member, or nil when the user is not in the guild.
func (c *Client) Member(ctx context.Context, userID string) (*GuildMember, error) {
	var m GuildMember
	err := c.get(ctx, "/guilds/"+c.guildID+"/members/"+userID, &m)
	if errors.Is(err, core.ErrUpstreamNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Roles returns the guild roles, highest position first.
func (c *Client) Roles(ctx context.Context) ([]core.GuildRole, error) {
	if roles, err := c.roles.Get("roles"); err == nil {
		return roles, nil
	}

	var roles []core.GuildRole
	if err := c.get(ctx, "/guilds/"+c.guildID+"/roles", &roles); err != nil {
		return nil, err
	}

	for i := range roles {
		perms := ParsePermissions(roles[i].Permissions)
		roles[i].IsAdmin = IsAdminPermission(perms)
		roles[i].IsModerator = IsModeratorPermission(perms)
	}
	sort.SliceStable(roles, func(i, j int) bool {
		return roles[i].Position > roles[j].Position
	})

	_ = c.roles.Set("roles", roles)
	return roles, nil
}

// Channels returns the guild channels grouped by kind, each sorted by position.
func (c *Client) Channels(ctx context.Context) (*core.GuildChannels, error) {
	var raw []struct {
		ID       string  `json:"id"`
		Name     string  `json:"name"`
		Type     int     `json:"type"`
		Position int     `json:"position"`
		ParentID *string `json:"parent_id"`
		Topic    *string `json:"topic"`
	}
	if err := c.get(ctx, "/guilds/"+c.guildID+"/channels", &raw); err != nil {
		return nil, err
	}

	channels := make([]core.GuildChannel, 0, len(raw))
	for _, ch := range raw {
		channels = append(channels, core.GuildChannel{
			ID:       ch.ID,
			Name:     ch.Name,
			Type:     ch.Type,
			Position: ch.Position,
			ParentID: ch.ParentID,
			Topic:    ch.Topic,
		})
	}

	sort.SliceStable(channels, func(i, j int) bool {
		return channels[i].Position < channels[j].Position
	})

	grouped := &core.GuildChannels{
		Text:       []core.GuildChannel{},
		Voice:      []core.GuildChannel{},
		Categories: []core.GuildChannel{},
		Forums:     []core.GuildChannel{},
		Threads:    []core.GuildChannel{},
	}
	for _, ch := range channels {
		switch ch.Type {
		case ChannelText:
			grouped.Text = append(grouped.Text, ch)
		case ChannelVoice:
			grouped.Voice = append(grouped.Voice, ch)
		case ChannelCategory:
			grouped.Categories = append(grouped.Categories, ch)
		case ChannelForum:
			grouped.Forums = append(grouped.Forums, ch)
		case ChannelAnnouncThread, ChannelPublicThread, ChannelPrivateThread:
			grouped.Threads = append(grouped.Threads, ch)
		}
	}
	return grouped, nil
}

// MemberRoles resolves the role names of a guild member. Non-members have none.
func (c *Client) MemberRoles(ctx context.Context, userID string) ([]string, error) {
	member, err := c.Member(ctx, userID)
	if err != nil || member == nil {
		return nil, err
	}

	roles, err := c.Roles(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(roles))
	for _, r := range roles {
		names[r.ID] = r.Name
	}

	out := make([]string, 0, len(member.Roles))
	for _, id := range member.Roles {
		if name, ok := names[id]; ok {
			out = append(out, name)
		}
	}
	return out, nil
}
