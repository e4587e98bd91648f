package worldanvil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lborres/fumble/core"
	"github.com/lborres/fumble/pkg/metrics"
	"github.com/tidwall/gjson"
)

const DefaultAPIBase = "https://www.worldanvil.com/api/v1"

type ClientConfig struct {
	APIBase    string
	AppKey     string
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// Client calls the WorldAnvil REST API on behalf of a user token
type Client struct {
	apiBase string
	appKey  string
	http    *http.Client
	metrics *metrics.Metrics
}

var _ core.WorldAnvilAPI = (*Client)(nil)

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.AppKey == "" {
		return nil, fmt.Errorf("%w: world anvil application key is required", core.ErrIntegrationNotConfigured)
	}
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{apiBase: apiBase, appKey: cfg.AppKey, http: httpClient, metrics: cfg.Metrics}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, body any) (data []byte, err error) {
	defer func() { c.metrics.Upstream("worldanvil", err) }()

	endpoint := c.apiBase + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	setHeaders(req, c.appKey, token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("world anvil request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, core.ErrUpstreamNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %w: world anvil %s %s returned %d", core.ErrUpstream, core.ErrUpstreamUnauthorized, method, path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg := gjson.GetBytes(data, "error").String()
		return nil, fmt.Errorf("%w: world anvil %s %s returned %d %s", core.ErrUpstream, method, path, resp.StatusCode, msg)
	}
	return data, nil
}

func setHeaders(req *http.Request, appKey, token string) {
	req.Header.Set("x-application-key", appKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
}

func (c *Client) Identity(ctx context.Context, token string) (*core.WorldAnvilIdentity, error) {
	data, err := c.do(ctx, http.MethodGet, "/identity", nil, token, nil)
	if err != nil {
		return nil, err
	}
	return parseIdentity(data)
}

func parseIdentity(data []byte) (*core.WorldAnvilIdentity, error) {
	res := gjson.ParseBytes(data)
	id := res.Get("id").String()
	if id == "" {
		return nil, core.ErrMissingProfileID
	}
	return &core.WorldAnvilIdentity{ID: id, Username: res.Get("username").String()}, nil
}

func (c *Client) Worlds(ctx context.Context, token, userID string) ([]core.WorldAnvilWorld, error) {
	data, err := c.do(ctx, http.MethodPost, "/user-worlds", url.Values{"id": {userID}}, token, map[string]any{})
	if err != nil {
		return nil, err
	}

	worlds := []core.WorldAnvilWorld{}
	gjson.GetBytes(data, "entities").ForEach(func(_, w gjson.Result) bool {
		worlds = append(worlds, core.WorldAnvilWorld{
			ID:    w.Get("id").String(),
			Title: w.Get("title").String(),
			URL:   w.Get("url").String(),
		})
		return true
	})
	return worlds, nil
}

func (c *Client) World(ctx context.Context, token, id string) (*core.WorldAnvilWorld, error) {
	data, err := c.do(ctx, http.MethodGet, "/world", url.Values{"id": {id}, "granularity": {"1"}}, token, nil)
	if err != nil {
		return nil, err
	}
	res := gjson.ParseBytes(data)
	return &core.WorldAnvilWorld{
		ID:    res.Get("id").String(),
		Title: res.Get("title").String(),
		URL:   res.Get("url").String(),
	}, nil
}

func (c *Client) Block(ctx context.Context, token, id string) (*core.WorldAnvilBlock, error) {
	data, err := c.do(ctx, http.MethodGet, "/block", url.Values{"id": {id}, "granularity": {"1"}}, token, nil)
	if err != nil {
		return nil, err
	}
	return parseBlock(data), nil
}

func parseBlock(data []byte) *core.WorldAnvilBlock {
	res := gjson.ParseBytes(data)
	block := &core.WorldAnvilBlock{
		ID:       res.Get("id").String(),
		Title:    res.Get("title").String(),
		WorldID:  res.Get("world.id").String(),
		FolderID: res.Get("folder.id").String(),
	}
	if fields, ok := res.Get("fields").Value().(map[string]any); ok {
		block.Fields = fields
	}
	return block
}

func blockBody(input core.WorldAnvilBlockInput) map[string]any {
	body := map[string]any{}
	if input.Title != "" {
		body["title"] = input.Title
	}
	if input.WorldID != "" {
		body["world"] = map[string]string{"id": input.WorldID}
	}
	if input.FolderID != "" {
		body["folder"] = map[string]string{"id": input.FolderID}
	}
	if input.Template != "" {
		body["template"] = input.Template
	}
	if input.Content != "" {
		body["content"] = input.Content
	}
	return body
}

func (c *Client) CreateBlock(ctx context.Context, token string, input core.WorldAnvilBlockInput) (*core.WorldAnvilBlock, error) {
	data, err := c.do(ctx, http.MethodPut, "/block", nil, token, blockBody(input))
	if err != nil {
		return nil, err
	}
	block := parseBlock(data)
	if block.ID == "" {
		return nil, fmt.Errorf("%w: world anvil returned no block id", core.ErrUpstream)
	}
	if block.Title == "" {
		block.Title = input.Title
	}
	return block, nil
}

func (c *Client) UpdateBlock(ctx context.Context, token, id string, input core.WorldAnvilBlockInput) (*core.WorldAnvilBlock, error) {
	data, err := c.do(ctx, http.MethodPatch, "/block", url.Values{"id": {id}}, token, blockBody(input))
	if err != nil {
		return nil, err
	}
	block := parseBlock(data)
	if block.ID == "" {
		block.ID = id
	}
	return block, nil
}

func (c *Client) DeleteBlock(ctx context.Context, token, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/block", url.Values{"id": {id}}, token, nil)
	return err
}

func (c *Client) BlockFolders(ctx context.Context, token, worldID string) ([]core.WorldAnvilBlockFolder, error) {
	data, err := c.do(ctx, http.MethodPost, "/world-blockfolders", url.Values{"id": {worldID}}, token, map[string]any{})
	if err != nil {
		return nil, err
	}

	folders := []core.WorldAnvilBlockFolder{}
	gjson.GetBytes(data, "entities").ForEach(func(_, f gjson.Result) bool {
		folders = append(folders, core.WorldAnvilBlockFolder{
			ID:    f.Get("id").String(),
			Title: f.Get("title").String(),
		})
		return true
	})
	return folders, nil
}
