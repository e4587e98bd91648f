// Package openai validates user API keys and writes character descriptions
// with the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lborres/fumble/core"
	"github.com/lborres/fumble/pkg/metrics"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultModel = "gpt-4o"

	systemPrompt = "You are a creative writing assistant for a tabletop roleplaying community. " +
		"Write vivid, concise character descriptions of two or three paragraphs. " +
		"Do not invent game statistics."
)

type Config struct {
	BaseURL    string // optional, for compatible gateways and tests
	Model      string
	MaxTokens  int64
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// Writer implements core.DescriptionWriter. The API key is supplied per call so
// a user's own key can be used in place of the server key.
type Writer struct {
	cfg Config
}

var _ core.DescriptionWriter = (*Writer)(nil)

func NewWriter(cfg Config) *Writer {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 600
	}
	return &Writer{cfg: cfg}
}

func (w *Writer) client(apiKey string) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if w.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(w.cfg.BaseURL))
	}
	if w.cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(w.cfg.HTTPClient))
	}
	return openai.NewClient(opts...)
}

// ValidateKey lists models with the key; a 401 means the key is invalid.
func (w *Writer) ValidateKey(ctx context.Context, apiKey string) (err error) {
	defer func() { w.cfg.Metrics.Upstream("openai", err) }()

	if !strings.HasPrefix(apiKey, "sk-") {
		return fmt.Errorf("%w: openai keys start with sk-", core.ErrInvalidAPIKey)
	}

	client := w.client(apiKey)
	if _, err := client.Models.List(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

func (w *Writer) Describe(ctx context.Context, apiKey string, character *core.Character, prompt string) (text string, err error) {
	defer func() { w.cfg.Metrics.Upstream("openai", err) }()

	client := w.client(apiKey)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(w.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(character, prompt)),
		},
		MaxTokens:   openai.Int(w.cfg.MaxTokens),
		Temperature: openai.Float(0.8),
	})
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", core.ErrUpstream)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func userPrompt(c *core.Character, extra string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Describe the character %q.", c.Name)
	if c.Title != nil && *c.Title != "" {
		fmt.Fprintf(&b, "\nTitle: %s", *c.Title)
	}
	if c.Description != nil && *c.Description != "" {
		fmt.Fprintf(&b, "\nCurrent description: %s", *c.Description)
	}
	if extra = strings.TrimSpace(extra); extra != "" {
		fmt.Fprintf(&b, "\nAdditional direction: %s", extra)
	}
	return b.String()
}

func mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: openai rejected the key", core.ErrInvalidAPIKey)
		default:
			return fmt.Errorf("%w: openai returned %d", core.ErrUpstream, apiErr.StatusCode)
		}
	}
	return fmt.Errorf("%w: %v", core.ErrUpstream, err)
}
