package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"people-partner/internal/domain"
)

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("anthropic: no text content in response")

// tokenPayload is the JSON shape accepted from Parameter Store for the API key.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	Err        error
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("anthropic: unexpected status %d: %v", e.StatusCode, e.Err)
}

func (e *HTTPStatusError) Unwrap() error {
	return e.Err
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a focused Messages API client. The SDK client is built once the
// API key is known and rebuilt whenever the resolved key changes.
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	getter     Getter
	keyParam   string

	mu       sync.Mutex
	api      *anthropicsdk.Client
	builtFor string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAPIKey sets a static API key.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithKeyParameter resolves the API key from Parameter Store on every call.
// Caching belongs to the getter, so a rotated key is picked up once the
// getter's cache expires.
func WithKeyParameter(getter Getter, name string) Option {
	return func(c *Client) {
		c.getter = getter
		c.keyParam = strings.TrimSpace(name)
	}
}

// NewClient creates a Client. Exactly one of WithAPIKey or WithKeyParameter
// must supply the credentials.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiKey == "" && c.getter == nil {
		return nil, errors.New("anthropic: api key or key parameter getter must be set")
	}
	if c.apiKey == "" && c.keyParam == "" {
		return nil, errors.New("anthropic: key parameter name must not be empty")
	}
	return c, nil
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	return fetchAPIKeyFromParamStore(ctx, c.getter, c.keyParam)
}

// sdk returns the SDK client for the current key. A failed key lookup is
// retried on the next request. Retries of the upstream call itself are
// disabled; each request makes exactly one attempt.
func (c *Client) sdk(ctx context.Context) (*anthropicsdk.Client, error) {
	key, err := c.resolveAPIKey(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil && c.builtFor == key {
		return c.api, nil
	}
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if c.baseURL != "" {
		opts = append(opts, option.WithBaseURL(c.baseURL))
	}
	if c.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(c.httpClient))
	}
	api := anthropicsdk.NewClient(opts...)
	c.api = &api
	c.builtFor = key
	return c.api, nil
}

// Complete sends one Messages API request and returns the concatenated text
// blocks of the reply.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if strings.TrimSpace(req.Model) == "" {
		return "", errors.New("anthropic: model must not be empty")
	}
	if req.MaxTokens <= 0 {
		return "", errors.New("anthropic: max tokens must be positive")
	}
	if len(req.Messages) == 0 {
		return "", errors.New("anthropic: at least one message is required")
	}

	api, err := c.sdk(ctx)
	if err != nil {
		return "", err
	}

	params, err := buildParams(req)
	if err != nil {
		return "", err
	}

	msg, err := api.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropicsdk.Error
		if errors.As(err, &apiErr) {
			return "", &HTTPStatusError{StatusCode: apiErr.StatusCode, Err: err}
		}
		return "", fmt.Errorf("anthropic: request failed: %w", err)
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, ""))
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func buildParams(req domain.CompletionRequest) (anthropicsdk.MessageNewParams, error) {
	messages := make([]anthropicsdk.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := anthropicsdk.NewTextBlock(m.Content)
		switch m.Role {
		case domain.RoleUser:
			messages = append(messages, anthropicsdk.NewUserMessage(block))
		case domain.RoleAssistant:
			messages = append(messages, anthropicsdk.NewAssistantMessage(block))
		default:
			return anthropicsdk.MessageNewParams{}, fmt.Errorf("anthropic: unsupported role %q", m.Role)
		}
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  messages,
	}
	if system := strings.TrimSpace(req.System); system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}
	return params, nil
}

// fetchAPIKeyFromParamStore accepts either a raw key or a {"token": "..."}
// JSON document.
func fetchAPIKeyFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("anthropic: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("anthropic: key parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("anthropic: fetch key from paramstore: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		if raw == "" {
			return "", errors.New("anthropic: API key is empty")
		}
		return raw, nil
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("anthropic: unmarshal paramstore key value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", errors.New("anthropic: API key is empty")
	}
	return tp.Token, nil
}
