package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"people-partner/internal/domain"
)

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient()
	require.Error(t, err)
	require.Contains(t, err.Error(), "must be set")

	_, err = NewClient(WithKeyParameter(&fakeGetter{}, " "))
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be empty")
}

func TestNewClient_Valid(t *testing.T) {
	c, err := NewClient(WithAPIKey("sk-test"), WithBaseURL(" http://localhost:9999 "))
	require.NoError(t, err)
	require.Equal(t, "sk-test", c.apiKey)
	require.Equal(t, "http://localhost:9999", c.baseURL)
}

// ---------------------------------------------------------------------------
// fetchAPIKeyFromParamStore
// ---------------------------------------------------------------------------

// fakeGetter is a minimal paramstore.Getter stub for use within this package.
type fakeGetter struct {
	val    string
	err    error
	onCall func()
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	if f.onCall != nil {
		f.onCall()
	}
	return f.val, f.err
}

func TestFetchAPIKey_JSONToken(t *testing.T) {
	g := &fakeGetter{val: `{"token":"sk-from-json"}`}
	key, err := fetchAPIKeyFromParamStore(context.Background(), g, "/people-partner/anthropic-key")
	require.NoError(t, err)
	require.Equal(t, "sk-from-json", key)
}

func TestFetchAPIKey_PlainValue(t *testing.T) {
	g := &fakeGetter{val: "  sk-plain \n"}
	key, err := fetchAPIKeyFromParamStore(context.Background(), g, "/people-partner/anthropic-key")
	require.NoError(t, err)
	require.Equal(t, "sk-plain", key)
}

func TestFetchAPIKey_Errors(t *testing.T) {
	cases := []struct {
		name   string
		getter Getter
		param  string
		want   string
	}{
		{name: "missing token field", getter: &fakeGetter{val: `{"other":"value"}`}, param: "/p", want: "API key is empty"},
		{name: "malformed json", getter: &fakeGetter{val: `{"broken`}, param: "/p", want: "unmarshal"},
		{name: "getter error", getter: &fakeGetter{err: errors.New("ssm unavailable")}, param: "/p", want: "ssm unavailable"},
		{name: "empty value", getter: &fakeGetter{val: "   "}, param: "/p", want: "API key is empty"},
		{name: "nil getter", getter: nil, param: "/p", want: "nil"},
		{name: "empty name", getter: &fakeGetter{val: "sk"}, param: " ", want: "empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fetchAPIKeyFromParamStore(context.Background(), tc.getter, tc.param)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

// ---------------------------------------------------------------------------
// Client.Complete
// ---------------------------------------------------------------------------

type capturedRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	System    []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

const okBody = `{
	"id": "msg_01",
	"type": "message",
	"role": "assistant",
	"model": "claude-3-haiku-20240307",
	"content": [{"type": "text", "text": "Start with "}, {"type": "text", "text": "a structured loop."}],
	"stop_reason": "end_turn",
	"stop_sequence": null,
	"usage": {"input_tokens": 10, "output_tokens": 5}
}`

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	base := []Option{WithAPIKey("sk-test"), WithBaseURL(srv.URL), WithHTTPClient(srv.Client())}
	c, err := NewClient(append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func testRequest() domain.CompletionRequest {
	return domain.CompletionRequest{
		Model:     "claude-3-haiku-20240307",
		System:    "You are a People Partner.",
		MaxTokens: 1024,
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: "How do I plan headcount?"},
			{Role: domain.RoleAssistant, Content: "Start from the roadmap."},
			{Role: domain.RoleUser, Content: "And interviews?"},
		},
	}
}

func TestComplete_HappyPath(t *testing.T) {
	var got capturedRequest
	var apiKey, method, path string
	var decodeErr error
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		apiKey = r.Header.Get("X-Api-Key")
		decodeErr = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	text, err := c.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, "Start with a structured loop.", text)

	require.NoError(t, decodeErr)
	require.Equal(t, http.MethodPost, method)
	require.True(t, strings.HasSuffix(path, "/messages"), "path=%s", path)
	require.Equal(t, "sk-test", apiKey)
	require.Equal(t, "claude-3-haiku-20240307", got.Model)
	require.Equal(t, 1024, got.MaxTokens)
	require.Len(t, got.System, 1)
	require.Equal(t, "You are a People Partner.", got.System[0].Text)
	require.Len(t, got.Messages, 3)
	require.Equal(t, "user", got.Messages[0].Role)
	require.Equal(t, "assistant", got.Messages[1].Role)
	require.Equal(t, "And interviews?", got.Messages[2].Content[0].Text)
}

func TestComplete_StatusErrorIsTyped_NoRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Complete(context.Background(), testRequest())
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.HTTPStatusCode())
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestComplete_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_02","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Complete(context.Background(), testRequest())
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestComplete_ValidatesRequest(t *testing.T) {
	c, err := NewClient(WithAPIKey("sk-test"))
	require.NoError(t, err)

	req := testRequest()
	req.Model = ""
	_, err = c.Complete(context.Background(), req)
	require.ErrorContains(t, err, "model")

	req = testRequest()
	req.MaxTokens = 0
	_, err = c.Complete(context.Background(), req)
	require.ErrorContains(t, err, "max tokens")

	req = testRequest()
	req.Messages = nil
	_, err = c.Complete(context.Background(), req)
	require.ErrorContains(t, err, "message")
}

func TestBuildParams_RejectsUnknownRole(t *testing.T) {
	req := testRequest()
	req.Messages = append(req.Messages, domain.ChatMessage{Role: "system", Content: "x"})
	_, err := buildParams(req)
	require.ErrorContains(t, err, "unsupported role")
}

func TestComplete_KeyLookupRetriedAfterFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	calls := 0
	g := &fakeGetter{err: errors.New("temporary ssm failure")}
	g.onCall = func() { calls++ }
	c, err := NewClient(WithKeyParameter(g, "/people-partner/anthropic-key"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), testRequest())
	require.ErrorContains(t, err, "temporary ssm failure")

	g.err = nil
	g.val = `{"token":"sk-from-ssm"}`
	text, err := c.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	require.NotEmpty(t, text)

	_, err = c.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestComplete_PicksUpRotatedKey(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	g := &fakeGetter{val: `{"token":"sk-old"}`}
	c, err := NewClient(WithKeyParameter(g, "/people-partner/anthropic-key"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	first := c.api

	_, err = c.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	require.Same(t, first, c.api)

	g.val = `{"token":"sk-new"}`
	_, err = c.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	require.NotSame(t, first, c.api)
	require.Equal(t, []string{"sk-old", "sk-old", "sk-new"}, seen)
}
