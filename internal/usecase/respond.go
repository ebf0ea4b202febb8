package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"people-partner/internal/category"
	"people-partner/internal/domain"
)

const (
	DefaultModel           = "claude-3-haiku-20240307"
	defaultHistoryWindow   = 6
	defaultMaxMessage      = 4000
	defaultMaxOutputTokens = 1024
	defaultProviderTimeout = 30 * time.Second
)

// DefaultFallbackReply is returned in place of a model answer when the
// provider call fails.
const DefaultFallbackReply = "I apologize, but I encountered an error while processing your request. " +
	"Please try again in a moment."

type Provider interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// SessionStore is the subset of the session repository the proxy needs.
type SessionStore interface {
	History(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
	Append(ctx context.Context, sessionID string, turns ...domain.Turn) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// Options tunes the proxy. Zero values select the defaults.
type Options struct {
	Model            string
	MaxOutputTokens  int
	HistoryWindow    int
	MaxMessageLength int
	ProviderTimeout  time.Duration
	FallbackReply    string
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Model) == "" {
		o.Model = DefaultModel
	}
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = defaultMaxOutputTokens
	}
	if o.HistoryWindow <= 0 {
		o.HistoryWindow = defaultHistoryWindow
	}
	if o.MaxMessageLength <= 0 {
		o.MaxMessageLength = defaultMaxMessage
	}
	if o.ProviderTimeout <= 0 {
		o.ProviderTimeout = defaultProviderTimeout
	}
	if strings.TrimSpace(o.FallbackReply) == "" {
		o.FallbackReply = DefaultFallbackReply
	}
	return o
}

// ChatService is the category-scoped conversational proxy.
type ChatService struct {
	provider Provider
	store    SessionStore
	logger   *slog.Logger
	opts     Options
	stats    *Analytics
	now      func() time.Time
}

type RespondInput struct {
	Category  string
	Message   string
	SessionID string
}

// Result is the outcome of a Respond call. Failure is set when Text is the
// fallback reply rather than model output.
type Result struct {
	Text      string
	Category  category.Category
	SessionID string
	Failure   *Error
}

func (r Result) Fallback() bool {
	return r.Failure != nil
}

func NewChatService(p Provider, s SessionStore, logger *slog.Logger, opts Options) (*ChatService, error) {
	if p == nil {
		return nil, errors.New("usecase: provider must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		provider: p,
		store:    s,
		logger:   logger,
		opts:     opts.withDefaults(),
		stats:    NewAnalytics(time.Now()),
		now:      time.Now,
	}, nil
}

// Respond answers one message. The returned error is non-nil only for input
// validation and session store read failures. Provider failures come back as
// a Result carrying the fallback reply and the classified failure.
func (s *ChatService) Respond(ctx context.Context, in RespondInput) (Result, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return Result{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if len(message) > s.opts.MaxMessageLength {
		return Result{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}

	cat := category.Resolve(in.Category)
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}
	s.stats.Record(cat)

	history, err := s.store.History(ctx, sessionID, s.opts.HistoryWindow)
	if err != nil {
		return Result{}, newError(ErrorInternal, "session_history_error", err)
	}

	req := buildCompletionRequest(s.opts, cat, history, message)
	asked := s.now()

	callCtx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	text, err := s.provider.Complete(callCtx, req)
	cancel()
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyReply
	}
	if err != nil {
		failure := classifyProviderError(callCtx, err)
		s.logger.ErrorContext(ctx, "provider call failed",
			"session_id", sessionID,
			"category", cat.Key(),
			"code", failure.Code,
			"reason", failure.Reason,
			"err", err,
		)
		return Result{
			Text:      s.opts.FallbackReply,
			Category:  cat,
			SessionID: sessionID,
			Failure:   failure,
		}, nil
	}

	text = strings.TrimSpace(text)
	turns := []domain.Turn{
		domain.NewUserTurn(message, cat.Key(), asked),
		domain.NewAssistantTurn(text, cat.Key(), s.now()),
	}
	if err := s.store.Append(ctx, sessionID, turns...); err != nil {
		s.logger.ErrorContext(ctx, "failed to append session turns",
			"session_id", sessionID,
			"category", cat.Key(),
			"err", err,
		)
	}

	return Result{
		Text:      text,
		Category:  cat,
		SessionID: sessionID,
	}, nil
}

// Stats reports usage counters since the service started.
func (s *ChatService) Stats() AnalyticsSnapshot {
	return s.stats.Snapshot(s.now())
}

var errEmptyReply = errors.New("usecase: provider returned an empty reply")

func classifyProviderError(callCtx context.Context, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return newError(ErrorTimeout, "provider_timeout", err)
	}
	if errors.Is(err, errEmptyReply) {
		return newError(ErrorUpstream, "provider_empty_response", err)
	}
	if status, ok := upstreamStatusCode(err); ok {
		switch {
		case status == http.StatusTooManyRequests:
			return newError(ErrorRateLimited, "provider_rate_limited", err)
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return newError(ErrorUpstream, "provider_auth_error", err)
		}
	}
	return newError(ErrorUpstream, "provider_error", err)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
