package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"people-partner/internal/category"
	"people-partner/internal/usecase"
)

const (
	ServiceName = "Your AI People Partner"

	defaultMaxBodyBytes = 1 << 20

	msgEmptyMessage    = "Please describe your strategic challenge"
	msgTooLong         = "Your message is too long. Please shorten it and try again"
	msgBodyTooLarge    = "Request body too large"
	msgInternal        = "Unable to process consultation request"
	msgRateLimited     = "The advisory service is busy. Please try again shortly"
	msgUpstreamTimeout = "The advisory service took too long to respond"
	msgUpstream        = "The advisory service is temporarily unavailable"
)

// ChatResponder is the proxy behaviour the HTTP layer depends on.
type ChatResponder interface {
	Respond(ctx context.Context, in usecase.RespondInput) (usecase.Result, error)
	Stats() usecase.AnalyticsSnapshot
}

type Options struct {
	Version string
	// ErrorFallback surfaces provider failures as 429/502/504 instead of a
	// 200 carrying the fallback reply.
	ErrorFallback bool
	MaxBodyBytes  int64
	// Demo serves the browser demo page on / and /demo when set.
	Demo http.Handler
}

type Handler struct {
	chat   ChatResponder
	logger *slog.Logger
	opts   Options
	now    func() time.Time
}

func NewHandler(chat ChatResponder, logger *slog.Logger, opts Options) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("api: chat responder must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Handler{chat: chat, logger: logger, opts: opts, now: time.Now}, nil
}

// NewRouter builds the full middleware stack around h.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(CorrelationID)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(CORS(allowedOrigins))

	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Get("/categories", h.categories)
	r.Get("/analytics", h.analytics)
	r.Post("/chat", h.chatHandler)
	if h.opts.Demo != nil {
		r.Get("/", h.opts.Demo.ServeHTTP)
		r.Get("/demo", h.opts.Demo.ServeHTTP)
	}
}

type healthResponse struct {
	Status             string    `json:"status"`
	Service            string    `json:"service"`
	Timestamp          time.Time `json:"timestamp"`
	Version            string    `json:"version,omitempty"`
	UptimeSeconds      float64   `json:"uptime_seconds"`
	TotalConsultations int       `json:"total_consultations"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	stats := h.chat.Stats()
	JSON(w, http.StatusOK, healthResponse{
		Status:             "healthy",
		Service:            ServiceName,
		Timestamp:          h.now().UTC(),
		Version:            h.opts.Version,
		UptimeSeconds:      stats.UptimeSeconds,
		TotalConsultations: stats.TotalQueries,
	})
}

func (h *Handler) categories(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, category.Labels())
}

func (h *Handler) analytics(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.chat.Stats())
}

type chatRequest struct {
	Message   string `json:"message"`
	Category  string `json:"category"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response       string    `json:"response"`
	Category       string    `json:"category"`
	SessionID      string    `json:"session_id"`
	Timestamp      time.Time `json:"timestamp"`
	SessionQueries int       `json:"session_queries"`
	Fallback       bool      `json:"fallback,omitempty"`
}

func (h *Handler) chatHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("correlation_id", CorrelationIDFrom(ctx))

	var req chatRequest
	body := http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge, usecase.ErrorInvalidInput)
			return
		}
		logger.WarnContext(ctx, "failed to decode chat request", "err", err)
		Error(w, http.StatusInternalServerError, msgInternal, usecase.ErrorInternal)
		return
	}

	res, err := h.chat.Respond(ctx, usecase.RespondInput{
		Category:  req.Category,
		Message:   req.Message,
		SessionID: req.SessionID,
	})
	if err != nil {
		h.writeRespondError(ctx, w, logger, err)
		return
	}

	if res.Fallback() && h.opts.ErrorFallback {
		status, message := upstreamFailureStatus(res.Failure.Code)
		Error(w, status, message, res.Failure.Code)
		return
	}

	JSON(w, http.StatusOK, chatResponse{
		Response:       res.Text,
		Category:       res.Category.Key(),
		SessionID:      res.SessionID,
		Timestamp:      h.now().UTC(),
		SessionQueries: h.chat.Stats().TotalQueries,
		Fallback:       res.Fallback(),
	})
}

func (h *Handler) writeRespondError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	var ue *usecase.Error
	if errors.As(err, &ue) && ue.Code == usecase.ErrorInvalidInput {
		message := msgEmptyMessage
		if ue.Reason == "message_too_long" {
			message = msgTooLong
		}
		Error(w, http.StatusBadRequest, message, ue.Code)
		return
	}
	logger.ErrorContext(ctx, "chat request failed", "code", usecase.CodeOf(err), "err", err)
	Error(w, http.StatusInternalServerError, msgInternal, usecase.ErrorInternal)
}

func upstreamFailureStatus(code usecase.ErrorCode) (int, string) {
	switch code {
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, msgRateLimited
	case usecase.ErrorTimeout:
		return http.StatusGatewayTimeout, msgUpstreamTimeout
	default:
		return http.StatusBadGateway, msgUpstream
	}
}
