package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"people-partner/internal/api"
	"people-partner/internal/domain"
	"people-partner/internal/repository"
	"people-partner/internal/usecase"
)

type stubProvider struct {
	answer string
	err    error
}

func (s *stubProvider) Complete(context.Context, domain.CompletionRequest) (string, error) {
	return s.answer, s.err
}

func makeEvent(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func newRouterHandler(t *testing.T, p usecase.Provider) (*Handler, *repository.MemoryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemoryStore()
	svc, err := usecase.NewChatService(p, store, logger, usecase.Options{})
	require.NoError(t, err)
	apiHandler, err := api.NewHandler(svc, logger, api.Options{Version: "1.0.0"})
	require.NoError(t, err)
	h, err := NewHandler(api.NewRouter(apiHandler, []string{"*"}), logger)
	require.NoError(t, err)
	return h, store
}

func header(resp events.APIGatewayProxyResponse, name string) string {
	if vs := resp.MultiValueHeaders[name]; len(vs) > 0 {
		return vs[0]
	}
	return resp.Headers[name]
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil, nil)
	require.Error(t, err)
}

func TestHandle_ChatRoundTrip(t *testing.T) {
	h, store := newRouterHandler(t, &stubProvider{answer: "Define outcomes before duties."})

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/chat",
		`{"message":"Draft a JD for a staff engineer","category":"job_descriptions","session_id":"conv-1"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, header(resp, "Content-Type"), "application/json")
	require.NotEmpty(t, header(resp, "X-Correlation-Id"))

	out := parseBody[map[string]interface{}](t, resp.Body)
	require.Equal(t, "Define outcomes before duties.", out["response"])
	require.Equal(t, "job_descriptions", out["category"])
	require.Equal(t, "conv-1", out["session_id"])

	turns, err := store.History(context.Background(), "conv-1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
}

func TestHandle_Base64Body(t *testing.T) {
	h, _ := newRouterHandler(t, &stubProvider{answer: "ok"})
	event := makeEvent(http.MethodPost, "/chat", base64.StdEncoding.EncodeToString([]byte(`{"message":"hi"}`)))
	event.IsBase64Encoded = true

	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandle_InvalidBase64Body(t *testing.T) {
	h, _ := newRouterHandler(t, &stubProvider{answer: "ok"})
	event := makeEvent(http.MethodPost, "/chat", "%%%")
	event.IsBase64Encoded = true

	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, string(usecase.ErrorInvalidInput), parseBody[map[string]string](t, resp.Body)["code"])
}

func TestHandle_EmptyMessageIs400(t *testing.T) {
	h, store := newRouterHandler(t, &stubProvider{answer: "ok"})
	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/chat", `{"message":""}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := parseBody[map[string]string](t, resp.Body)
	require.Equal(t, string(usecase.ErrorInvalidInput), out["code"])
	require.Zero(t, store.Len())
}

func TestHandle_GetCategories(t *testing.T) {
	h, _ := newRouterHandler(t, &stubProvider{})
	resp, err := h.Handle(context.Background(), makeEvent(http.MethodGet, "/categories", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := parseBody[map[string]string](t, resp.Body)
	require.Contains(t, out, "leadership_coaching")
}

func TestHandle_UnknownRouteIs404(t *testing.T) {
	h, _ := newRouterHandler(t, &stubProvider{})
	resp, err := h.Handle(context.Background(), makeEvent(http.MethodGet, "/nope", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	h, _ := newRouterHandler(t, &stubProvider{answer: "ok"})
	event := makeEvent(http.MethodGet, "/health", "")
	event.Headers["x-correlation-id"] = "corr-123"

	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", header(resp, "X-Correlation-Id"))
}

func TestHandle_PassesQueryAndBodyToRouter(t *testing.T) {
	var gotQuery, gotBody, gotMethod string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.Query().Get("a")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusAccepted)
	})
	h, err := NewHandler(next, nil)
	require.NoError(t, err)

	event := makeEvent(http.MethodPost, "/analytics", `{"k":"v"}`)
	event.QueryStringParameters = map[string]string{"a": "1"}
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "1", gotQuery)
	require.Equal(t, `{"k":"v"}`, gotBody)
}
