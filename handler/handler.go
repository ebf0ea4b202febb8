// Package handler serves the HTTP router from AWS Lambda behind API Gateway.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
)

const invalidEventBody = `{"error":"Invalid request","code":"INVALID_INPUT"}`

type Handler struct {
	adapter *httpadapter.HandlerAdapter
	logger  *slog.Logger
}

func NewHandler(next http.Handler, logger *slog.Logger) (*Handler, error) {
	if next == nil {
		return nil, errors.New("handler: http handler must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{adapter: httpadapter.New(next), logger: logger}, nil
}

// Handle serves one API Gateway proxy request through the wrapped router. An
// event that cannot be turned into an HTTP request gets a 400.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp, err := h.adapter.ProxyWithContext(ctx, event)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to proxy API Gateway event",
			"method", event.HTTPMethod,
			"path", event.Path,
			"err", err,
		)
		return events.APIGatewayProxyResponse{
			StatusCode:        http.StatusBadRequest,
			MultiValueHeaders: map[string][]string{"Content-Type": {"application/json"}},
			Body:              invalidEventBody,
		}, nil
	}
	return resp, nil
}
