package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/ryanbastic/go-nftcollection/internal/notify"
)

// --- Huma Input/Output types ---

type RegisterWebhookBody struct {
	Name     string   `json:"name" doc:"Subscriber name" required:"true" minLength:"1"`
	Endpoint string   `json:"endpoint" doc:"JSON-RPC endpoint URL" required:"true" minLength:"1"`
	Events   []string `json:"events,omitempty" doc:"Events to receive; all when empty"`
}

type RegisterWebhookInput struct {
	Body RegisterWebhookBody
}

type WebhookResponse struct {
	ID        uuid.UUID `json:"id" doc:"Subscriber UUID"`
	Name      string    `json:"name"`
	Endpoint  string    `json:"endpoint"`
	Events    []string  `json:"events"`
	CreatedAt time.Time `json:"created_at"`
}

type RegisterWebhookOutput struct {
	Body WebhookResponse
}

type ListWebhooksInput struct{}

type ListWebhooksOutput struct {
	Body []WebhookResponse
}

type WebhookIDInput struct {
	ID string `path:"id" doc:"Subscriber UUID" format:"uuid"`
}

type GetWebhookOutput struct {
	Body WebhookResponse
}

// --- Handler ---

type WebhookHandler struct {
	registry *notify.Registry
	logger   *slog.Logger
}

func NewWebhookHandler(registry *notify.Registry, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{registry: registry, logger: logger}
}

func registerWebhookRoutes(api huma.API, h *WebhookHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "register-webhook",
		Method:        http.MethodPost,
		Path:          "/v1/webhooks",
		Summary:       "Subscribe to collection events",
		Tags:          []string{"webhooks"},
		DefaultStatus: http.StatusCreated,
	}, h.RegisterWebhook)

	huma.Register(api, huma.Operation{
		OperationID: "list-webhooks",
		Method:      http.MethodGet,
		Path:        "/v1/webhooks",
		Summary:     "List subscribers",
		Tags:        []string{"webhooks"},
	}, h.ListWebhooks)

	huma.Register(api, huma.Operation{
		OperationID: "get-webhook",
		Method:      http.MethodGet,
		Path:        "/v1/webhooks/{id}",
		Summary:     "Get a subscriber by ID",
		Tags:        []string{"webhooks"},
	}, h.GetWebhook)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-webhook",
		Method:        http.MethodDelete,
		Path:          "/v1/webhooks/{id}",
		Summary:       "Unsubscribe",
		Tags:          []string{"webhooks"},
		DefaultStatus: http.StatusNoContent,
	}, h.DeleteWebhook)
}

func (h *WebhookHandler) RegisterWebhook(ctx context.Context, input *RegisterWebhookInput) (*RegisterWebhookOutput, error) {
	s := &notify.Subscriber{
		Name:     input.Body.Name,
		Endpoint: input.Body.Endpoint,
		Events:   input.Body.Events,
	}
	if err := h.registry.Register(s); err != nil {
		if errors.Is(err, notify.ErrInvalidEndpoint) || errors.Is(err, notify.ErrUnknownEvent) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return nil, err
	}

	h.logger.Info("webhook registered", "id", s.ID, "name", s.Name, "endpoint", s.Endpoint, "events", s.Events)
	return &RegisterWebhookOutput{Body: webhookToResponse(s)}, nil
}

func (h *WebhookHandler) ListWebhooks(ctx context.Context, input *ListWebhooksInput) (*ListWebhooksOutput, error) {
	subs := h.registry.List()
	resp := make([]WebhookResponse, len(subs))
	for i, s := range subs {
		resp[i] = webhookToResponse(s)
	}
	return &ListWebhooksOutput{Body: resp}, nil
}

func (h *WebhookHandler) GetWebhook(ctx context.Context, input *WebhookIDInput) (*GetWebhookOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid id")
	}
	s, err := h.registry.Get(id)
	if err != nil {
		return nil, huma.Error404NotFound("webhook not found")
	}
	return &GetWebhookOutput{Body: webhookToResponse(s)}, nil
}

func (h *WebhookHandler) DeleteWebhook(ctx context.Context, input *WebhookIDInput) (*struct{}, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid id")
	}
	if err := h.registry.Delete(id); err != nil {
		return nil, huma.Error404NotFound("webhook not found")
	}
	h.logger.Info("webhook deleted", "id", id)
	return nil, nil
}

func webhookToResponse(s *notify.Subscriber) WebhookResponse {
	return WebhookResponse{
		ID:        s.ID,
		Name:      s.Name,
		Endpoint:  s.Endpoint,
		Events:    s.Events,
		CreatedAt: s.CreatedAt,
	}
}
