package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ryanbastic/go-nftcollection/internal/chain"
	"github.com/ryanbastic/go-nftcollection/internal/circuitbreaker"
	"github.com/ryanbastic/go-nftcollection/internal/collection"
	"github.com/ryanbastic/go-nftcollection/internal/content"
	"github.com/ryanbastic/go-nftcollection/internal/minter"
	"github.com/ryanbastic/go-nftcollection/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode JSON response", "error", err)
	}
}

// problem maps service errors to HTTP problem responses. Unknown errors are
// logged and reported as 500 without detail.
func problem(logger *slog.Logger, op string, err error) error {
	var exit *chain.ExitError
	switch {
	case errors.Is(err, collection.ErrNotDeployed), errors.Is(err, storage.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, storage.ErrInvalidCursor):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, content.ErrEmptyName),
		errors.Is(err, content.ErrEmptyDescription),
		errors.Is(err, content.ErrValueTooLarge),
		errors.Is(err, collection.ErrIndexOutOfRange),
		errors.Is(err, collection.ErrValueTooLow),
		errors.Is(err, minter.ErrMintRejected):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return huma.Error503ServiceUnavailable("lite-server unavailable")
	case errors.As(err, &exit), errors.Is(err, minter.ErrDeployFailed):
		return huma.Error502BadGateway(err.Error())
	}
	logger.Error(op+" failed", "error", err)
	return huma.Error500InternalServerError("internal error")
}
