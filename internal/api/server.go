package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ryanbastic/go-nftcollection/internal/chain"
	"github.com/ryanbastic/go-nftcollection/internal/metrics"
	"github.com/ryanbastic/go-nftcollection/internal/minter"
	"github.com/ryanbastic/go-nftcollection/internal/notify"
)

// NewServer creates an HTTP server with all routes configured. sender may be
// nil for a read-only server; backends are checked by /v1/readyz.
func NewServer(logger *slog.Logger, svc *minter.Service, sender chain.Sender, webhooks *notify.Registry, backends map[string]Pinger) http.Handler {
	mux := chi.NewRouter()

	mux.Use(RequestID)
	mux.Use(Logging(logger))
	mux.Use(Recovery(logger))
	mux.Use(metrics.Metrics)

	health := NewHealthHandler(backends, logger)
	mux.Get("/v1/livez", health.Livez)
	mux.Get("/v1/readyz", health.Readyz)
	mux.Handle("/metrics", promhttp.Handler())

	api := humachi.New(mux, huma.DefaultConfig("NFT Collection API", "1.0.0"))
	registerCollectionRoutes(api, NewCollectionHandler(svc, sender, logger))
	registerWebhookRoutes(api, NewWebhookHandler(webhooks, logger))

	return mux
}
