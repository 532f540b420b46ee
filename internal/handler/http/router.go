package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/wholesale-storefront/internal/service"
	"github.com/utafrali/wholesale-storefront/pkg/health"
	"github.com/utafrali/wholesale-storefront/pkg/middleware"
)

const (
	serviceName     = "storefront"
	maxRequestBytes = 64 << 10
	catalogMaxAge   = 60
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	Environment    string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	storefront *service.StorefrontService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins, cfg.Environment))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	h := NewStorefrontHandler(storefront, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.BearerToken)
		r.Use(middleware.RequestLogger(logger))
		r.Use(ContentTypeJSON)
		r.Use(limitBody(maxRequestBytes))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.With(middleware.CacheControl(catalogMaxAge)).Get("/{productId}/variations", h.ListVariations)
			r.Get("/{productId}/variations/resolve", h.PreviewVariation)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.NoStore)

			r.Get("/", h.GetCart)
			r.Post("/lines", h.AddLine)
			r.Put("/lines/{productId}", h.SetQuantity)
			r.Delete("/lines/{index}", h.RemoveLine)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.NoStore)

			r.Post("/", h.PlaceOrder)
			r.Get("/state", h.OrderState)
			r.Get("/history", h.OrderHistory)
		})

		r.Route("/receipts", func(r chi.Router) {
			r.Use(middleware.NoStore)

			r.Get("/", h.ListReceipts)
			r.Get("/{invoice}", h.GetReceipt)
		})
	})

	return r
}
