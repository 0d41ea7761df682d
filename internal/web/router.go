package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jusunglee/itrans/internal/web/handlers"
	"github.com/jusunglee/itrans/internal/web/middleware"
)

// Options configures the API router.
type Options struct {
	// AllowedOrigins restricts CORS. Empty allows any origin.
	AllowedOrigins []string
	// APIKey guards table uploads and deletes. Empty leaves them open.
	APIKey string
	// ConvertLimit is the number of conversions one client may make per
	// minute. Zero means 120.
	ConvertLimit int
}

type Router struct {
	catalog handlers.Catalog
	log     *slog.Logger
	opts    Options
}

func NewRouter(c handlers.Catalog, log *slog.Logger, opts Options) *Router {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.ConvertLimit <= 0 {
		opts.ConvertLimit = 120
	}
	return &Router{catalog: c, log: log, opts: opts}
}

func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	convertHandler := handlers.NewConvertHandler(r.catalog, r.log)
	tableHandler := handlers.NewTableHandler(r.catalog, r.log)

	convertLimiter := middleware.NewRateLimiter(r.opts.ConvertLimit, time.Minute)
	adminLimiter := middleware.NewRateLimiter(10, time.Minute)

	mux.Handle("POST /api/v1/convert",
		middleware.Chain(
			http.HandlerFunc(convertHandler.Convert),
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(r.log),
			middleware.RateLimit(convertLimiter),
		),
	)

	mux.Handle("GET /api/v1/tables",
		middleware.Chain(
			http.HandlerFunc(tableHandler.List),
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(r.log),
			middleware.CacheControl("public, s-maxage=5, max-age=0"),
		),
	)

	mux.Handle("GET /api/v1/tables/{name}/languages",
		middleware.Chain(
			http.HandlerFunc(tableHandler.Languages),
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(r.log),
			middleware.CacheControl("public, s-maxage=5, max-age=0"),
		),
	)

	mux.Handle("GET /api/v1/tables/{name}/loads",
		middleware.Chain(
			http.HandlerFunc(tableHandler.Loads),
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(r.log),
			middleware.CacheControl("no-store"),
		),
	)

	mux.Handle("PUT /api/v1/tables/{name}",
		middleware.Chain(
			http.HandlerFunc(tableHandler.Put),
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(r.log),
			middleware.APIKeyAuth(r.opts.APIKey),
			middleware.RateLimit(adminLimiter),
		),
	)

	mux.Handle("DELETE /api/v1/tables/{name}",
		middleware.Chain(
			http.HandlerFunc(tableHandler.Delete),
			middleware.PrometheusMetrics(),
			middleware.RequestLogger(r.log),
			middleware.APIKeyAuth(r.opts.APIKey),
			middleware.RateLimit(adminLimiter),
		),
	)

	return middleware.CORS(r.opts.AllowedOrigins)(mux)
}
