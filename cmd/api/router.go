package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/api"
	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/config"
	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/domain"
	httptransport "github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/transport/http"
	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/web"
)

// newRouter mounts the API, the front-end and /metrics behind the request logger and CORS.
func newRouter(cfg config.Config, service *domain.Service, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	api.NewHandler(service).RegisterRoutes(mux)
	web.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return httptransport.Chain(mux,
		httptransport.RequestLogger(logger),
		httptransport.CORS(cfg.CORSAllowedOrigin),
	)
}
