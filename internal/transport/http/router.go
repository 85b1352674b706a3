package httptransport

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	assessmenthandler "dqa/internal/assessment/handler"
	confighandler "dqa/internal/configlists/handler"
	"dqa/internal/platform/metrics"
	"dqa/internal/platform/middleware"
	"dqa/pkg/platform/httputil"
	"dqa/pkg/platform/middleware/metadata"
	"dqa/pkg/platform/middleware/requesttime"
)

// BasePath prefixes every API route.
const BasePath = "/dqa"

// Config carries the router's collaborators.
type Config struct {
	APIKey      string
	Version     string
	Assessments assessmenthandler.Assessor
	Lists       confighandler.Store
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Logger      *slog.Logger
	Clock       func() time.Time
}

// NewRouter wires the API, its docs and the metrics endpoint. Responses are
// gzip-compressed when the client accepts it.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	huma.DefaultArrayNullable = false
	httputil.InstallErrorEnvelope()

	docsPath := path.Join(BasePath, "docs")
	specPath := path.Join(BasePath, "openapi.json")

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.MiddlewareWithClock(clock))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.LatencyMiddleware(cfg.Metrics))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}).Handler)
	r.Use(middleware.RequireAPIKey(cfg.APIKey, []string{docsPath, specPath, "/metrics"}, logger))

	hcfg := httputil.APIConfig("IATI Data Quality Assessment API", version)
	hcfg.OpenAPIPath = ""
	hcfg.DocsPath = ""
	api := humachi.New(r, hcfg)

	assessmenthandler.New(cfg.Assessments, logger).Register(api, BasePath)
	confighandler.New(cfg.Lists, logger).Register(api, BasePath)

	registerDocs(r, docsPath, specPath)
	registerOpenAPI(r, api, specPath)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return gziphandler.GzipHandler(r)
}

func registerDocs(r chi.Router, docsPath, specPath string) {
	r.Get(docsPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, swaggerHTML(specPath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, specPath string) {
	var (
		once sync.Once
		spec []byte
	)
	r.Get(specPath, func(w http.ResponseWriter, _ *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			applyAPIKeySecurity(oas)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(spec)
	})
}

func applyAPIKeySecurity(oas *huma.OpenAPI) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type:        "apiKey",
		In:          "header",
		Name:        "Authorization",
		Description: "The service secret key, sent as the raw header value",
	}
	oas.Security = []map[string][]string{{"apiKeyAuth": {}}}
}

func swaggerHTML(specURL string) string {
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>IATI Data Quality Assessment API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with the Authorization header set to the service secret key.
    </p>
  </body>
</html>`, specURL)
}
