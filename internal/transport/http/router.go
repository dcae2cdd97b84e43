package http

import (
	"net/http"
	"time"

	httpmw "github.com/cwrk-planet/coderjam/internal/transport/http/middleware"
	"github.com/cwrk-planet/coderjam/internal/transport/ws"
	"github.com/cwrk-planet/coderjam/pkg/httputil"
	"github.com/cwrk-planet/coderjam/pkg/metrics"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(h *Handler, wsServer *ws.Server, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(httputil.MiddlewareRequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(httputil.MiddlewareLogging)
	r.Use(middlewareChi.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", httpmw.HeaderPadKey, httputil.HeaderRequestID},
		ExposedHeaders: []string{httputil.HeaderRequestID},
		MaxAge:         300,
	}))

	// WS endpoint; no timeout, the socket outlives the request
	r.Get("/ws", wsServer.HandleWS)

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewareChi.Timeout(30 * time.Second))

		api.Get("/health", h.Health)
		api.Get("/stats", h.Stats)
		api.Post("/pad", h.CreatePad)
		api.With(httpmw.PadKey).Get("/pad/{id}", h.GetPad)
	})

	r.Handle("/metrics", metrics.Handler())

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
