package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/spimex-api/internal/api/middleware"
	"github.com/phrazzld/spimex-api/internal/api/shared"
)

// NewRouter registers every endpoint with the standard middleware chain.
// Paths match with or without a trailing slash.
func NewRouter(trading *TradingHandler, system *SystemHandler, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(log))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Get("/health", system.Health)
	r.Get("/check-db", system.CheckDB)
	r.Get("/start-scrap", system.StartScrap)

	r.Route("/api", func(r chi.Router) {
		r.Get("/get-last-trading-dates", trading.GetLastTradingDates)
		r.Get("/get-dynamics", trading.GetDynamics)
		r.Get("/get-trading-results", trading.GetTradingResults)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithError(w, r, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithError(w, r, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return r
}
