package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/spimex-api/internal/api/shared"
	"github.com/phrazzld/spimex-api/internal/scraper"
	"github.com/phrazzld/spimex-api/internal/service"
)

// Messages of GET /start-scrap/.
const (
	MsgScraperBusy    = "Another scraper is working now."
	MsgScraperStarted = "The scraper is running."
)

// ScraperStarter launches a scraper run in the background.
type ScraperStarter interface {
	Running() bool
	Start(ctx context.Context) error
}

// SystemHandler serves health, database and scraper endpoints.
type SystemHandler struct {
	service service.TradingService
	scraper ScraperStarter
	logger  *slog.Logger
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(svc service.TradingService, s ScraperStarter, log *slog.Logger) *SystemHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SystemHandler{
		service: svc,
		scraper: s,
		logger:  log.With(slog.String("component", "system_handler")),
	}
}

// Health handles GET /health/
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
}

// CheckDB handles GET /check-db/
func (h *SystemHandler) CheckDB(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.CheckDatabase(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// StartScrap handles GET /start-scrap/. A run already in progress is
// reported with 200, a missing results table with 404.
func (h *SystemHandler) StartScrap(w http.ResponseWriter, r *http.Request) {
	if h.scraper.Running() {
		shared.RespondWithMessage(w, r, http.StatusOK, MsgScraperBusy)
		return
	}

	status, err := h.service.CheckDatabase(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if status.Rows < 0 {
		shared.RespondWithMessage(w, r, http.StatusNotFound, msgMigrationNeeded)
		return
	}

	if err := h.scraper.Start(r.Context()); err != nil {
		if errors.Is(err, scraper.ErrAlreadyRunning) {
			shared.RespondWithMessage(w, r, http.StatusOK, MsgScraperBusy)
			return
		}
		HandleAPIError(w, r, err, "")
		return
	}

	h.logger.Info("scraper started", "trace_id", shared.GetTraceID(r.Context()))
	shared.RespondWithMessage(w, r, http.StatusCreated, MsgScraperStarted)
}
