package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/spimex-api/internal/api/shared"
	"github.com/phrazzld/spimex-api/internal/domain"
	"github.com/phrazzld/spimex-api/internal/platform/logger"
	"github.com/phrazzld/spimex-api/internal/service"
)

// Query parameter defaults.
const (
	DefaultDays  = 1
	DefaultLimit = 10
)

// TradingHandler serves the read-only /api endpoints.
type TradingHandler struct {
	service service.TradingService
	logger  *slog.Logger
	now     func() time.Time
}

// NewTradingHandler creates a new TradingHandler
func NewTradingHandler(svc service.TradingService, log *slog.Logger) *TradingHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TradingHandler{
		service: svc,
		logger:  log.With(slog.String("component", "trading_handler")),
		now:     time.Now,
	}
}

// GetLastTradingDates handles GET /api/get-last-trading-dates/?days=N
func (h *TradingHandler) GetLastTradingDates(w http.ResponseWriter, r *http.Request) {
	days, err := shared.QueryInt(r, "days", DefaultDays)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, msgInvalidDays)
		return
	}

	dates, err := h.service.LastTradingDates(r.Context(), days)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if dates == nil {
		dates = []string{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, dates)
}

// GetDynamics handles GET /api/get-dynamics/. Missing dates default to
// today in UTC.
func (h *TradingHandler) GetDynamics(w http.ResponseWriter, r *http.Request) {
	params := DynamicsParams{
		OilID:           shared.QueryString(r, "oil_id"),
		DeliveryTypeID:  shared.QueryString(r, "delivery_type_id"),
		DeliveryBasisID: shared.QueryString(r, "delivery_basis_id"),
		StartDate:       shared.QueryString(r, "start_date"),
		EndDate:         shared.QueryString(r, "end_date"),
	}
	if err := shared.ValidateRequest(params); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	today := h.now().UTC().Format(domain.DateLayout)
	if params.StartDate == "" {
		params.StartDate = today
	}
	if params.EndDate == "" {
		params.EndDate = today
	}

	results, err := h.service.Dynamics(r.Context(), service.DynamicsQuery{
		OilID:           params.OilID,
		DeliveryTypeID:  params.DeliveryTypeID,
		DeliveryBasisID: params.DeliveryBasisID,
		StartDate:       params.StartDate,
		EndDate:         params.EndDate,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resultsToResponse(results))
}

// GetTradingResults handles GET /api/get-trading-results/
func (h *TradingHandler) GetTradingResults(w http.ResponseWriter, r *http.Request) {
	params := TradingParams{
		OilID:           shared.QueryString(r, "oil_id"),
		DeliveryTypeID:  shared.QueryString(r, "delivery_type_id"),
		DeliveryBasisID: shared.QueryString(r, "delivery_basis_id"),
	}

	limit, err := shared.QueryInt(r, "limit", DefaultLimit)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, msgInvalidLimit)
		return
	}

	results, err := h.service.TradingResults(r.Context(), service.TradingQuery{
		OilID:           params.OilID,
		DeliveryTypeID:  params.DeliveryTypeID,
		DeliveryBasisID: params.DeliveryBasisID,
		Limit:           limit,
	})
	if err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Debug("trading results query rejected",
			"error", err,
			"limit", limit)
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resultsToResponse(results))
}
