package api

import (
	"time"

	"github.com/phrazzld/spimex-api/internal/domain"
)

// DynamicsParams are the query parameters of GET /api/get-dynamics/.
type DynamicsParams struct {
	OilID           string `json:"oil_id"            validate:"required"`
	DeliveryTypeID  string `json:"delivery_type_id"  validate:"required"`
	DeliveryBasisID string `json:"delivery_basis_id" validate:"required"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
}

// TradingParams are the query parameters of GET /api/get-trading-results/.
// Identifiers are matched as given; one that cannot exist matches nothing.
type TradingParams struct {
	OilID           string `json:"oil_id"`
	DeliveryTypeID  string `json:"delivery_type_id"`
	DeliveryBasisID string `json:"delivery_basis_id"`
}

// HealthResponse is the body of GET /health/.
type HealthResponse struct {
	Status string `json:"status"`
}

// TradingResultResponse is one result as served by the API. Date is a
// calendar day; the timestamps are RFC 3339.
type TradingResultResponse struct {
	ID                  int64     `json:"id"`
	ExchangeProductID   string    `json:"exchange_product_id"`
	ExchangeProductName string    `json:"exchange_product_name"`
	OilID               string    `json:"oil_id"`
	DeliveryBasisID     string    `json:"delivery_basis_id"`
	DeliveryBasisName   string    `json:"delivery_basis_name"`
	DeliveryTypeID      string    `json:"delivery_type_id"`
	Volume              int64     `json:"volume"`
	Total               int64     `json:"total"`
	Count               int64     `json:"count"`
	Date                string    `json:"date"`
	CreatedOn           time.Time `json:"created_on"`
	UpdatedOn           time.Time `json:"updated_on"`
}

// resultsToResponse converts domain results; the slice is never nil so an
// empty result encodes as [].
func resultsToResponse(results []domain.TradingResult) []TradingResultResponse {
	out := make([]TradingResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, TradingResultResponse{
			ID:                  r.ID,
			ExchangeProductID:   r.ExchangeProductID,
			ExchangeProductName: r.ExchangeProductName,
			OilID:               r.OilID,
			DeliveryBasisID:     r.DeliveryBasisID,
			DeliveryBasisName:   r.DeliveryBasisName,
			DeliveryTypeID:      r.DeliveryTypeID,
			Volume:              r.Volume,
			Total:               r.Total,
			Count:               r.Count,
			Date:                r.Date.Format(domain.DateLayout),
			CreatedOn:           r.CreatedOn,
			UpdatedOn:           r.UpdatedOn,
		})
	}
	return out
}
