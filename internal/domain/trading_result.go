package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Date layouts used at the system boundaries.
const (
	// DateLayout is the API representation of a trading day.
	DateLayout = "2006-01-02"

	// BulletinDateLayout is how the exchange prints bulletin dates.
	BulletinDateLayout = "02.01.2006"
)

// Column bounds of spimex_trading_results.
const (
	MaxExchangeProductIDLen   = 11
	MaxExchangeProductNameLen = 255
	MaxOilIDLen               = 4
	MaxDeliveryBasisIDLen     = 3
	MaxDeliveryBasisNameLen   = 255
	MaxDeliveryTypeIDLen      = 1
)

// minProductIDLen covers the oil (4), basis (3) and delivery type (1) segments.
const minProductIDLen = 8

// TradingResult is one traded instrument line of a daily exchange bulletin.
type TradingResult struct {
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
	Date                time.Time `json:"date"`
	CreatedOn           time.Time `json:"created_on"`
	UpdatedOn           time.Time `json:"updated_on"`
}

// NewTradingResult builds a result from a bulletin row. The oil,
// delivery basis and delivery type identifiers are segments of the
// exchange product code, e.g. A592ACH060F is oil A592, basis ACH, type F.
func NewTradingResult(
	productID string,
	productName string,
	basisName string,
	volume, total, count int64,
	date time.Time,
) (*TradingResult, error) {
	productID = strings.TrimSpace(productID)
	if utf8.RuneCountInString(productID) < minProductIDLen {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProductID, productID)
	}
	runes := []rune(productID)

	r := &TradingResult{
		ExchangeProductID:   productID,
		ExchangeProductName: strings.TrimSpace(productName),
		OilID:               string(runes[0:4]),
		DeliveryBasisID:     string(runes[4:7]),
		DeliveryBasisName:   strings.TrimSpace(basisName),
		DeliveryTypeID:      string(runes[len(runes)-1]),
		Volume:              volume,
		Total:               total,
		Count:               count,
		Date:                TradingDay(date),
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks that every field fits its column.
func (r *TradingResult) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"exchange_product_id", r.ExchangeProductID, MaxExchangeProductIDLen},
		{"exchange_product_name", r.ExchangeProductName, MaxExchangeProductNameLen},
		{"oil_id", r.OilID, MaxOilIDLen},
		{"delivery_basis_id", r.DeliveryBasisID, MaxDeliveryBasisIDLen},
		{"delivery_basis_name", r.DeliveryBasisName, MaxDeliveryBasisNameLen},
		{"delivery_type_id", r.DeliveryTypeID, MaxDeliveryTypeIDLen},
	}

	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, f.name)
		}
		if utf8.RuneCountInString(f.value) > f.max {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrValidation, f.name, f.max)
		}
	}

	if r.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}

	return nil
}

// TradingDay truncates t to midnight UTC of its calendar day.
func TradingDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an API date (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q does not match format YYYY-MM-DD", ErrInvalidFormat, s)
	}
	return t, nil
}

// ParseBulletinDate parses a bulletin date (DD.MM.YYYY).
func ParseBulletinDate(s string) (time.Time, error) {
	t, err := time.Parse(BulletinDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q does not match format DD.MM.YYYY", ErrInvalidFormat, s)
	}
	return t, nil
}
