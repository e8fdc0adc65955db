package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTradingResult(t *testing.T) {
	date := time.Date(2025, time.April, 8, 15, 30, 0, 0, time.UTC)

	r, err := NewTradingResult(
		" A592ACH060F ",
		"Бензин (АИ-92-К5), ст. Ачинск (ст. отправления)",
		"ст. Ачинск",
		60, 4081200, 1,
		date,
	)
	require.NoError(t, err)

	assert.Equal(t, "A592ACH060F", r.ExchangeProductID)
	assert.Equal(t, "A592", r.OilID)
	assert.Equal(t, "ACH", r.DeliveryBasisID)
	assert.Equal(t, "F", r.DeliveryTypeID)
	assert.Equal(t, int64(60), r.Volume)
	assert.Equal(t, int64(4081200), r.Total)
	assert.Equal(t, int64(1), r.Count)
	assert.Equal(t, time.Date(2025, time.April, 8, 0, 0, 0, 0, time.UTC), r.Date)
}

func TestNewTradingResultValidation(t *testing.T) {
	date := time.Date(2025, time.April, 8, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		productID string
		product   string
		basis     string
		date      time.Time
		wantErr   error
	}{
		{
			name:      "short product id",
			productID: "A59",
			product:   "name",
			basis:     "basis",
			date:      date,
			wantErr:   ErrInvalidProductID,
		},
		{
			name:      "product id too long",
			productID: "A592ACH060F12",
			product:   "name",
			basis:     "basis",
			date:      date,
			wantErr:   ErrValidation,
		},
		{
			name:      "empty product name",
			productID: "A592ACH060F",
			product:   "  ",
			basis:     "basis",
			date:      date,
			wantErr:   ErrValidation,
		},
		{
			name:      "basis name too long",
			productID: "A592ACH060F",
			product:   "name",
			basis:     strings.Repeat("б", MaxDeliveryBasisNameLen+1),
			date:      date,
			wantErr:   ErrValidation,
		},
		{
			name:      "zero date",
			productID: "A592ACH060F",
			product:   "name",
			basis:     "basis",
			wantErr:   ErrValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewTradingResult(tc.productID, tc.product, tc.basis, 1, 1, 1, tc.date)
			require.Error(t, err)
			assert.Nil(t, r)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
		})
	}
}

func TestValidateCountsRunesNotBytes(t *testing.T) {
	r := &TradingResult{
		ExchangeProductID:   "A592ACH060F",
		ExchangeProductName: strings.Repeat("ж", MaxExchangeProductNameLen),
		OilID:               "A592",
		DeliveryBasisID:     "ACH",
		DeliveryBasisName:   "ст. Ачинск",
		DeliveryTypeID:      "F",
		Date:                time.Now(),
	}
	assert.NoError(t, r.Validate())
}

func TestParseDates(t *testing.T) {
	d, err := ParseDate("2025-04-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("01.04.2025")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	b, err := ParseBulletinDate(" 08.04.2025 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.April, 8, 0, 0, 0, 0, time.UTC), b)

	_, err = ParseBulletinDate("2025-04-08")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
