package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

var dec100 = decimal.NewFromInt(100)

// SampleAndCompareRate reads the previous sample stored at bucketID,
// overwrites it with current, and returns the percentage change between
// the two. Each bucket tracks change since the last call to that bucket,
// not since a calendar boundary. Cold start (no prior sample) persists the
// baseline and returns zero.
func (e *Engine) SampleAndCompareRate(ctx context.Context, bucketID string, current decimal.Decimal) (decimal.Decimal, error) {
	prev, err := e.store.SwapBucketPrice(ctx, bucketID, current, e.now().UTC())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("sample bucket %s: %w", bucketID, err)
	}
	if prev == nil || prev.IsZero() {
		// No usable baseline yet; this call established one.
		return decimal.Zero, nil
	}
	return current.Div(*prev).Mul(dec100).Sub(dec100), nil
}

// RoundHourlyRate applies the hourly display policy: one decimal place,
// with raw values strictly inside (-0.1, 0) snapped to exactly 0.0 so
// sub-threshold jitter does not flap the down indicator.
func RoundHourlyRate(raw decimal.Decimal) decimal.Decimal {
	if raw.IsNegative() && raw.GreaterThan(decimal.NewFromFloat(-0.1)) {
		return decimal.Zero
	}
	return raw.Round(1)
}

// ClassifyDirection maps the sign of a rate to a direction.
func ClassifyDirection(rate decimal.Decimal) Direction {
	switch rate.Sign() {
	case 1:
		return DirectionUp
	case -1:
		return DirectionDown
	default:
		return DirectionFlat
	}
}

// SupplyBurnPercent measures cumulative deflation against the fixed
// genesis supply.
func SupplyBurnPercent(current, genesis decimal.Decimal) decimal.Decimal {
	if genesis.IsZero() {
		return decimal.Zero
	}
	return genesis.Sub(current).Div(genesis).Mul(dec100)
}

// MarketCap is spot price times circulating supply.
func MarketCap(price, supply decimal.Decimal) decimal.Decimal {
	return price.Mul(supply)
}

// IsRolloverTrigger reports whether the supplied UTC hour is the day
// boundary. It fires on every tick within that hour; de-duplication is the
// scheduler cadence's responsibility.
func IsRolloverTrigger(utcHour, rolloverHour int) bool {
	return utcHour == rolloverHour
}
