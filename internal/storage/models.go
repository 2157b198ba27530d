package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Synthetic bucket identifiers. Buckets live in the same table as real pools
// and hold exactly one previous sample each; computing a change rate reads
// then overwrites that single slot.
const (
	BucketHourlyPrice  = "hourly_price"
	BucketBirdeyePrice = "birdeye_price"
)

// PoolRecord is one row per liquidity pool or synthetic sample bucket. For
// real pools PoolID is the on-chain pair address; for buckets it is one of
// the sentinel identifiers above.
type PoolRecord struct {
	PoolID       string
	DexID        string
	PairLabel    string
	URL          string
	PriceNative  *decimal.Decimal
	PriceUsd     *decimal.Decimal
	LiquidityUsd *decimal.Decimal
	Supply       *decimal.Decimal
	LastSeen     time.Time
	CreatedAt    time.Time
}

// IsBucket reports whether the record is a synthetic sample bucket rather
// than an observed pool.
func (r PoolRecord) IsBucket() bool {
	return r.PoolID == BucketHourlyPrice || r.PoolID == BucketBirdeyePrice
}
