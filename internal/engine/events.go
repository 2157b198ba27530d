package engine

import (
	"github.com/shopspring/decimal"

	"poolwatch/internal/storage"
)

// EventKind tags a ChangeEvent variant.
type EventKind int

const (
	// EventNewPool fires once, on first observation of a pool.
	EventNewPool EventKind = iota + 1
	// EventPriceVolatility fires when a windowed rate crosses the threshold.
	EventPriceVolatility
	// EventDayRollover fires on the UTC day boundary.
	EventDayRollover
)

// Direction classifies the sign of a change rate.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionFlat Direction = "flat"
	DirectionDown Direction = "down"
)

// ChangeEvent is a notable outcome of one reconciliation pass. Events are
// consumed immediately by the dispatcher and never persisted.
type ChangeEvent struct {
	Kind        EventKind
	Pool        *storage.PoolRecord
	RatePercent decimal.Decimal
	Direction   Direction
	Rollover    *DaySummary
}

// DaySummary bundles the metrics posted on the day boundary.
type DaySummary struct {
	PriceUsd       decimal.Decimal
	Supply         decimal.Decimal
	DayRatePercent decimal.Decimal
	BurnPercent    decimal.Decimal
	MarketCapUsd   decimal.Decimal
	HolderCount    int
}
