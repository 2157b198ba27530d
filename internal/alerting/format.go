package alerting

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"poolwatch/internal/engine"
	"poolwatch/internal/storage"
)

// Embed colors per direction, plus the neutral info blue the original bot
// used for its price card.
const (
	ColorInfo = 0x0099ff
	ColorUp   = 0x2ecc71
	ColorFlat = 0x95a5a6
	ColorDown = 0xe74c3c
)

func directionGlyph(d engine.Direction) string {
	switch d {
	case engine.DirectionUp:
		return "🟢"
	case engine.DirectionDown:
		return "🔴"
	default:
		return "⚪"
	}
}

func directionColor(d engine.Direction) int {
	switch d {
	case engine.DirectionUp:
		return ColorUp
	case engine.DirectionDown:
		return ColorDown
	default:
		return ColorFlat
	}
}

// PriceCard renders the hourly price embed with the change since the
// previous hourly sample.
func PriceCard(price, rate decimal.Decimal, direction engine.Direction, thumbnailURL string) Message {
	return Message{
		Title:        "**Price**",
		Description:  fmt.Sprintf("$%s\n%s %s%% (1h)", price.String(), directionGlyph(direction), rate.StringFixed(1)),
		Color:        directionColor(direction),
		ThumbnailURL: thumbnailURL,
	}
}

// NewPoolMessage announces a first-time pool observation.
func NewPoolMessage(record storage.PoolRecord) Message {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("New pool detected on %s", record.DexID))
	if record.PairLabel != "" {
		builder.WriteString(fmt.Sprintf(" (%s)", record.PairLabel))
	}
	builder.WriteString("\n")
	if record.PriceUsd != nil {
		builder.WriteString(fmt.Sprintf("Price: $%s\n", record.PriceUsd.String()))
	}
	if record.LiquidityUsd != nil {
		builder.WriteString(fmt.Sprintf("Liquidity: $%s\n", record.LiquidityUsd.StringFixed(0)))
	}
	if record.URL != "" {
		builder.WriteString(record.URL)
	}
	return Message{
		Title:       "**New Pool**",
		Description: builder.String(),
		Color:       ColorInfo,
	}
}

// VolatilityMessage renders a big-price-change alert.
func VolatilityMessage(rate, threshold decimal.Decimal, direction engine.Direction) Message {
	return Message{
		Title: "**Price Alert**",
		Description: fmt.Sprintf("%s %s%% in the last hour (threshold ±%s%%)",
			directionGlyph(direction), rate.StringFixed(1), threshold.StringFixed(0)),
		Color: directionColor(direction),
	}
}

// DailySummaryMessage renders the day-rollover report.
func DailySummaryMessage(symbol string, summary engine.DaySummary, thumbnailURL string) Message {
	builder := strings.Builder{}
	builder.WriteString("It's a new day!\n\n")
	builder.WriteString(fmt.Sprintf("Price: $%s\n", summary.PriceUsd.String()))

	direction := engine.ClassifyDirection(summary.DayRatePercent)
	builder.WriteString(fmt.Sprintf("24h change: %s %s%%\n", directionGlyph(direction), summary.DayRatePercent.StringFixed(1)))
	builder.WriteString(fmt.Sprintf("Supply: %s %s\n", summary.Supply.StringFixed(0), symbol))
	builder.WriteString(fmt.Sprintf("Burned: %s%%\n", summary.BurnPercent.StringFixed(4)))
	builder.WriteString(fmt.Sprintf("Market cap: $%s\n", summary.MarketCapUsd.StringFixed(0)))
	builder.WriteString(fmt.Sprintf("Holders: %d", summary.HolderCount))

	return Message{
		Title:        fmt.Sprintf("**%s Daily**", symbol),
		Description:  builder.String(),
		Color:        ColorInfo,
		ThumbnailURL: thumbnailURL,
	}
}
