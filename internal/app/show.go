package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

// Show prints the most recently seen pool records.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show pools")
	}
	defer closeStore()

	records, err := store.ListRecentPools(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no pools found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Pool\tDex\tPair\tPrice USD\tLiquidity USD\tLast Seen (UTC)")

	for _, record := range records {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			record.PoolID,
			record.DexID,
			record.PairLabel,
			formatDecimal(record.PriceUsd, 6),
			formatDecimal(record.LiquidityUsd, 0),
			record.LastSeen.UTC().Format(time.RFC3339),
		)
	}

	writer.Flush()
	return nil
}

func formatDecimal(value *decimal.Decimal, places int32) string {
	if value == nil {
		return "-"
	}
	return value.StringFixed(places)
}
