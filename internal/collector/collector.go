package collector

import (
	"context"
	"fmt"
	"time"

	"AShareSentinel/internal/model"
)

// Collector fetches the daily bar window needed for scoring.
type Collector struct {
	Fetcher      Fetcher
	LookbackDays int
	Adjust       Adjust
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, lookbackDays int, adjust Adjust) *Collector {
	return &Collector{Fetcher: fetcher, LookbackDays: lookbackDays, Adjust: adjust}
}

// Collect returns the bars of symbol over the lookback window ending at asOf.
func (c *Collector) Collect(ctx context.Context, symbol string, asOf time.Time) ([]model.MarketBar, error) {
	start := asOf.AddDate(0, 0, -c.LookbackDays)
	bars, err := c.Fetcher.FetchBars(ctx, symbol, start, asOf, c.Adjust)
	if err != nil {
		return nil, fmt.Errorf("fetch bars %s from %s: %w", symbol, c.Fetcher.Name(), err)
	}
	return bars, nil
}
