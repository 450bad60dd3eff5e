package store

import (
	"context"
	"time"

	"AShareSentinel/internal/model"
)

// NoopStore is a no-op implementation used when SQLite is not configured.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) SaveBars(context.Context, []model.MarketBar) error         { return nil }
func (n *NoopStore) SaveNewsItems(context.Context, []model.NewsItem) error     { return nil }
func (n *NoopStore) SaveSignals(context.Context, []model.TradeSignal) error    { return nil }
func (n *NoopStore) SaveRiskState(context.Context, model.RiskState) error      { return nil }
func (n *NoopStore) LogEvent(context.Context, string, interface{}) error       { return nil }
func (n *NoopStore) Close() error                                              { return nil }
func (n *NoopStore) LatestRiskState(context.Context) (*model.RiskState, error) { return nil, nil }

func (n *NoopStore) SignalsByDate(context.Context, time.Time) ([]model.TradeSignal, error) {
	return nil, nil
}

func (n *NoopStore) SignalByID(context.Context, string) (*model.TradeSignal, error) {
	return nil, ErrNotFound
}

func (n *NoopStore) BarsBetween(context.Context, string, time.Time, time.Time) ([]model.MarketBar, error) {
	return nil, nil
}
