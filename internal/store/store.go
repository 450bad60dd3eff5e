// Package store persists bars, evidence, signals, risk states and the
// audit trail.
package store

import (
	"context"
	"errors"
	"time"

	"AShareSentinel/internal/model"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("store: not found")

// Audit event names.
const (
	EventRunStart          = "run_start"
	EventRunEnd            = "run_end"
	EventMarketError       = "market_error"
	EventNewsError         = "news_error"
	EventAnnouncementError = "announcement_error"
	EventAlert             = "alert"
)

// AuditEvent is one append-only audit log row.
type AuditEvent struct {
	ID      int64     `json:"id"`
	Time    time.Time `json:"ts"`
	Event   string    `json:"event"`
	Payload string    `json:"payload"`
}

// Store is the persistence surface used by the agent. All writes are
// idempotent upserts keyed by natural identity.
type Store interface {
	SaveBars(ctx context.Context, bars []model.MarketBar) error
	SaveNewsItems(ctx context.Context, items []model.NewsItem) error
	SaveSignals(ctx context.Context, signals []model.TradeSignal) error
	SaveRiskState(ctx context.Context, rs model.RiskState) error
	// LatestRiskState returns nil when nothing was saved yet.
	LatestRiskState(ctx context.Context) (*model.RiskState, error)
	LogEvent(ctx context.Context, event string, payload interface{}) error
	SignalsByDate(ctx context.Context, day time.Time) ([]model.TradeSignal, error)
	SignalByID(ctx context.Context, id string) (*model.TradeSignal, error)
	BarsBetween(ctx context.Context, symbol string, start, end time.Time) ([]model.MarketBar, error)
	Close() error
}
