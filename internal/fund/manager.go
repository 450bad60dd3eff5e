package fund

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"AShareSentinel/internal/model"
)

// StateStore persists daily risk states.
type StateStore interface {
	LatestRiskState(ctx context.Context) (*model.RiskState, error)
	SaveRiskState(ctx context.Context, rs model.RiskState) error
}

// Manager carries the equity high-water mark across runs and gates new buys
// on drawdown.
type Manager struct {
	mu    sync.Mutex
	store StateStore
	limit float64
	state *model.RiskState
}

// NewManager creates a Manager with the given max drawdown limit.
func NewManager(store StateStore, maxDrawdownLimit float64) *Manager {
	return &Manager{store: store, limit: maxDrawdownLimit}
}

// Evaluate reads the latest stored state, recomputes it with today's equity
// and writes it back. Without a prior record the peak starts at equity.
func (m *Manager) Evaluate(ctx context.Context, equity float64, day time.Time) (model.RiskState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return model.RiskState{}, errNoStore
	}
	prior, err := m.store.LatestRiskState(ctx)
	if err != nil {
		return model.RiskState{}, fmt.Errorf("load risk state: %w", err)
	}
	peak := equity
	if prior != nil {
		peak = prior.PeakEquity
	}

	rs := ComputeRiskState(equity, peak, m.limit, day)
	if err := m.store.SaveRiskState(ctx, rs); err != nil {
		return model.RiskState{}, fmt.Errorf("save risk state: %w", err)
	}
	m.state = &rs

	if !rs.AllowNewBuy {
		log.Warn().
			Float64("drawdown", rs.Drawdown).
			Float64("limit", m.limit).
			Msg("drawdown limit exceeded, new buys suspended")
	}
	return rs, nil
}

// Current returns the last evaluated state.
func (m *Manager) Current() (model.RiskState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return model.RiskState{}, false
	}
	return *m.state, true
}

// Limit returns the configured max drawdown.
func (m *Manager) Limit() float64 { return m.limit }
