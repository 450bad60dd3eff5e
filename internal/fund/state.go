package fund

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"AShareSentinel/internal/model"
)

// ComputeRiskState derives the drawdown state for a day. The peak is the
// larger of equity and priorPeak; buying stays allowed while drawdown is at
// or below limit.
func ComputeRiskState(equity, priorPeak, limit float64, day time.Time) model.RiskState {
	peak := math.Max(equity, priorPeak)
	drawdown := 0.0
	if peak > 0 {
		drawdown = math.Max(0, (peak-equity)/peak)
	}
	return model.RiskState{
		Date:        day,
		Equity:      equity,
		PeakEquity:  peak,
		Drawdown:    drawdown,
		AllowNewBuy: drawdown <= limit,
	}
}

// FileStore keeps the daily risk-state history in a JSON file. It is used
// when no database is configured.
type FileStore struct {
	mu       sync.Mutex
	filePath string
}

// NewFileStore creates a FileStore backed by filePath.
func NewFileStore(filePath string) *FileStore {
	return &FileStore{filePath: filePath}
}

type fileState struct {
	States    []model.RiskState `json:"states"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (f *FileStore) load() (*fileState, error) {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileState{}, nil
		}
		return nil, err
	}
	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// LatestRiskState returns the most recent state, or nil if none was saved.
func (f *FileStore) LatestRiskState(_ context.Context) (*model.RiskState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.load()
	if err != nil {
		return nil, err
	}
	if len(st.States) == 0 {
		return nil, nil
	}
	latest := st.States[len(st.States)-1]
	return &latest, nil
}

// SaveRiskState upserts the state for its date.
func (f *FileStore) SaveRiskState(_ context.Context, rs model.RiskState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, err := f.load()
	if err != nil {
		return err
	}
	key := model.DayKey(rs.Date)
	replaced := false
	for i := range st.States {
		if model.DayKey(st.States[i].Date) == key {
			st.States[i] = rs
			replaced = true
			break
		}
	}
	if !replaced {
		st.States = append(st.States, rs)
	}
	sort.Slice(st.States, func(i, j int) bool { return st.States[i].Date.Before(st.States[j].Date) })
	st.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(f.filePath, data, 0644)
}

var errNoStore = errors.New("fund: no risk state store")
