package fund

import (
	"math"
	"testing"

	"AShareSentinel/internal/model"
)

func TestPositionSize_LotRule(t *testing.T) {
	shares := PositionSizeShares(1_000_000, 100, model.Some(2), 0.01, 1.5)
	if shares != 3300 {
		t.Fatalf("expected 3300 shares, got %d", shares)
	}
	pct := PositionSizePct(1_000_000, 100, model.Some(2), 0.01, 1.5)
	if math.Abs(pct-0.33) > 1e-9 {
		t.Errorf("expected 0.33, got %v", pct)
	}
}

func TestPositionSize_Degenerate(t *testing.T) {
	tests := []struct {
		name   string
		equity float64
		entry  float64
		atr    model.OptFloat
		mult   float64
	}{
		{"zero equity", 0, 10, model.Some(1), 1.5},
		{"negative entry", 1_000_000, -1, model.Some(1), 1.5},
		{"absent atr", 1_000_000, 10, model.None(), 1.5},
		{"zero atr", 1_000_000, 10, model.Some(0), 1.5},
		{"zero multiple", 1_000_000, 10, model.Some(1), 0},
		{"budget below one lot", 10_000, 10, model.Some(5), 1.5},
	}
	for _, tt := range tests {
		if got := PositionSizeShares(tt.equity, tt.entry, tt.atr, 0.01, tt.mult); got != 0 {
			t.Errorf("%s: expected 0 shares, got %d", tt.name, got)
		}
		if got := PositionSizePct(tt.equity, tt.entry, tt.atr, 0.01, tt.mult); got != 0 {
			t.Errorf("%s: expected 0 pct, got %v", tt.name, got)
		}
	}
}

func TestPositionSize_AlwaysWholeLots(t *testing.T) {
	for _, equity := range []float64{50_000, 123_456, 1_000_000, 7_777_777} {
		for _, atr := range []float64{0.05, 0.37, 1, 2.9, 13.1} {
			s := PositionSizeShares(equity, 20, model.Some(atr), 0.01, 1.5)
			if s < 0 || s%BoardLot != 0 {
				t.Fatalf("equity=%v atr=%v: %d is not a non-negative multiple of %d", equity, atr, s, BoardLot)
			}
		}
	}
}

func TestPositionSizePct_ClampedToOne(t *testing.T) {
	// a tiny ATR makes the risk budget buy far more than the account
	if got := PositionSizePct(100_000, 50, model.Some(0.001), 0.01, 1.5); got != 1 {
		t.Errorf("expected pct clamped to 1, got %v", got)
	}
}

func TestStopAndTakeProfit(t *testing.T) {
	if v, ok := StopLossPrice(10, model.Some(1), 1.5).Get(); !ok || v != 8.5 {
		t.Errorf("expected stop 8.5, got %v", v)
	}
	if v, ok := TakeProfitPrice(10, model.Some(1), 1.5).Get(); !ok || v != 13.0 {
		t.Errorf("expected take profit 13.0, got %v", v)
	}
	if v, _ := StopLossPrice(1, model.Some(5), 1.5).Get(); v != MinPrice {
		t.Errorf("expected stop floored at %v, got %v", MinPrice, v)
	}
	if StopLossPrice(10, model.None(), 1.5).Valid || TakeProfitPrice(10, model.None(), 1.5).Valid {
		t.Error("expected absent levels without ATR")
	}
	if StopLossPrice(0, model.Some(1), 1.5).Valid || TakeProfitPrice(-3, model.Some(1), 1.5).Valid {
		t.Error("expected absent levels for non-positive entry")
	}
}
