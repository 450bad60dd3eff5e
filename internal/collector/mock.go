package collector

import (
	"context"
	"time"

	"AShareSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  map[string][]model.MarketBar
	Err   error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, symbol string, start, end time.Time, _ Adjust) ([]model.MarketBar, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	days := int(end.Sub(start).Hours()/24) + 1
	return generateMockBars(symbol, m.Price, end, days), nil
}

func generateMockBars(symbol string, basePrice float64, end time.Time, count int) []model.MarketBar {
	if count <= 0 {
		return nil
	}
	bars := make([]model.MarketBar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.MarketBar{
			Symbol: symbol,
			Time:   end.AddDate(0, 0, -(count - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
			Amount: 1000000 * p,
			Source: "mock",
		}
	}
	return bars
}
