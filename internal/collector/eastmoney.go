package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"AShareSentinel/internal/model"
)

const defaultEastMoneyURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"

// EastMoneyFetcher implements Fetcher using the EastMoney daily kline API.
type EastMoneyFetcher struct {
	BaseURL  string
	Client   *http.Client
	Location *time.Location
}

// NewEastMoneyFetcher creates a new fetcher with optional proxy support.
func NewEastMoneyFetcher(proxyURL string, loc *time.Location) *EastMoneyFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if loc == nil {
		loc = time.FixedZone("CST", 8*3600)
	}
	return &EastMoneyFetcher{
		BaseURL:  defaultEastMoneyURL,
		Location: loc,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *EastMoneyFetcher) Name() string { return "eastmoney" }

// SecID maps a 6-digit A-share code to the exchange-prefixed id the API
// expects: 1.xxxxxx for Shanghai, 0.xxxxxx otherwise. An explicit "sh" or
// "sz" prefix selects the market, which indices such as sh000300 need.
func SecID(symbol string) string {
	switch {
	case strings.HasPrefix(symbol, "sh"):
		return "1." + symbol[2:]
	case strings.HasPrefix(symbol, "sz"):
		return "0." + symbol[2:]
	}
	if strings.HasPrefix(symbol, "6") || strings.HasPrefix(symbol, "9") {
		return "1." + symbol
	}
	return "0." + symbol
}

func fqt(a Adjust) string {
	switch a {
	case AdjustQFQ:
		return "1"
	case AdjustHFQ:
		return "2"
	default:
		return "0"
	}
}

// klineResponse is the response structure from the kline API. Each kline
// is "date,open,close,high,low,volume,amount,...".
type klineResponse struct {
	RC   int `json:"rc"`
	Data *struct {
		Code   string   `json:"code"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

func (f *EastMoneyFetcher) FetchBars(ctx context.Context, symbol string, start, end time.Time, adjust Adjust) ([]model.MarketBar, error) {
	q := url.Values{}
	q.Set("secid", SecID(symbol))
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56,f57")
	q.Set("klt", "101")
	q.Set("fqt", fqt(adjust))
	q.Set("beg", start.Format("20060102"))
	q.Set("end", end.Format("20060102"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eastmoney fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("eastmoney read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eastmoney: status %d, body: %s", resp.StatusCode, string(body))
	}

	var kr klineResponse
	if err := json.Unmarshal(body, &kr); err != nil {
		return nil, fmt.Errorf("eastmoney decode: %w", err)
	}
	if kr.Data == nil {
		// unknown symbol or no trading in range
		return nil, nil
	}

	bars := make([]model.MarketBar, 0, len(kr.Data.Klines))
	for _, line := range kr.Data.Klines {
		bar, err := parseKline(symbol, line, f.Location)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func parseKline(symbol, line string, loc *time.Location) (model.MarketBar, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 7 {
		return model.MarketBar{}, fmt.Errorf("eastmoney: malformed kline %q", line)
	}
	ts, err := time.ParseInLocation("2006-01-02", fields[0], loc)
	if err != nil {
		return model.MarketBar{}, fmt.Errorf("eastmoney: kline date: %w", err)
	}
	nums := make([]float64, 6)
	for i := range nums {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return model.MarketBar{}, fmt.Errorf("eastmoney: kline field %d: %w", i+1, err)
		}
		nums[i] = v
	}
	return model.MarketBar{
		Symbol: symbol,
		Time:   ts,
		Open:   nums[0],
		Close:  nums[1],
		High:   nums[2],
		Low:    nums[3],
		Volume: nums[4],
		Amount: nums[5],
		Source: "eastmoney",
	}, nil
}
