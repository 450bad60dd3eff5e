package news

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"AShareSentinel/internal/model"
)

const defaultSerperURL = "https://google.serper.dev/search"

// ErrMissingAPIKey is returned when no Serper key is configured.
var ErrMissingAPIKey = errors.New("missing SERPER_API_KEY")

// SearchResult is the subset of the Serper response we use.
type SearchResult struct {
	Organic []OrganicResult `json:"organic"`
}

type OrganicResult struct {
	Title string `json:"title"`
	Link  string `json:"link"`
	Date  string `json:"date"`
}

// SerperClient searches Google through serper.dev.
type SerperClient struct {
	BaseURL  string
	APIKey   string
	Client   *http.Client
	Cache    Cache
	CacheTTL time.Duration
	Now      func() time.Time
}

// NewSerperClient creates a new client with optional proxy support.
func NewSerperClient(apiKey, proxyURL string, cache Cache, cacheTTL time.Duration) *SerperClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &SerperClient{
		BaseURL:  defaultSerperURL,
		APIKey:   apiKey,
		Cache:    cache,
		CacheTTL: cacheTTL,
		Now:      time.Now,
		Client: &http.Client{
			Timeout:   20 * time.Second,
			Transport: transport,
		},
	}
}

type searchRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
	HL  string `json:"hl"`
	GL  string `json:"gl"`
}

// Search runs query, consulting the cache first when one is set.
func (c *SerperClient) Search(ctx context.Context, query string, num int) (*SearchResult, error) {
	if c.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	cacheKey := fmt.Sprintf("serper:%d:%s", num, query)
	if c.Cache != nil {
		var cached SearchResult
		if err := c.Cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, ErrCacheMiss) {
			log.Warn().Err(err).Str("query", query).Msg("search cache read failed")
		}
	}

	payload, err := json.Marshal(searchRequest{Q: query, Num: num, HL: "zh-cn", GL: "cn"})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("serper read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("serper decode: %w", err)
	}

	if c.Cache != nil {
		if err := c.Cache.Set(ctx, cacheKey, result, c.CacheTTL); err != nil {
			log.Warn().Err(err).Str("query", query).Msg("search cache write failed")
		}
	}
	return &result, nil
}

func (c *SerperClient) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

// SearchNews implements Searcher.
func (c *SerperClient) SearchNews(ctx context.Context, symbol string, lookback time.Duration) ([]model.NewsItem, error) {
	res, err := c.Search(ctx, symbol+" A股 最新 新闻 财经", 10)
	if err != nil {
		return nil, err
	}
	return BuildNewsItems(symbol, res, c.now(), lookback), nil
}

// BuildNewsItems converts organic hits within lookback of now into news
// items. Hits without a link or title are skipped; undated hits take now.
func BuildNewsItems(symbol string, res *SearchResult, now time.Time, lookback time.Duration) []model.NewsItem {
	return buildItems(symbol, res, now, lookback, func(link, title string) (string, string) {
		return StableHash(symbol + "|" + link + "|" + title), SourceFromURL(link)
	})
}

func buildItems(symbol string, res *SearchResult, now time.Time, lookback time.Duration, ident func(link, title string) (id, source string)) []model.NewsItem {
	if res == nil {
		return nil
	}
	cutoff := now.Add(-lookback)
	items := make([]model.NewsItem, 0, len(res.Organic))
	for _, o := range res.Organic {
		link := strings.TrimSpace(o.Link)
		title := CleanTitle(o.Title)
		if link == "" || title == "" {
			continue
		}
		ts := ParseTime(o.Date, now)
		if ts.Before(cutoff) {
			continue
		}
		id, source := ident(link, title)
		items = append(items, model.NewsItem{
			ID:        id,
			Symbol:    symbol,
			Time:      ts,
			Title:     title,
			URL:       link,
			Source:    source,
			Relevance: 1,
		})
	}
	return items
}
