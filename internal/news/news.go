// Package news searches the web for symbol news and exchange announcements
// and turns the hits into evidence items.
package news

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"AShareSentinel/internal/model"
)

// Searcher returns recent news items for a symbol.
type Searcher interface {
	SearchNews(ctx context.Context, symbol string, lookback time.Duration) ([]model.NewsItem, error)
}

// AnnouncementSource returns recent company announcements for a symbol.
type AnnouncementSource interface {
	Announcements(ctx context.Context, symbol string, lookback time.Duration) ([]model.NewsItem, error)
}

// StableHash is the hex sha256 of s.
func StableHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// SourceFromURL returns the lower-cased host of raw without a leading www.
func SourceFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "unknown"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host == "" {
		return "unknown"
	}
	return host
}

// DedupeKey identifies the same evidence: one URL within one UTC clock hour.
func DedupeKey(item model.NewsItem) (urlHash, hourBucket string) {
	return item.URLHash(), item.HourBucket()
}

// Dedupe keeps the first item of each DedupeKey, preserving order.
func Dedupe(items []model.NewsItem) []model.NewsItem {
	seen := make(map[[2]string]struct{}, len(items))
	out := make([]model.NewsItem, 0, len(items))
	for _, it := range items {
		h, b := DedupeKey(it)
		k := [2]string{h, b}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2006/01/02 15:04:05",
}

// ParseTime parses a search-result date as UTC, falling back to def for
// empty or unrecognised values such as "3 hours ago".
func ParseTime(raw string, def time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t
		}
	}
	return def
}
