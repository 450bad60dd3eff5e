package strategy

import (
	"fmt"
	"strings"

	"AShareSentinel/internal/calculator"
	"AShareSentinel/internal/model"
)

// SentimentScorer turns evidence items into a score in [0, 5] and the
// reasons behind it.
type SentimentScorer interface {
	Score(items []model.NewsItem) (float64, []string)
}

var (
	PositiveKeywords = []string{"中标", "预增", "回购", "增持", "突破", "景气", "订单"}
	NegativeKeywords = []string{"减持", "问询", "下滑", "诉讼", "风险", "亏损", "处罚"}
)

// ReasonMissingEvidence is the single reason returned for an empty evidence set.
const ReasonMissingEvidence = "缺少新闻/公告证据"

const (
	keywordWeight   = 0.8
	coveragePerItem = 0.05
	coverageCap     = 1.0
	neutralShift    = 2.5
	titleExcerpt    = 24
)

// KeywordScorer scores titles by substring match against fixed keyword sets.
// Each item counts at most once per set.
type KeywordScorer struct {
	Positive []string
	Negative []string
}

// NewKeywordScorer returns a scorer using the default keyword sets.
func NewKeywordScorer() KeywordScorer {
	return KeywordScorer{Positive: PositiveKeywords, Negative: NegativeKeywords}
}

// Score implements SentimentScorer. No evidence scores 0, below the neutral
// midpoint.
func (k KeywordScorer) Score(items []model.NewsItem) (float64, []string) {
	if len(items) == 0 {
		return 0, []string{ReasonMissingEvidence}
	}

	var (
		score   float64
		reasons []string
	)
	for _, item := range items {
		if containsAny(item.Title, k.Positive) {
			score += keywordWeight
			reasons = append(reasons, "正向事件: "+excerpt(item.Title, titleExcerpt))
		}
		if containsAny(item.Title, k.Negative) {
			score -= keywordWeight
			reasons = append(reasons, "负向事件: "+excerpt(item.Title, titleExcerpt))
		}
	}
	score += min(coverageCap, float64(len(items))*coveragePerItem)
	reasons = append(reasons, fmt.Sprintf("新闻覆盖数量: %d", len(items)))

	return calculator.Clamp(score+neutralShift, 0, maxScore), reasons
}

func containsAny(text string, keys []string) bool {
	for _, k := range keys {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// excerpt truncates s to n runes.
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
