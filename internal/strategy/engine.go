package strategy

import (
	"math"
	"time"

	"github.com/google/uuid"

	"AShareSentinel/internal/calculator"
	"AShareSentinel/internal/fund"
	"AShareSentinel/internal/model"
)

// ReasonBuySuspended is appended when drawdown protection blocks new buys.
const ReasonBuySuspended = "组合回撤超过阈值，暂停新增买入"

const (
	maxEvidence        = 6
	lowConfidenceBars  = 25
	lowConfidenceLinks = 2
	longHistoryBars    = 60
	baseConfidence     = 0.4
	confidencePerLink  = 0.08
	evidenceBonusCap   = 0.5
	longHistoryBonus   = 0.1
	lowConfidenceCap   = 0.55
)

// Params are the tunables of signal synthesis.
type Params struct {
	TechnicalWeight float64
	NewsWeight      float64
	BuyThreshold    float64
	ReduceThreshold float64
	RiskPerTrade    float64
	ATRStopMultiple float64
}

// DefaultParams mirrors the configuration defaults.
func DefaultParams() Params {
	return Params{
		TechnicalWeight: 0.7,
		NewsWeight:      0.3,
		BuyThreshold:    4.0,
		ReduceThreshold: 1.0,
		RiskPerTrade:    0.01,
		ATRStopMultiple: 1.5,
	}
}

// SignalInput carries everything needed to build one signal.
type SignalInput struct {
	Symbol        string
	Bars          []model.MarketBar
	News          []model.NewsItem
	Announcements []model.NewsItem
	Params        Params
	Risk          model.RiskState
	Equity        float64
	Time          time.Time
	// Scorer defaults to NewKeywordScorer when nil.
	Scorer SentimentScorer
}

// MapAction maps a combined score to an action. BUY requires allowNewBuy;
// a suppressed buy falls through to HOLD.
func MapAction(score float64, allowNewBuy bool, buyThreshold, reduceThreshold float64) model.SignalAction {
	switch {
	case score >= buyThreshold && allowNewBuy:
		return model.ActionBuy
	case score <= reduceThreshold:
		return model.ActionReduce
	default:
		return model.ActionHold
	}
}

// BuildSignal combines the technical and evidence scores into a trade
// signal. Missing data degrades to absent prices, zero size and low
// confidence; it never fails. Apart from ID the result depends only on in.
func BuildSignal(in SignalInput) model.TradeSignal {
	scorer := in.Scorer
	if scorer == nil {
		scorer = NewKeywordScorer()
	}

	techScore, techReasons, snap := ComputeTechnicalScore(in.Bars)
	evidence := make([]model.NewsItem, 0, len(in.News)+len(in.Announcements))
	evidence = append(evidence, in.News...)
	evidence = append(evidence, in.Announcements...)
	newsScore, newsReasons := scorer.Score(evidence)

	p := in.Params
	score := p.TechnicalWeight*techScore + p.NewsWeight*newsScore
	action := MapAction(score, in.Risk.AllowNewBuy, p.BuyThreshold, p.ReduceThreshold)

	var (
		entry, stop, take model.OptFloat
		sizePct           float64
	)
	if len(in.Bars) > 0 {
		last := in.Bars[len(in.Bars)-1].Close
		entry = model.Some(last)
		stop = fund.StopLossPrice(last, snap.ATR14, p.ATRStopMultiple)
		take = fund.TakeProfitPrice(last, snap.ATR14, p.ATRStopMultiple)
		sizePct = fund.PositionSizePct(in.Equity, last, snap.ATR14, p.RiskPerTrade, p.ATRStopMultiple)
	}

	urls := make([]string, 0, maxEvidence)
	for _, item := range evidence {
		if len(urls) == maxEvidence {
			break
		}
		urls = append(urls, item.URL)
	}

	reasons := make([]string, 0, len(techReasons)+len(newsReasons)+1)
	reasons = append(reasons, techReasons...)
	reasons = append(reasons, newsReasons...)
	if !in.Risk.AllowNewBuy {
		reasons = append(reasons, ReasonBuySuspended)
	}

	low := len(in.Bars) < lowConfidenceBars || len(urls) < lowConfidenceLinks
	confidence := Confidence(len(in.Bars), len(urls), low)

	ts := in.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return model.TradeSignal{
		ID:              uuid.NewString(),
		Symbol:          in.Symbol,
		Time:            ts,
		Action:          action,
		Entry:           entry,
		StopLoss:        stop,
		TakeProfit:      take,
		Confidence:      confidence,
		Score:           Round4(score),
		Reasons:         reasons,
		EvidenceURLs:    urls,
		PositionSizePct: Round4(sizePct),
		LowConfidence:   low,
	}
}

// Confidence grows with evidence and history. Low-confidence signals are
// capped at 0.55.
func Confidence(barCount, evidenceCount int, low bool) float64 {
	c := baseConfidence + math.Min(evidenceBonusCap, float64(evidenceCount)*confidencePerLink)
	if barCount >= longHistoryBars {
		c += longHistoryBonus
	}
	c = calculator.Clamp(c, 0, 1)
	if low {
		c = math.Min(c, lowConfidenceCap)
	}
	return c
}

// Round4 rounds half away from zero to 4 decimals.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
