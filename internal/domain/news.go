package domain

import "time"

// TargetGlobal in a news target list means the event affects every symbol.
const TargetGlobal = "GLOBAL"

// MarketNews is a time-bounded bias applied to price drift and volatility
// for the targeted symbols. Items can originate locally (generator) or from
// a remote broadcast; both merge into the same active list.
type MarketNews struct {
	ID          string    `json:"id"`
	Time        time.Time `json:"time"`
	Headline    string    `json:"headline"`
	Targets     []string  `json:"targets"`
	PriceDrift  float64   `json:"price_drift"`           // signed bias
	VolMult     float64   `json:"volatility_multiplier"` // multiplicative
	DurationSec int64     `json:"duration"`              // seconds
}

// Affects reports whether the event targets the given symbol, either
// directly or via the GLOBAL sentinel.
func (n MarketNews) Affects(symbol string) bool {
	for _, t := range n.Targets {
		if t == TargetGlobal || t == symbol {
			return true
		}
	}
	return false
}

// Active reports whether the event is still in effect at the given instant.
// The event expires exactly when time + duration <= now.
func (n MarketNews) Active(now time.Time) bool {
	return now.Before(n.Time.Add(time.Duration(n.DurationSec) * time.Second))
}
