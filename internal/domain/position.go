package domain

import "time"

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

type OrderSide string

const (
	OrderBuy  OrderSide = "BUY"
	OrderSell OrderSide = "SELL"
)

// Position represents a net open exposure in one symbol within one profile.
// Size is signed: positive means long, negative short. A position never
// exists with size zero.
type Position struct {
	Size       float64   `json:"size"`
	AvgPrice   float64   `json:"avg_price"` // volume-weighted entry price
	EntryTime  time.Time `json:"entry_time"`
	MarginUsed float64   `json:"margin_used"`           // |size*price| * marginRate
	StopLoss   float64   `json:"stop_loss,omitempty"`   // advisory only
	TakeProfit float64   `json:"take_profit,omitempty"` // advisory only
}

// Side derives the direction from the sign of the size.
func (p Position) Side() Side {
	if p.Size > 0 {
		return SideLong
	}
	return SideShort
}

// UserTrade is an immutable record of a closed position.
type UserTrade struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Size       float64   `json:"size"` // positive magnitude
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	PnL        float64   `json:"pnl"` // gross
	Commission float64   `json:"commission"`
	NetPnL     float64   `json:"net_pnl"` // PnL - Commission
}

type MarkerType string

const (
	MarkerEntry MarkerType = "entry"
	MarkerExit  MarkerType = "exit"
)

// TradeMarker is a lightweight chart annotation, bucketed to the candle
// timestamp of the timeframe active when the trade happened.
type TradeMarker struct {
	Time  int64      `json:"time"` // unix seconds, candle bucket
	Price float64    `json:"price"`
	Type  MarkerType `json:"type"`
	Side  Side       `json:"side"`
	Size  float64    `json:"size"`
}
