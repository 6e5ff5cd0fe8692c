package domain

// Candle is one OHLCV entry in a symbol's chart history.
type Candle struct {
	Time   int64   `json:"time"` // unix seconds
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// DOMLevel is one synthetic order-book rung. The book is regenerated
// wholesale every tick, never incrementally updated.
type DOMLevel struct {
	Price   float64 `json:"price"`
	BidSize float64 `json:"bid_size"`
	AskSize float64 `json:"ask_size"`
}

// TapeEntry is one printed trade on the time & sales tape.
type TapeEntry struct {
	Time   string    `json:"time"` // wall clock with ms suffix
	Symbol string    `json:"symbol"`
	Side   OrderSide `json:"side"`
	Size   float64   `json:"size"`
	Price  string    `json:"price"`
	IsUser bool      `json:"is_user"`
}

type NotificationType string

const (
	NotificationError NotificationType = "error"
	NotificationInfo  NotificationType = "info"
)

// Notification is a transient user-facing message. The queue is bounded;
// overflow drops the oldest entry.
type Notification struct {
	ID      string           `json:"id"`
	Message string           `json:"message"`
	Type    NotificationType `json:"type"`
}
