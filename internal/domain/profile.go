package domain

// StartingCash is the balance a freshly created profile begins with.
const StartingCash = 100000

// ProfileData is the durable ledger for one trading account: cash, open
// positions, chart annotations and closed-trade history. Live market state
// (prices, book, tape, news) deliberately lives elsewhere and is never
// part of this struct.
type ProfileData struct {
	ID           string                   `json:"id"`
	Name         string                   `json:"name"`
	Cash         float64                  `json:"cash"`
	Positions    map[string]Position      `json:"positions"`
	TradeMarkers map[string][]TradeMarker `json:"trade_markers"`
	History      []UserTrade              `json:"history"` // newest first
	ChartData    map[string][]Candle      `json:"chart_data"`
}

// NewProfile creates an empty profile with the starting balance.
func NewProfile(id, name string) *ProfileData {
	return &ProfileData{
		ID:           id,
		Name:         name,
		Cash:         StartingCash,
		Positions:    make(map[string]Position),
		TradeMarkers: make(map[string][]TradeMarker),
		History:      nil,
		ChartData:    make(map[string][]Candle),
	}
}
