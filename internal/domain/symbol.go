package domain

import "sort"

// SymbolConfig holds the static market parameters for one tradable symbol.
type SymbolConfig struct {
	Mean       float64 `json:"mean"` // mean-reversion target price
	StartPrice float64 `json:"start_price"`
	BaseVol    float64 `json:"base_vol"` // relative volatility scale
	TickSize   float64 `json:"tick_size"`
	Commission float64 `json:"commission"`  // flat fee per closing trade
	MarginRate float64 `json:"margin_rate"` // fraction of notional reserved
	MinSize    int     `json:"min_size"`
	MaxSize    int     `json:"max_size"`
}

// Catalog is a static lookup of symbol parameters with a fallback for
// unknown tickers.
type Catalog struct {
	symbols  map[string]SymbolConfig
	order    []string
	fallback SymbolConfig
}

// DefaultCatalog returns the built-in symbol universe.
// Tier 1 symbols are fast and high volume (high baseVol, low commission);
// tier 2 are slow and low volume.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[string]SymbolConfig{
		"AXION":   {Mean: 85, StartPrice: 85.50, BaseVol: 1.8, TickSize: 0.01, Commission: 5, MarginRate: 0.01, MinSize: 100, MaxSize: 10000},
		"HELIX":   {Mean: 500, StartPrice: 502.35, BaseVol: 0.8, TickSize: 0.01, Commission: 500, MarginRate: 0.05, MinSize: 5, MaxSize: 1000},
		"BONG":    {Mean: 500, StartPrice: 502.35, BaseVol: 0.5, TickSize: 0.01, Commission: 1000, MarginRate: 0.10, MinSize: 1, MaxSize: 500},
		"COLLING": {Mean: 500, StartPrice: 502.35, BaseVol: 1.0, TickSize: 0.01, Commission: 250, MarginRate: 0.03, MinSize: 10, MaxSize: 5000},
		"WOOD":    {Mean: 500, StartPrice: 502.35, BaseVol: 0.6, TickSize: 0.01, Commission: 750, MarginRate: 0.07, MinSize: 1, MaxSize: 1000},
		"NEXUS":   {Mean: 500, StartPrice: 502.35, BaseVol: 2.5, TickSize: 0.01, Commission: 10, MarginRate: 0.01, MinSize: 100, MaxSize: 50000},
	})
}

// NewCatalog builds a catalog from an explicit symbol table.
func NewCatalog(symbols map[string]SymbolConfig) *Catalog {
	order := make([]string, 0, len(symbols))
	for sym := range symbols {
		order = append(order, sym)
	}
	// Stable iteration order for the simulation loop.
	sort.Strings(order)

	return &Catalog{
		symbols: symbols,
		order:   order,
		fallback: SymbolConfig{
			Mean: 500, StartPrice: 500, BaseVol: 1, TickSize: 0.05,
			Commission: 5, MarginRate: 0.05, MinSize: 1, MaxSize: 10000,
		},
	}
}

// Lookup returns the config for a symbol, or the fallback config if the
// symbol is unknown.
func (c *Catalog) Lookup(symbol string) SymbolConfig {
	if cfg, ok := c.symbols[symbol]; ok {
		return cfg
	}
	return c.fallback
}

// Symbols returns all catalog tickers in a stable order.
func (c *Catalog) Symbols() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
