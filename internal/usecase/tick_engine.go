package usecase

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/avk/trade_sim_desk/internal/domain"
)

// SimConfig tunes the stochastic generator and the simulation clock.
type SimConfig struct {
	MinIntervalMs   int     // fastest tick for the most volatile symbol
	MaxIntervalMs   int     // slowest tick for the calmest symbol
	VolCap          float64 // baseVol cap used by the interval formula
	ReversionRate   float64 // pull toward the symbol mean per tick
	NoiseCoeff      float64 // random walk scale
	MinPrice        float64 // hard floor for simulated prices
	NewsProbability float64 // chance of a news event per check window
	NewsCheckMs     int     // how often the host rolls for news
	CandleCap       int     // chart history length per symbol
	TapeCap         int     // time & sales length
}

// DefaultSimConfig returns the tuning the game ships with.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		MinIntervalMs:   50,
		MaxIntervalMs:   250,
		VolCap:          2.5,
		ReversionRate:   0.0005,
		NoiseCoeff:      0.05,
		MinPrice:        10,
		NewsProbability: 0.10,
		NewsCheckMs:     5000,
		CandleCap:       1000,
		TapeCap:         200,
	}
}

func (c SimConfig) withDefaults() SimConfig {
	d := DefaultSimConfig()
	if c.MinIntervalMs <= 0 {
		c.MinIntervalMs = d.MinIntervalMs
	}
	if c.MaxIntervalMs <= 0 {
		c.MaxIntervalMs = d.MaxIntervalMs
	}
	if c.MaxIntervalMs < c.MinIntervalMs {
		c.MaxIntervalMs = c.MinIntervalMs
	}
	if c.VolCap <= 0 {
		c.VolCap = d.VolCap
	}
	if c.ReversionRate <= 0 {
		c.ReversionRate = d.ReversionRate
	}
	if c.NoiseCoeff <= 0 {
		c.NoiseCoeff = d.NoiseCoeff
	}
	if c.MinPrice <= 0 {
		c.MinPrice = d.MinPrice
	}
	if c.NewsProbability <= 0 {
		c.NewsProbability = d.NewsProbability
	}
	if c.NewsCheckMs <= 0 {
		c.NewsCheckMs = d.NewsCheckMs
	}
	if c.CandleCap <= 0 {
		c.CandleCap = d.CandleCap
	}
	if c.TapeCap <= 0 {
		c.TapeCap = d.TapeCap
	}
	return c
}

const (
	bookDepth      = 5    // rungs per side
	liquidityFloor = 1000 // minimum rung size
	volumeFloor    = 500  // minimum synthetic trade volume
	volumeScale    = 2000
	newsDriftScale = 10 // news drift is scaled by tickSize * this
)

// TickResult is the output of one simulation step for one symbol.
type TickResult struct {
	Price  float64
	Volume float64
	Side   domain.OrderSide
	Book   []domain.DOMLevel
}

// TickEngine generates synthetic price and liquidity movement per symbol by
// combining mean reversion, random noise and active news effects. It is
// intentionally stochastic; callers should rely on its structural
// invariants, not exact values.
type TickEngine struct {
	catalog *domain.Catalog
	cfg     SimConfig
	rng     *rand.Rand
	timeNow func() time.Time
}

func NewTickEngine(catalog *domain.Catalog, cfg SimConfig) *TickEngine {
	return &TickEngine{
		catalog: catalog,
		cfg:     cfg.withDefaults(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		timeNow: time.Now,
	}
}

// NewsImpact aggregates the effect of every active news item targeting the
// symbol (directly or via GLOBAL): drifts sum, volatility multipliers
// compose multiplicatively.
func NewsImpact(symbol string, activeNews []domain.MarketNews) (drift, volMult float64) {
	volMult = 1.0
	for _, n := range activeNews {
		if n.Affects(symbol) {
			drift += n.PriceDrift
			volMult *= n.VolMult
		}
	}
	return drift, volMult
}

// Advance computes the next price, a fresh order-book snapshot and a
// synthetic tape trade for the symbol. The returned price is always a
// positive multiple of the symbol's tick size.
func (e *TickEngine) Advance(symbol string, currentPrice, globalVolMult float64, activeNews []domain.MarketNews) TickResult {
	cfg := e.catalog.Lookup(symbol)

	newsDrift, newsVol := NewsImpact(symbol, activeNews)
	totalVol := globalVolMult * newsVol

	center := math.Round(currentPrice/cfg.TickSize) * cfg.TickSize

	baseDrift := (cfg.Mean - currentPrice) * e.cfg.ReversionRate
	noise := (e.rng.Float64() - 0.5) * e.cfg.NoiseCoeff * totalVol * cfg.BaseVol
	delta := baseDrift + noise + newsDrift*cfg.TickSize*newsDriftScale

	newPrice := math.Round((currentPrice+delta)/cfg.TickSize) * cfg.TickSize
	if newPrice < e.cfg.MinPrice {
		newPrice = e.cfg.MinPrice
	}

	book := e.synthesizeBook(center, totalVol, cfg.TickSize)

	volume := math.Floor(e.rng.Float64()*volumeScale*totalVol) + volumeFloor
	side := domain.OrderSell
	if newPrice > currentPrice {
		side = domain.OrderBuy
	}

	return TickResult{Price: newPrice, Volume: volume, Side: side, Book: book}
}

// synthesizeBook builds five bid rungs below and five ask rungs above the
// center price, sorted descending by price. Rung sizes wax and wane on a
// slow sine so the ladder breathes instead of flickering.
func (e *TickEngine) synthesizeBook(center, totalVol, tickSize float64) []domain.DOMLevel {
	nowMs := float64(e.timeNow().UnixMilli())

	book := make([]domain.DOMLevel, 0, 2*bookDepth)
	for i := 1; i <= bookDepth; i++ {
		base := 5000 + math.Abs(math.Sin(nowMs/30000+float64(i)))*3000 + e.rng.Float64()*10000
		size := math.Max(liquidityFloor, base*(1+e.rng.Float64()*0.5)*totalVol)

		book = append(book, domain.DOMLevel{Price: center + float64(i)*tickSize, AskSize: size})
		book = append(book, domain.DOMLevel{Price: center - float64(i)*tickSize, BidSize: size})
	}
	sort.Slice(book, func(i, j int) bool { return book[i].Price > book[j].Price })
	return book
}
