package usecase

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avk/trade_sim_desk/internal/domain"
)

func onTickGrid(price, tickSize float64) bool {
	return math.Abs(math.Remainder(price, tickSize)) < 1e-6
}

func TestAdvanceStructuralInvariants(t *testing.T) {
	catalog := domain.DefaultCatalog()
	engine := NewTickEngine(catalog, DefaultSimConfig())

	for _, sym := range catalog.Symbols() {
		cfg := catalog.Lookup(sym)
		price := cfg.StartPrice

		for i := 0; i < 500; i++ {
			res := engine.Advance(sym, price, 1.0, nil)

			require.Greater(t, res.Price, 0.0, "%s produced a non-positive price", sym)
			require.True(t, onTickGrid(res.Price, cfg.TickSize),
				"%s price %v is not a multiple of tick size %v", sym, res.Price, cfg.TickSize)

			require.Len(t, res.Book, 10)
			bids, asks := 0, 0
			for j, lvl := range res.Book {
				if j > 0 {
					require.Greater(t, res.Book[j-1].Price, lvl.Price, "book not sorted descending")
				}
				switch {
				case lvl.BidSize > 0 && lvl.AskSize == 0:
					bids++
					require.GreaterOrEqual(t, lvl.BidSize, float64(liquidityFloor))
				case lvl.AskSize > 0 && lvl.BidSize == 0:
					asks++
					require.GreaterOrEqual(t, lvl.AskSize, float64(liquidityFloor))
				default:
					t.Fatalf("rung %d has both or neither side populated: %+v", j, lvl)
				}
			}
			require.Equal(t, bookDepth, bids)
			require.Equal(t, bookDepth, asks)

			require.GreaterOrEqual(t, res.Volume, float64(volumeFloor))

			if res.Price > price {
				require.Equal(t, domain.OrderBuy, res.Side)
			} else {
				require.Equal(t, domain.OrderSell, res.Side)
			}

			price = res.Price
		}
	}
}

func TestAdvanceUnknownSymbolUsesFallback(t *testing.T) {
	catalog := domain.DefaultCatalog()
	engine := NewTickEngine(catalog, DefaultSimConfig())
	fallback := catalog.Lookup("UNLISTED")

	res := engine.Advance("UNLISTED", fallback.StartPrice, 1.0, nil)
	assert.True(t, onTickGrid(res.Price, fallback.TickSize))
}

func TestAdvanceRespectsMinPrice(t *testing.T) {
	catalog := domain.DefaultCatalog()
	engine := NewTickEngine(catalog, DefaultSimConfig())

	// Massive bearish news cannot push the price below the floor.
	crash := []domain.MarketNews{{
		ID: "n1", Time: time.Now(), Headline: "crash",
		Targets: []string{domain.TargetGlobal}, PriceDrift: -10000, VolMult: 1, DurationSec: 60,
	}}
	res := engine.Advance("NEXUS", 11, 1.0, crash)
	assert.GreaterOrEqual(t, res.Price, DefaultSimConfig().MinPrice)
}

func TestNewsImpactComposition(t *testing.T) {
	now := time.Now()
	news := []domain.MarketNews{
		{ID: "a", Time: now, Targets: []string{"NEXUS"}, PriceDrift: 0.15, VolMult: 2.0, DurationSec: 30},
		{ID: "b", Time: now, Targets: []string{domain.TargetGlobal}, PriceDrift: -0.05, VolMult: 1.5, DurationSec: 30},
		{ID: "c", Time: now, Targets: []string{"HELIX"}, PriceDrift: 0.99, VolMult: 9.0, DurationSec: 30},
	}

	drift, volMult := NewsImpact("NEXUS", news)
	assert.InDelta(t, 0.10, drift, 1e-9, "drifts should sum")
	assert.InDelta(t, 3.0, volMult, 1e-9, "volatility multipliers should compose multiplicatively")

	drift, volMult = NewsImpact("AXION", news)
	assert.InDelta(t, -0.05, drift, 1e-9, "only the global item targets AXION")
	assert.InDelta(t, 1.5, volMult, 1e-9)

	drift, volMult = NewsImpact("WOOD", nil)
	assert.Zero(t, drift)
	assert.Equal(t, 1.0, volMult)
}

func TestSimConfigDefaults(t *testing.T) {
	cfg := SimConfig{}.withDefaults()
	assert.Equal(t, DefaultSimConfig(), cfg)

	// Inverted bounds collapse to the minimum.
	cfg = SimConfig{MinIntervalMs: 100, MaxIntervalMs: 20}.withDefaults()
	assert.Equal(t, 100, cfg.MaxIntervalMs)
}
