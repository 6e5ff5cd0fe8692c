package usecase

import (
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/avk/trade_sim_desk/internal/domain"
)

// tapeVolumeThreshold is the minimum synthetic volume that prints on the
// tape for the displayed symbol.
const tapeVolumeThreshold = 500

// SimulationClock drives the repeating tick that advances every symbol in
// simulation scope. It is a self-rescheduling timer, not a fixed-rate loop:
// each cycle re-arms with an interval derived from the displayed symbol's
// base volatility, so a slow tick delays the next one instead of
// overlapping it.
type SimulationClock struct {
	cfg     SimConfig
	catalog *domain.Catalog
	market  *MarketService
	ledger  *LedgerService
	engine  *TickEngine
	newsGen *NewsGenerator
	logger  *zap.Logger
	timeNow func() time.Time
	rng     *rand.Rand

	mu            sync.Mutex
	running       bool
	stopCh        chan struct{}
	wg            sync.WaitGroup
	lastNewsCheck time.Time

	// onTick has its own lock: the tick goroutine reads it while Stop may
	// be holding mu waiting for that same goroutine to finish.
	hookMu sync.Mutex
	onTick func() // observer hook, invoked after each completed tick
}

func NewSimulationClock(cfg SimConfig, catalog *domain.Catalog, market *MarketService, ledger *LedgerService, engine *TickEngine, newsGen *NewsGenerator, logger *zap.Logger) *SimulationClock {
	return &SimulationClock{
		cfg:     cfg.withDefaults(),
		catalog: catalog,
		market:  market,
		ledger:  ledger,
		engine:  engine,
		newsGen: newsGen,
		logger:  logger,
		timeNow: time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetOnTick installs a hook run after every tick, e.g. to push a state
// snapshot to websocket subscribers.
func (c *SimulationClock) SetOnTick(fn func()) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onTick = fn
}

// Interval computes the tick delay for a symbol: higher base volatility
// yields a faster tick, bounded to [MinInterval, MaxInterval].
func (c *SimulationClock) Interval(symbol string) time.Duration {
	cfg := c.catalog.Lookup(symbol)

	normalized := math.Min(cfg.BaseVol, c.cfg.VolCap) / c.cfg.VolCap
	ms := float64(c.cfg.MaxIntervalMs) - float64(c.cfg.MaxIntervalMs-c.cfg.MinIntervalMs)*normalized

	return time.Duration(math.Round(ms)) * time.Millisecond
}

// Start arms the tick timer. If the clock is already running the previous
// timer is cancelled first, so Start is safe to call at any time. Every
// symbol in scope is seeded with its start price, making the first
// published price exactly the configured startPrice before any tick fires.
// clearNews controls whether active news survives the restart.
func (c *SimulationClock) Start(clearNews bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()

	if clearNews {
		c.market.ClearNews()
	}

	scope := c.market.SymbolsInScope()
	displayed := c.market.Symbol()
	inScope := false
	for _, sym := range scope {
		if sym == displayed {
			inScope = true
			break
		}
	}
	if !inScope && len(scope) > 0 {
		c.market.SetSymbol(scope[0])
	}
	c.market.SetTimeframe("5s")

	for _, sym := range scope {
		c.market.SeedPrice(sym, c.catalog.Lookup(sym).StartPrice)
	}

	c.running = true
	c.stopCh = make(chan struct{})
	c.lastNewsCheck = c.timeNow()

	c.logger.Info("simulation started",
		zap.Strings("symbols", scope),
		zap.Duration("interval", c.Interval(c.market.Symbol())))

	c.wg.Add(1)
	go c.run(c.stopCh)
}

// Stop is a hard cancel: the timer is cleared and all published live state
// (prices, book, tape, active news) is reset. Profile ledgers survive.
func (c *SimulationClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.market.ResetLive()
	c.logger.Info("simulation stopped")
}

func (c *SimulationClock) stopLocked() {
	if !c.running {
		return
	}
	close(c.stopCh)
	c.wg.Wait()
	c.running = false
}

func (c *SimulationClock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *SimulationClock) run(stopCh chan struct{}) {
	defer c.wg.Done()

	timer := time.NewTimer(c.Interval(c.market.Symbol()))
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-timer.C:
			c.tick()
			// Re-arm with the interval of whatever symbol is displayed now.
			timer.Reset(c.Interval(c.market.Symbol()))
		}
	}
}

func (c *SimulationClock) tick() {
	now := c.timeNow()

	c.market.PruneNews(now)
	c.maybeGenerateNews(now)

	displayed := c.market.Symbol()
	activeNews := c.market.ActiveNews()
	globalVol := c.market.GlobalVolMult()

	for _, sym := range c.market.SymbolsInScope() {
		cur, ok := c.market.Price(sym)
		if !ok {
			cur = c.catalog.Lookup(sym).StartPrice
		}

		res := c.engine.Advance(sym, cur, globalVol, activeNews)

		c.market.PublishTick(sym, res.Price, res.Book)

		c.ledger.AppendCandle(sym, domain.Candle{
			Time:   now.Unix(),
			Open:   cur,
			High:   math.Max(cur, res.Price),
			Low:    math.Min(cur, res.Price),
			Close:  res.Price,
			Volume: res.Volume,
		})

		if sym == displayed && res.Volume > tapeVolumeThreshold {
			c.market.PrependTape(domain.TapeEntry{
				Time:   FormatTapeTime(now),
				Symbol: sym,
				Side:   res.Side,
				Size:   res.Volume,
				Price:  formatPrice(res.Price),
				IsUser: false,
			})
		}
	}

	c.hookMu.Lock()
	onTick := c.onTick
	c.hookMu.Unlock()
	if onTick != nil {
		onTick()
	}
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 3, 64)
}

// maybeGenerateNews rolls for a news event once per check window. Only the
// host instance generates; the result is broadcast and merged through the
// same path a remote item takes.
func (c *SimulationClock) maybeGenerateNews(now time.Time) {
	if !c.market.IsHost() {
		return
	}
	if now.Sub(c.lastNewsCheck) < time.Duration(c.cfg.NewsCheckMs)*time.Millisecond {
		return
	}
	c.lastNewsCheck = now

	if c.rng.Float64() >= c.cfg.NewsProbability {
		return
	}

	news := c.newsGen.Generate()
	c.logger.Info("news event", zap.String("headline", news.Headline), zap.Strings("targets", news.Targets))
	c.market.BroadcastNews(news)
}
