package usecase

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avk/trade_sim_desk/internal/domain"
)

const maxProfiles = 5

// chartPersistInterval throttles how often candle appends flush the active
// profile to storage; ledger mutations always flush immediately.
const chartPersistInterval = 5 * time.Second

// LedgerService owns the set of profile ledgers, the active-profile
// selector, order execution and position closing. It is the only writer of
// cash, positions and trade history. Invalid operations are silent no-ops;
// the UI is expected to pre-validate and surface messages.
type LedgerService struct {
	repo    domain.ProfileRepository
	market  *MarketService
	catalog *domain.Catalog
	logger  *zap.Logger
	timeNow func() time.Time

	mu        sync.Mutex
	profiles  []*domain.ProfileData
	activeID  string
	candleCap int
	lastFlush time.Time
}

func NewLedgerService(repo domain.ProfileRepository, market *MarketService, catalog *domain.Catalog, cfg SimConfig, logger *zap.Logger) *LedgerService {
	cfg = cfg.withDefaults()
	def := domain.NewProfile("default", "Main Account")
	return &LedgerService{
		repo:      repo,
		market:    market,
		catalog:   catalog,
		logger:    logger,
		timeNow:   time.Now,
		profiles:  []*domain.ProfileData{def},
		activeID:  def.ID,
		candleCap: cfg.CandleCap,
	}
}

// Load replaces the in-memory profiles with what the repository holds.
// A missing or empty store keeps the default profile.
func (s *LedgerService) Load(ctx context.Context) error {
	profiles, err := s.repo.LoadProfiles(ctx)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		return nil
	}

	activeID, err := s.repo.LoadActiveProfile(ctx)
	if err != nil {
		s.logger.Warn("failed to load active profile id", zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = profiles
	s.activeID = profiles[0].ID
	for _, p := range profiles {
		if p.ID == activeID {
			s.activeID = activeID
			break
		}
	}
	return nil
}

func (s *LedgerService) activeProfileLocked() *domain.ProfileData {
	for _, p := range s.profiles {
		if p.ID == s.activeID {
			return p
		}
	}
	return nil
}

// ExecuteOrder applies a market order for the displayed symbol to the
// active profile. Same-direction adds reprice the position at the
// size-weighted average; a direction flip replaces it at the traded price
// without realizing P&L (realization happens only in ClosePosition); an
// order that nets the size to exactly zero deletes the position.
func (s *LedgerService) ExecuteOrder(side domain.OrderSide, qty float64, stopLoss, takeProfit float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.activeProfileLocked()
	if profile == nil {
		s.logger.Warn("execute order with no active profile")
		return
	}

	sym := s.market.Symbol()
	cfg := s.catalog.Lookup(sym)
	price, ok := s.market.Price(sym)
	if !ok || qty <= 0 || qty < float64(cfg.MinSize) || qty > float64(cfg.MaxSize) {
		return
	}

	signedQty := qty
	if side == domain.OrderSell {
		signedQty = -qty
	}

	now := s.timeNow()
	existing, has := profile.Positions[sym]
	newSize := existing.Size + signedQty

	if newSize == 0 {
		delete(profile.Positions, sym)
	} else {
		avgPrice := price
		if has && sameSign(existing.Size, newSize) {
			avgPrice = (existing.Size*existing.AvgPrice + signedQty*price) / newSize
		}
		entryTime := now
		if has {
			entryTime = existing.EntryTime
		}
		profile.Positions[sym] = domain.Position{
			Size:       newSize,
			AvgPrice:   avgPrice,
			EntryTime:  entryTime,
			MarginUsed: math.Abs(newSize*price) * cfg.MarginRate,
			StopLoss:   stopLoss,
			TakeProfit: takeProfit,
		}
	}

	markerSide := domain.SideShort
	if newSize > 0 {
		markerSide = domain.SideLong
	}
	profile.TradeMarkers[sym] = append(profile.TradeMarkers[sym], domain.TradeMarker{
		Time:  s.market.CandleBucket(now),
		Price: price,
		Type:  domain.MarkerEntry,
		Side:  markerSide,
		Size:  qty,
	})

	s.persistLocked(profile)
}

// ClosePosition realizes the P&L of the open position in the given symbol
// into cash, appends the closed trade to history and deletes the position.
// This is the sole path that realizes P&L. No-op without a position or a
// live price.
func (s *LedgerService) ClosePosition(sym string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.activeProfileLocked()
	if profile == nil {
		s.logger.Warn("close position with no active profile")
		return
	}

	pos, ok := profile.Positions[sym]
	if !ok {
		return
	}
	price, okP := s.market.Price(sym)
	if !okP {
		s.logger.Warn("close position without live price", zap.String("symbol", sym))
		return
	}

	cfg := s.catalog.Lookup(sym)
	now := s.timeNow()

	pnl := (price - pos.AvgPrice) * pos.Size
	profile.Cash += pnl - cfg.Commission

	trade := domain.UserTrade{
		ID:         uuid.NewString(),
		Symbol:     sym,
		Side:       pos.Side(),
		Size:       math.Abs(pos.Size),
		EntryPrice: pos.AvgPrice,
		ExitPrice:  price,
		EntryTime:  pos.EntryTime,
		ExitTime:   now,
		PnL:        pnl,
		Commission: cfg.Commission,
		NetPnL:     pnl - cfg.Commission,
	}
	profile.History = append([]domain.UserTrade{trade}, profile.History...)

	delete(profile.Positions, sym)

	profile.TradeMarkers[sym] = append(profile.TradeMarkers[sym], domain.TradeMarker{
		Time:  s.market.CandleBucket(now),
		Price: price,
		Type:  domain.MarkerExit,
		Side:  trade.Side,
		Size:  trade.Size,
	})

	s.persistLocked(profile)
}

// AppendCandle records one tick's OHLCV entry on the active profile's chart
// history for a symbol, capped to the most recent entries.
func (s *LedgerService) AppendCandle(sym string, candle domain.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.activeProfileLocked()
	if profile == nil {
		return
	}
	if profile.ChartData == nil {
		profile.ChartData = make(map[string][]domain.Candle)
	}

	candles := append(profile.ChartData[sym], candle)
	if len(candles) > s.candleCap {
		candles = candles[len(candles)-s.candleCap:]
	}
	profile.ChartData[sym] = candles

	now := s.timeNow()
	if now.Sub(s.lastFlush) >= chartPersistInterval {
		s.lastFlush = now
		s.persistLocked(profile)
	}
}

// UnrealizedPnL derives the open P&L of the active profile from published
// prices. Symbols without a live price contribute nothing.
func (s *LedgerService) UnrealizedPnL() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.activeProfileLocked()
	if profile == nil {
		return 0
	}
	var total float64
	for sym, pos := range profile.Positions {
		if price, ok := s.market.Price(sym); ok {
			total += (price - pos.AvgPrice) * pos.Size
		}
	}
	return total
}

// CreateProfile adds a new empty profile. Silently rejected at the profile
// cap or for a blank name.
func (s *LedgerService) CreateProfile(name string) {
	name = strings.TrimSpace(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" || len(s.profiles) >= maxProfiles {
		return
	}
	profile := domain.NewProfile(uuid.NewString(), name)
	s.profiles = append(s.profiles, profile)
	s.persistLocked(profile)
}

// DeleteProfile removes a profile. The last remaining profile can never be
// deleted; deleting the active one falls back to the first remaining.
func (s *LedgerService) DeleteProfile(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.profiles) <= 1 {
		return
	}

	kept := s.profiles[:0]
	found := false
	for _, p := range s.profiles {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return
	}
	s.profiles = kept

	if s.activeID == id {
		s.activeID = s.profiles[0].ID
		s.persistActiveLocked()
	}

	go func() {
		if err := s.repo.DeleteProfile(context.Background(), id); err != nil {
			s.logger.Error("failed to delete profile", zap.String("id", id), zap.Error(err))
		}
	}()
}

// SwitchProfile changes the active ledger and resets all live market state
// so the simulation resyncs cleanly. The target profile's persisted state
// is untouched.
func (s *LedgerService) SwitchProfile(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, p := range s.profiles {
		if p.ID == id {
			found = true
			break
		}
	}
	if !found {
		return
	}

	s.activeID = id
	s.market.ResetLive()
	s.persistActiveLocked()
}

func (s *LedgerService) ActiveProfileID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// ActiveProfile returns a deep copy of the active ledger.
func (s *LedgerService) ActiveProfile() *domain.ProfileData {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.activeProfileLocked()
	if profile == nil {
		return nil
	}
	return cloneProfile(profile)
}

// Profiles returns deep copies of every ledger.
func (s *LedgerService) Profiles() []*domain.ProfileData {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.ProfileData, len(s.profiles))
	for i, p := range s.profiles {
		out[i] = cloneProfile(p)
	}
	return out
}

// persistLocked saves a snapshot of the profile without blocking the
// caller. Persistence failures are logged, never propagated: the engine
// must not stall or crash on storage trouble.
func (s *LedgerService) persistLocked(profile *domain.ProfileData) {
	snapshot := cloneProfile(profile)
	go func() {
		if err := s.repo.SaveProfile(context.Background(), snapshot); err != nil {
			s.logger.Error("failed to persist profile", zap.String("id", snapshot.ID), zap.Error(err))
		}
	}()
}

func (s *LedgerService) persistActiveLocked() {
	id := s.activeID
	go func() {
		if err := s.repo.SaveActiveProfile(context.Background(), id); err != nil {
			s.logger.Error("failed to persist active profile id", zap.String("id", id), zap.Error(err))
		}
	}()
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func cloneProfile(p *domain.ProfileData) *domain.ProfileData {
	out := &domain.ProfileData{
		ID:           p.ID,
		Name:         p.Name,
		Cash:         p.Cash,
		Positions:    make(map[string]domain.Position, len(p.Positions)),
		TradeMarkers: make(map[string][]domain.TradeMarker, len(p.TradeMarkers)),
		History:      make([]domain.UserTrade, len(p.History)),
		ChartData:    make(map[string][]domain.Candle, len(p.ChartData)),
	}
	for sym, pos := range p.Positions {
		out.Positions[sym] = pos
	}
	for sym, markers := range p.TradeMarkers {
		ms := make([]domain.TradeMarker, len(markers))
		copy(ms, markers)
		out.TradeMarkers[sym] = ms
	}
	copy(out.History, p.History)
	for sym, candles := range p.ChartData {
		cs := make([]domain.Candle, len(candles))
		copy(cs, candles)
		out.ChartData[sym] = cs
	}
	return out
}
