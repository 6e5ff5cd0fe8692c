package usecase

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avk/trade_sim_desk/internal/domain"
)

const notificationCap = 5

// timeframeSeconds maps a chart timeframe to its candle bucket width.
var timeframeSeconds = map[string]int64{
	"5s": 5, "15s": 15, "30s": 30, "1m": 60, "5m": 300,
}

// MarketService owns the ephemeral, published market state: current prices,
// order-book snapshots, the tape, active news and the notification queue.
// The simulation clock is its single writer; the UI layer and the ledger
// read from it. None of this state is ever persisted.
type MarketService struct {
	catalog *domain.Catalog
	logger  *zap.Logger

	mu            sync.RWMutex
	symbol        string
	timeframe     string
	prices        map[string]float64
	books         map[string][]domain.DOMLevel
	tape          []domain.TapeEntry
	tapeCap       int
	globalVolMult float64
	activeNews    []domain.MarketNews
	notifications []domain.Notification

	drafted map[string][]string
	isHost  bool

	broadcaster domain.NewsBroadcaster
}

func NewMarketService(catalog *domain.Catalog, cfg SimConfig, logger *zap.Logger) *MarketService {
	cfg = cfg.withDefaults()
	return &MarketService{
		catalog:       catalog,
		logger:        logger,
		symbol:        "NEXUS",
		timeframe:     "5s",
		prices:        make(map[string]float64),
		books:         make(map[string][]domain.DOMLevel),
		tapeCap:       cfg.TapeCap,
		globalVolMult: 1.0,
		isHost:        true, // a single-player instance is its own news authority
	}
}

// SetBroadcaster installs the hook that carries host-generated news toward
// the multiplayer coordinator.
func (s *MarketService) SetBroadcaster(b domain.NewsBroadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcaster = b
}

func (s *MarketService) Symbol() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.symbol
}

// SetSymbol switches the displayed symbol. The clock picks up the matching
// tick interval on its next re-arm.
func (s *MarketService) SetSymbol(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbol = symbol
}

func (s *MarketService) Timeframe() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeframe
}

func (s *MarketService) SetTimeframe(tf string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeframe = tf
}

// CandleBucket returns the candle-bucket timestamp for the active timeframe
// at the given instant. Unknown timeframes bucket to one minute.
func (s *MarketService) CandleBucket(now time.Time) int64 {
	s.mu.RLock()
	tf := s.timeframe
	s.mu.RUnlock()

	seconds, ok := timeframeSeconds[tf]
	if !ok {
		seconds = 60
	}
	return now.Unix() / seconds * seconds
}

// Price returns the current simulated price for a symbol, if one has been
// published since the simulation started.
func (s *MarketService) Price(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[symbol]
	return p, ok
}

func (s *MarketService) Prices() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.prices))
	for sym, p := range s.prices {
		out[sym] = p
	}
	return out
}

// SeedPrice publishes a symbol's starting price before the first tick.
func (s *MarketService) SeedPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
	s.books[symbol] = nil
}

// PublishTick atomically publishes a new price and book snapshot.
func (s *MarketService) PublishTick(symbol string, price float64, book []domain.DOMLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
	s.books[symbol] = book
}

func (s *MarketService) Book(symbol string) []domain.DOMLevel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	book := s.books[symbol]
	out := make([]domain.DOMLevel, len(book))
	copy(out, book)
	return out
}

// PrependTape pushes a trade onto the front of the tape, dropping the
// oldest entry past the cap.
func (s *MarketService) PrependTape(entry domain.TapeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tape = append([]domain.TapeEntry{entry}, s.tape...)
	if len(s.tape) > s.tapeCap {
		s.tape = s.tape[:s.tapeCap]
	}
}

func (s *MarketService) Tape() []domain.TapeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TapeEntry, len(s.tape))
	copy(out, s.tape)
	return out
}

func (s *MarketService) GlobalVolMult() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.globalVolMult
}

// AddNews merges a news item into the active set, regardless of whether it
// originated locally or from a remote broadcast, and surfaces the headline
// on the notification queue.
func (s *MarketService) AddNews(news domain.MarketNews) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeNews = append(s.activeNews, news)
	s.logger.Info("market news active",
		zap.String("headline", news.Headline),
		zap.Strings("targets", news.Targets),
		zap.Int64("duration_sec", news.DurationSec))
	s.pushNotificationLocked(domain.Notification{
		ID:      news.ID,
		Message: news.Headline,
		Type:    domain.NotificationInfo,
	})
}

// BroadcastNews hands a host-generated item to the coordinator hook without
// blocking the caller, then merges it locally through the same path a
// remote item would take.
func (s *MarketService) BroadcastNews(news domain.MarketNews) {
	s.mu.RLock()
	b := s.broadcaster
	s.mu.RUnlock()

	if b != nil {
		go b.BroadcastNews(news)
	}
	s.AddNews(news)
}

func (s *MarketService) ActiveNews() []domain.MarketNews {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MarketNews, len(s.activeNews))
	copy(out, s.activeNews)
	return out
}

// PruneNews drops every item whose effect window has elapsed.
func (s *MarketService) PruneNews(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.activeNews[:0]
	for _, n := range s.activeNews {
		if n.Active(now) {
			kept = append(kept, n)
		}
	}
	s.activeNews = kept
}

func (s *MarketService) ClearNews() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeNews = nil
}

// PushNotification queues a user-facing message. The queue keeps only the
// newest entries.
func (s *MarketService) PushNotification(message string, typ domain.NotificationType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushNotificationLocked(domain.Notification{
		ID:      uuid.NewString(),
		Message: message,
		Type:    typ,
	})
}

func (s *MarketService) pushNotificationLocked(n domain.Notification) {
	s.notifications = append(s.notifications, n)
	if len(s.notifications) > notificationCap {
		s.notifications = s.notifications[len(s.notifications)-notificationCap:]
	}
}

// DismissNotification pops the oldest queued message.
func (s *MarketService) DismissNotification() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.notifications) > 0 {
		s.notifications = s.notifications[1:]
	}
}

func (s *MarketService) Notifications() []domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

func (s *MarketService) IsHost() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isHost
}

// SetHost flips the news-authority role. Assigned by the external lobby
// coordinator; only the host generates news.
func (s *MarketService) SetHost(isHost bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isHost = isHost
}

// SetDraftedSymbols narrows the simulation universe to the union of the
// participants' drafted tickers. Nil restores the full catalog.
func (s *MarketService) SetDraftedSymbols(picks map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafted = picks
}

// SymbolsInScope returns the symbols the clock should advance: the union of
// drafted tickers when a draft is active, otherwise the full catalog.
func (s *MarketService) SymbolsInScope() []string {
	s.mu.RLock()
	drafted := s.drafted
	s.mu.RUnlock()

	if len(drafted) == 0 {
		return s.catalog.Symbols()
	}

	seen := make(map[string]bool)
	var out []string
	for _, picks := range drafted {
		for _, sym := range picks {
			if !seen[sym] {
				seen[sym] = true
				out = append(out, sym)
			}
		}
	}
	if len(out) == 0 {
		return s.catalog.Symbols()
	}
	return out
}

// ResetLive clears every piece of published simulation state. Profile
// ledgers are untouched; this is used on stop and on profile switch to
// force a clean resync.
func (s *MarketService) ResetLive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = make(map[string]float64)
	s.books = make(map[string][]domain.DOMLevel)
	s.tape = nil
	s.activeNews = nil
}

// FormatTapeTime renders a tape timestamp as wall clock with a millisecond
// suffix, matching what the tape panel displays.
func FormatTapeTime(now time.Time) string {
	return fmt.Sprintf("%s.%03d", now.Format("15:04:05"), now.Nanosecond()/1e6)
}
