package usecase

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avk/trade_sim_desk/internal/domain"
)

func TestGenerateStampsIdentity(t *testing.T) {
	gen := NewNewsGenerator()
	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	gen.timeNow = func() time.Time { return fixed }

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		news := gen.Generate()

		require.NotEmpty(t, news.ID)
		assert.False(t, seen[news.ID], "ids must be unique")
		seen[news.ID] = true

		assert.Equal(t, fixed, news.Time)
		assert.NotEmpty(t, news.Headline)
		assert.NotEmpty(t, news.Targets)
		assert.Greater(t, news.VolMult, 0.0)
		assert.Greater(t, news.DurationSec, int64(0))
	}
}

func TestNewsActiveWindow(t *testing.T) {
	t0 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	news := domain.MarketNews{ID: "n", Time: t0, DurationSec: 10}

	assert.True(t, news.Active(t0))
	assert.True(t, news.Active(t0.Add(10*time.Second-time.Nanosecond)))
	// Expires exactly at time + duration, never before, never after.
	assert.False(t, news.Active(t0.Add(10*time.Second)))
	assert.False(t, news.Active(t0.Add(time.Hour)))
}

func TestPruneNewsDropsExpiredOnly(t *testing.T) {
	market := NewMarketService(domain.DefaultCatalog(), DefaultSimConfig(), zap.NewNop())
	t0 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	market.AddNews(domain.MarketNews{ID: "short", Time: t0, DurationSec: 5})
	market.AddNews(domain.MarketNews{ID: "long", Time: t0, DurationSec: 60})

	market.PruneNews(t0.Add(5 * time.Second))

	active := market.ActiveNews()
	require.Len(t, active, 1)
	assert.Equal(t, "long", active[0].ID)

	market.PruneNews(t0.Add(60 * time.Second))
	assert.Empty(t, market.ActiveNews())
}

func TestAddNewsQueuesNotification(t *testing.T) {
	market := NewMarketService(domain.DefaultCatalog(), DefaultSimConfig(), zap.NewNop())

	market.AddNews(domain.MarketNews{ID: "n1", Headline: "Breaking", Time: time.Now(), DurationSec: 30})

	notes := market.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "n1", notes[0].ID)
	assert.Equal(t, "Breaking", notes[0].Message)
	assert.Equal(t, domain.NotificationInfo, notes[0].Type)
}

func TestNotificationQueueCap(t *testing.T) {
	market := NewMarketService(domain.DefaultCatalog(), DefaultSimConfig(), zap.NewNop())

	for i := 0; i < 8; i++ {
		market.PushNotification(fmt.Sprintf("msg-%d", i), domain.NotificationError)
	}

	notes := market.Notifications()
	require.Len(t, notes, 5, "overflow drops the oldest")
	assert.Equal(t, "msg-3", notes[0].Message)
	assert.Equal(t, "msg-7", notes[4].Message)

	market.DismissNotification()
	notes = market.Notifications()
	require.Len(t, notes, 4)
	assert.Equal(t, "msg-4", notes[0].Message)
}

type captureBroadcaster struct {
	ch chan domain.MarketNews
}

func (c *captureBroadcaster) BroadcastNews(news domain.MarketNews) { c.ch <- news }

func TestBroadcastNewsReachesCoordinatorAndLocalState(t *testing.T) {
	market := NewMarketService(domain.DefaultCatalog(), DefaultSimConfig(), zap.NewNop())
	capture := &captureBroadcaster{ch: make(chan domain.MarketNews, 1)}
	market.SetBroadcaster(capture)

	news := domain.MarketNews{ID: "n1", Headline: "h", Time: time.Now(), DurationSec: 30}
	market.BroadcastNews(news)

	select {
	case got := <-capture.ch:
		assert.Equal(t, news.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("broadcast never reached the coordinator hook")
	}

	// The host merges its own item through the same path as a remote one.
	require.Len(t, market.ActiveNews(), 1)
}

func TestSymbolsInScope(t *testing.T) {
	catalog := domain.DefaultCatalog()
	market := NewMarketService(catalog, DefaultSimConfig(), zap.NewNop())

	assert.Equal(t, catalog.Symbols(), market.SymbolsInScope(), "no draft means full catalog")

	market.SetDraftedSymbols(map[string][]string{
		"alice": {"NEXUS", "AXION"},
		"bob":   {"AXION", "HELIX"},
	})
	scope := market.SymbolsInScope()
	assert.Len(t, scope, 3, "drafted union is deduplicated")
	assert.ElementsMatch(t, []string{"NEXUS", "AXION", "HELIX"}, scope)

	market.SetDraftedSymbols(nil)
	assert.Equal(t, catalog.Symbols(), market.SymbolsInScope())
}
