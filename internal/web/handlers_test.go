package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avk/trade_sim_desk/internal/domain"
	"github.com/avk/trade_sim_desk/internal/usecase"
)

type nopRepo struct{}

func (nopRepo) SaveProfile(ctx context.Context, p *domain.ProfileData) error { return nil }
func (nopRepo) LoadProfiles(ctx context.Context) ([]*domain.ProfileData, error) {
	return nil, nil
}
func (nopRepo) DeleteProfile(ctx context.Context, id string) error     { return nil }
func (nopRepo) SaveActiveProfile(ctx context.Context, id string) error { return nil }
func (nopRepo) LoadActiveProfile(ctx context.Context) (string, error)  { return "", nil }

func newTestServer(t *testing.T) (*Server, *usecase.MarketService, *usecase.LedgerService) {
	t.Helper()
	log := zap.NewNop()
	cfg := usecase.DefaultSimConfig()
	// Keep the timer from ever firing mid-test; assertions drive state.
	cfg.MinIntervalMs = int(time.Hour / time.Millisecond)
	cfg.MaxIntervalMs = cfg.MinIntervalMs
	catalog := domain.DefaultCatalog()

	market := usecase.NewMarketService(catalog, cfg, log)
	ledger := usecase.NewLedgerService(nopRepo{}, market, catalog, cfg, log)
	engine := usecase.NewTickEngine(catalog, cfg)
	clock := usecase.NewSimulationClock(cfg, catalog, market, ledger, engine, usecase.NewNewsGenerator(), log)
	t.Cleanup(clock.Stop)

	server := NewServer(0, market, ledger, clock, NewStreamHub(log), log)
	return server, market, ledger
}

func (s *Server) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestStateEndpoint(t *testing.T) {
	server, market, _ := newTestServer(t)
	market.SeedPrice("NEXUS", 502.35)

	rec := server.do(t, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap StateSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "NEXUS", snap.Symbol)
	assert.Equal(t, 502.35, snap.Prices["NEXUS"])
	assert.Equal(t, float64(domain.StartingCash), snap.Cash)
	assert.False(t, snap.Running)
}

func TestOrderEndpoint(t *testing.T) {
	server, market, ledger := newTestServer(t)
	market.SeedPrice("NEXUS", 500.00)

	rec := server.do(t, http.MethodPost, "/api/order", map[string]any{
		"side": "BUY", "quantity": 100,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, ledger.ActiveProfile().Positions, "NEXUS")

	rec = server.do(t, http.MethodPost, "/api/order", map[string]any{
		"side": "HOLD", "quantity": 100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCloseEndpoint(t *testing.T) {
	server, market, ledger := newTestServer(t)
	market.SeedPrice("NEXUS", 500.00)
	ledger.ExecuteOrder(domain.OrderBuy, 100, 0, 0)

	rec := server.do(t, http.MethodPost, "/api/close/NEXUS", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, ledger.ActiveProfile().Positions)
	require.Len(t, ledger.ActiveProfile().History, 1)
}

func TestProfileEndpoints(t *testing.T) {
	server, _, ledger := newTestServer(t)

	rec := server.do(t, http.MethodPost, "/api/profiles", map[string]any{"name": "Second"})
	require.Equal(t, http.StatusOK, rec.Code)
	profiles := ledger.Profiles()
	require.Len(t, profiles, 2)

	rec = server.do(t, http.MethodPost, "/api/profiles/"+profiles[1].ID+"/switch", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, profiles[1].ID, ledger.ActiveProfileID())

	rec = server.do(t, http.MethodDelete, "/api/profiles/"+profiles[1].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, ledger.Profiles(), 1)
	assert.Equal(t, "default", ledger.ActiveProfileID())
}

func TestRemoteNewsEndpoint(t *testing.T) {
	server, market, _ := newTestServer(t)

	rec := server.do(t, http.MethodPost, "/api/coop/news", map[string]any{
		"id": "n1", "headline": "Remote event", "targets": []string{"GLOBAL"},
		"price_drift": 0.05, "volatility_multiplier": 1.5, "duration": 30,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	news := market.ActiveNews()
	require.Len(t, news, 1)
	assert.Equal(t, "Remote event", news[0].Headline)

	// Malformed items are rejected before touching state.
	rec = server.do(t, http.MethodPost, "/api/coop/news", map[string]any{"id": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, market.ActiveNews(), 1)
}

func TestCoopEndpoints(t *testing.T) {
	server, market, _ := newTestServer(t)

	rec := server.do(t, http.MethodPost, "/api/coop/host", map[string]any{"is_host": false})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, market.IsHost())

	rec = server.do(t, http.MethodPost, "/api/coop/draft", map[string]any{
		"picks": map[string][]string{"alice": {"AXION"}},
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"AXION"}, market.SymbolsInScope())
}

func TestStartStopEndpoints(t *testing.T) {
	server, market, _ := newTestServer(t)

	rec := server.do(t, http.MethodPost, "/api/sim/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap StateSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.True(t, snap.Running)
	assert.Equal(t, 502.35, snap.Prices["NEXUS"])

	rec = server.do(t, http.MethodPost, "/api/sim/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	// Decode into a fresh value: Unmarshal merges into an existing map,
	// which would keep the start-time prices around.
	snap = StateSnapshot{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.False(t, snap.Running)
	assert.Empty(t, snap.Prices)
	_, ok := market.Price("NEXUS")
	assert.False(t, ok)
}
