package web

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/avk/trade_sim_desk/internal/usecase"
)

// Server exposes the engine's read and command surface to the rendering
// client: JSON endpoints plus a websocket state stream.
type Server struct {
	router *http.ServeMux
	server *http.Server
	market *usecase.MarketService
	ledger *usecase.LedgerService
	clock  *usecase.SimulationClock
	hub    *StreamHub
	logger *zap.Logger
}

func NewServer(
	port int,
	market *usecase.MarketService,
	ledger *usecase.LedgerService,
	clock *usecase.SimulationClock,
	hub *StreamHub,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router: http.NewServeMux(),
		market: market,
		ledger: ledger,
		clock:  clock,
		hub:    hub,
		logger: logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Reads
	s.router.HandleFunc("GET /api/state", s.handleState)
	s.router.HandleFunc("GET /api/candles", s.handleCandles)
	s.router.HandleFunc("GET /api/history", s.handleHistory)
	s.router.HandleFunc("GET /api/profiles", s.handleProfiles)
	s.router.HandleFunc("GET /api/news", s.handleNews)

	// Trading
	s.router.HandleFunc("POST /api/order", s.handleOrder)
	s.router.HandleFunc("POST /api/close/{symbol}", s.handleClose)

	// Profiles
	s.router.HandleFunc("POST /api/profiles", s.handleCreateProfile)
	s.router.HandleFunc("DELETE /api/profiles/{id}", s.handleDeleteProfile)
	s.router.HandleFunc("POST /api/profiles/{id}/switch", s.handleSwitchProfile)

	// Display
	s.router.HandleFunc("POST /api/symbol", s.handleSetSymbol)
	s.router.HandleFunc("POST /api/timeframe", s.handleSetTimeframe)

	// Simulation lifecycle
	s.router.HandleFunc("POST /api/sim/start", s.handleStart)
	s.router.HandleFunc("POST /api/sim/stop", s.handleStop)

	// Notifications
	s.router.HandleFunc("POST /api/notifications", s.handlePushNotification)
	s.router.HandleFunc("DELETE /api/notifications", s.handleDismissNotification)

	// Multiplayer coordinator surface
	s.router.HandleFunc("POST /api/coop/host", s.handleSetHost)
	s.router.HandleFunc("POST /api/coop/draft", s.handleSetDraft)
	s.router.HandleFunc("POST /api/coop/news", s.handleRemoteNews)

	// State stream
	s.router.HandleFunc("GET /ws", s.hub.HandleWS)
}

// PushState broadcasts the current state snapshot to stream subscribers.
// Wired as the simulation clock's per-tick hook.
func (s *Server) PushState() {
	s.hub.BroadcastState(s.snapshot())
}

func (s *Server) Start() error {
	s.logger.Info("starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.server.Shutdown(ctx)
}
