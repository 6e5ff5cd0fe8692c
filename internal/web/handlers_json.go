package web

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/avk/trade_sim_desk/internal/domain"
)

// StateSnapshot is the full read model the client polls or receives over
// the websocket stream on every tick.
type StateSnapshot struct {
	Symbol        string                `json:"symbol"`
	Timeframe     string                `json:"timeframe"`
	IntervalMs    int64                 `json:"interval_ms"`
	Running       bool                  `json:"running"`
	Prices        map[string]float64    `json:"prices"`
	Book          []domain.DOMLevel     `json:"book"` // displayed symbol
	Tape          []domain.TapeEntry    `json:"tape"`
	ActiveNews    []domain.MarketNews   `json:"active_news"`
	Notifications []domain.Notification `json:"notifications"`

	Cash          float64                    `json:"cash"`
	Positions     map[string]domain.Position `json:"positions"`
	UnrealizedPnL float64                    `json:"unrealized_pnl"`
}

func (s *Server) snapshot() StateSnapshot {
	symbol := s.market.Symbol()
	snap := StateSnapshot{
		Symbol:        symbol,
		Timeframe:     s.market.Timeframe(),
		IntervalMs:    s.clock.Interval(symbol).Milliseconds(),
		Running:       s.clock.Running(),
		Prices:        s.market.Prices(),
		Book:          s.market.Book(symbol),
		Tape:          s.market.Tape(),
		ActiveNews:    s.market.ActiveNews(),
		Notifications: s.market.Notifications(),
		UnrealizedPnL: s.ledger.UnrealizedPnL(),
	}
	if profile := s.ledger.ActiveProfile(); profile != nil {
		snap.Cash = profile.Cash
		snap.Positions = profile.Positions
	}
	return snap
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.snapshot())
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		symbol = s.market.Symbol()
	}
	profile := s.ledger.ActiveProfile()
	if profile == nil {
		s.writeJSON(w, []domain.Candle{})
		return
	}
	candles := profile.ChartData[symbol]
	if candles == nil {
		candles = []domain.Candle{}
	}
	s.writeJSON(w, struct {
		Symbol  string               `json:"symbol"`
		Candles []domain.Candle      `json:"candles"`
		Markers []domain.TradeMarker `json:"markers"`
	}{symbol, candles, profile.TradeMarkers[symbol]})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	profile := s.ledger.ActiveProfile()
	if profile == nil {
		s.writeJSON(w, []domain.UserTrade{})
		return
	}
	history := profile.History
	if history == nil {
		history = []domain.UserTrade{}
	}
	s.writeJSON(w, history)
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	type profileSummary struct {
		ID     string  `json:"id"`
		Name   string  `json:"name"`
		Cash   float64 `json:"cash"`
		Active bool    `json:"active"`
	}
	activeID := s.ledger.ActiveProfileID()
	profiles := s.ledger.Profiles()
	out := make([]profileSummary, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, profileSummary{p.ID, p.Name, p.Cash, p.ID == activeID})
	}
	s.writeJSON(w, out)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	news := s.market.ActiveNews()
	if news == nil {
		news = []domain.MarketNews{}
	}
	s.writeJSON(w, news)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Side       domain.OrderSide `json:"side"`
		Quantity   float64          `json:"quantity"`
		StopLoss   float64          `json:"stop_loss"`
		TakeProfit float64          `json:"take_profit"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Side != domain.OrderBuy && req.Side != domain.OrderSell {
		http.Error(w, "side must be BUY or SELL", http.StatusBadRequest)
		return
	}
	s.ledger.ExecuteOrder(req.Side, req.Quantity, req.StopLoss, req.TakeProfit)
	s.writeJSON(w, s.snapshot())
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	s.ledger.ClosePosition(r.PathValue("symbol"))
	s.writeJSON(w, s.snapshot())
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.ledger.CreateProfile(req.Name)
	s.handleProfiles(w, r)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	s.ledger.DeleteProfile(r.PathValue("id"))
	s.handleProfiles(w, r)
}

func (s *Server) handleSwitchProfile(w http.ResponseWriter, r *http.Request) {
	s.ledger.SwitchProfile(r.PathValue("id"))
	s.writeJSON(w, s.snapshot())
}

func (s *Server) handleSetSymbol(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Symbol == "" {
		http.Error(w, "symbol required", http.StatusBadRequest)
		return
	}
	s.market.SetSymbol(req.Symbol)
	s.writeJSON(w, s.snapshot())
}

func (s *Server) handleSetTimeframe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Timeframe string `json:"timeframe"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.market.SetTimeframe(req.Timeframe)
	s.writeJSON(w, s.snapshot())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClearNews *bool `json:"clear_news"`
	}
	// Body is optional; default matches a fresh session start.
	clearNews := true
	if r.ContentLength > 0 {
		if !s.decode(w, r, &req) {
			return
		}
		if req.ClearNews != nil {
			clearNews = *req.ClearNews
		}
	}
	s.clock.Start(clearNews)
	s.writeJSON(w, s.snapshot())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.clock.Stop()
	s.writeJSON(w, s.snapshot())
}

func (s *Server) handlePushNotification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string                  `json:"message"`
		Type    domain.NotificationType `json:"type"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.Type == "" {
		req.Type = domain.NotificationError
	}
	s.market.PushNotification(req.Message, req.Type)
	s.writeJSON(w, s.market.Notifications())
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	s.market.DismissNotification()
	s.writeJSON(w, s.market.Notifications())
}

func (s *Server) handleSetHost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsHost bool `json:"is_host"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.market.SetHost(req.IsHost)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetDraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Picks map[string][]string `json:"picks"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.market.SetDraftedSymbols(req.Picks)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoteNews(w http.ResponseWriter, r *http.Request) {
	var news domain.MarketNews
	if !s.decode(w, r, &news) {
		return
	}
	if news.ID == "" || news.Headline == "" {
		http.Error(w, "news id and headline required", http.StatusBadRequest)
		return
	}
	s.market.AddNews(news)
	w.WriteHeader(http.StatusNoContent)
}
