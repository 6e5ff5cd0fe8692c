package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/avk/trade_sim_desk/internal/domain"
)

const activeProfileKey = "active_profile"

// SQLiteStore persists profile ledgers. Positions, markers, history and
// chart data are per-profile documents, stored as JSON columns. Live
// market state (prices, book, tape, news) has no table on purpose.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			cash REAL NOT NULL,
			positions TEXT NOT NULL DEFAULT '{}',
			trade_markers TEXT NOT NULL DEFAULT '{}',
			history TEXT NOT NULL DEFAULT '[]',
			chart_data TEXT NOT NULL DEFAULT '{}',
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, profile *domain.ProfileData) error {
	positions, err := json.Marshal(profile.Positions)
	if err != nil {
		return fmt.Errorf("failed to marshal positions: %w", err)
	}
	markers, err := json.Marshal(profile.TradeMarkers)
	if err != nil {
		return fmt.Errorf("failed to marshal trade markers: %w", err)
	}
	history, err := json.Marshal(profile.History)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	chartData, err := json.Marshal(profile.ChartData)
	if err != nil {
		return fmt.Errorf("failed to marshal chart data: %w", err)
	}

	query := `INSERT INTO profiles (id, name, cash, positions, trade_markers, history, chart_data, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				cash = excluded.cash,
				positions = excluded.positions,
				trade_markers = excluded.trade_markers,
				history = excluded.history,
				chart_data = excluded.chart_data,
				updated_at = excluded.updated_at`
	_, err = s.db.ExecContext(ctx, query,
		profile.ID, profile.Name, profile.Cash,
		string(positions), string(markers), string(history), string(chartData),
		time.Now().UTC())
	return err
}

func (s *SQLiteStore) LoadProfiles(ctx context.Context) ([]*domain.ProfileData, error) {
	query := `SELECT id, name, cash, positions, trade_markers, history, chart_data FROM profiles ORDER BY updated_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*domain.ProfileData
	for rows.Next() {
		var (
			p                                     domain.ProfileData
			positions, markers, history, chartRaw string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Cash, &positions, &markers, &history, &chartRaw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(positions), &p.Positions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal positions for %s: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(markers), &p.TradeMarkers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trade markers for %s: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(history), &p.History); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history for %s: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(chartRaw), &p.ChartData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chart data for %s: %w", p.ID, err)
		}
		if p.Positions == nil {
			p.Positions = make(map[string]domain.Position)
		}
		if p.TradeMarkers == nil {
			p.TradeMarkers = make(map[string][]domain.TradeMarker)
		}
		if p.ChartData == nil {
			p.ChartData = make(map[string][]domain.Candle)
		}
		profiles = append(profiles, &p)
	}
	return profiles, rows.Err()
}

func (s *SQLiteStore) DeleteProfile(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) SaveActiveProfile(ctx context.Context, id string) error {
	query := `INSERT INTO meta (key, value) VALUES (?, ?)
			  ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	_, err := s.db.ExecContext(ctx, query, activeProfileKey, id)
	return err
}

func (s *SQLiteStore) LoadActiveProfile(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, activeProfileKey).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
