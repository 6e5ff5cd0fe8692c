package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/avk/trade_sim_desk/internal/domain"
	"github.com/avk/trade_sim_desk/internal/infrastructure/logger"
	"github.com/avk/trade_sim_desk/internal/infrastructure/storage"
	"github.com/avk/trade_sim_desk/internal/usecase"
	"github.com/avk/trade_sim_desk/internal/web"
)

type Config struct {
	Simulation struct {
		MinIntervalMs   int     `yaml:"min_interval_ms"`
		MaxIntervalMs   int     `yaml:"max_interval_ms"`
		VolCap          float64 `yaml:"vol_cap"`
		ReversionRate   float64 `yaml:"reversion_rate"`
		NoiseCoeff      float64 `yaml:"noise_coeff"`
		MinPrice        float64 `yaml:"min_price"`
		NewsProbability float64 `yaml:"news_probability"`
		NewsCheckMs     int     `yaml:"news_check_ms"`
		CandleCap       int     `yaml:"candle_cap"`
		TapeCap         int     `yaml:"tape_cap"`
		Autostart       bool    `yaml:"autostart"`
	} `yaml:"simulation"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	cfg, err := loadConfig("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = "sim.db"
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	simCfg := usecase.SimConfig{
		MinIntervalMs:   cfg.Simulation.MinIntervalMs,
		MaxIntervalMs:   cfg.Simulation.MaxIntervalMs,
		VolCap:          cfg.Simulation.VolCap,
		ReversionRate:   cfg.Simulation.ReversionRate,
		NoiseCoeff:      cfg.Simulation.NoiseCoeff,
		MinPrice:        cfg.Simulation.MinPrice,
		NewsProbability: cfg.Simulation.NewsProbability,
		NewsCheckMs:     cfg.Simulation.NewsCheckMs,
		CandleCap:       cfg.Simulation.CandleCap,
		TapeCap:         cfg.Simulation.TapeCap,
	}

	catalog := domain.DefaultCatalog()
	market := usecase.NewMarketService(catalog, simCfg, log)
	ledger := usecase.NewLedgerService(store, market, catalog, simCfg, log)
	engine := usecase.NewTickEngine(catalog, simCfg)
	newsGen := usecase.NewNewsGenerator()
	clock := usecase.NewSimulationClock(simCfg, catalog, market, ledger, engine, newsGen, log)

	if err := ledger.Load(context.Background()); err != nil {
		log.Error("Failed to load profiles, starting fresh", zap.Error(err))
	}

	hub := web.NewStreamHub(log)
	market.SetBroadcaster(hub)

	server := web.NewServer(cfg.Server.Port, market, ledger, clock, hub, log)
	clock.SetOnTick(server.PushState)

	if cfg.Simulation.Autostart {
		clock.Start(true)
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	clock.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Shutdown error", zap.Error(err))
	}
}
