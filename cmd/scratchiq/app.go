package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Vodeneev/scratchiq/internal/pkg/config"
	"github.com/Vodeneev/scratchiq/internal/pkg/logging"
	"github.com/Vodeneev/scratchiq/internal/pkg/notify"
	"github.com/Vodeneev/scratchiq/internal/pkg/storage"
	"github.com/Vodeneev/scratchiq/internal/scraper/browser"
	"github.com/Vodeneev/scratchiq/internal/scraper/orchestrator"
)

// app holds the collaborators shared by the commands
type app struct {
	cfg     *config.Config
	store   *storage.GameStore
	sinks   []orchestrator.Ingestor
	closers []io.Closer
}

func loadApp(service string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{cfg: cfg}
	_, logCloser, err := logging.SetupLogger(&cfg.Logging, service)
	if err != nil {
		slog.Warn("Failed to setup logging, continuing with default logger", "error", err)
	} else {
		a.closers = append(a.closers, logCloser)
	}
	slog.Info("Config loaded", "path", configPath)
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	store, err := storage.NewGameStore(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, store)
	return nil
}

// openSinks connects the optional stream and alert sinks. A sink that cannot
// be reached is logged and left out.
func (a *app) openSinks() {
	if a.cfg.Redis.Addr != "" {
		client, err := storage.NewRedisClient(a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err != nil {
			slog.Warn("Redis stream sink disabled", "addr", a.cfg.Redis.Addr, "error", err)
		} else {
			publisher := storage.NewStreamPublisher(client, a.cfg.Redis.StreamMaxLen)
			a.sinks = append(a.sinks, publisher)
			a.closers = append(a.closers, publisher)
			slog.Info("Redis stream sink enabled", "addr", a.cfg.Redis.Addr)
		}
	}

	if a.cfg.Telegram.BotToken != "" {
		notifier, err := notify.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, notify.Options{
			Cooldown:     a.cfg.Telegram.Cooldown,
			SendInterval: a.cfg.Telegram.SendInterval,
			MaxGames:     a.cfg.Telegram.MaxGames,
		})
		if err != nil {
			slog.Warn("Telegram alerts disabled", "error", err)
		} else {
			a.sinks = append(a.sinks, notifier)
		}
	}
}

func (a *app) orchestrator(ingestor orchestrator.Ingestor, extraSinks ...orchestrator.Ingestor) *orchestrator.Orchestrator {
	return orchestrator.New(browser.ChromeLauncher{}, ingestor,
		orchestrator.WithJurisdictions(a.cfg.JurisdictionList()...),
		orchestrator.WithScrapeOptions(a.cfg.ScrapeOptions),
		orchestrator.WithSinks(append(a.sinks, extraSinks...)...),
	)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			slog.Warn("Close failed", "error", err)
		}
	}
}
