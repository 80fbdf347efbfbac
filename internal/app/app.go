package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"alert-relay/internal/alerting"
	"alert-relay/internal/config"
	"alert-relay/internal/dedup"
	"alert-relay/internal/relay"
	"alert-relay/internal/server"
	"alert-relay/internal/storage"
	"alert-relay/internal/telemetry"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newTelemetryStore() *telemetry.Store {
	return telemetry.NewStore(a.Config.Telemetry.LogDir, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.DeliveryConfigured() {
		return nil
	}
	cfg := a.Config.Telegram
	return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.RequestTimeout, a.Logger)
}

func (a *App) openDeliveryLog(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running relay server.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	auditStore, closeAudit, err := a.openDeliveryLog(ctx)
	if err != nil {
		return err
	}
	if auditStore == nil {
		a.Logger.Warn().Msg("database.dsn not configured; delivery audit disabled")
	}
	if closeAudit != nil {
		defer closeAudit()
	}

	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Warn().Msg("telegram credentials not configured; delivery disabled, telemetry persistence still active")
	}

	store := a.newTelemetryStore()
	deduper := dedup.New(a.Config.Dedup.Window, a.Config.Dedup.MaxEntries, a.Logger)
	engine := alerting.NewEngine(notifier, alerting.Options{
		Retries:      a.Config.Delivery.Retries,
		Backoff:      a.Config.Delivery.Backoff,
		WarmupWindow: a.Config.Delivery.WarmupWindow,
	}, a.Logger)

	var audit storage.DeliveryLog
	if auditStore != nil {
		audit = auditStore
	}

	rl := relay.New(store, deduper, engine, audit, a.Logger)
	srv := server.New(rl, store, server.Options{
		ListenAddr:  a.Config.Server.ListenAddr,
		ReadTimeout: a.Config.Server.ReadTimeout,
	}, a.Logger)

	a.Logger.Info().Msg("starting alert relay")
	err = srv.Run(ctx, a.Config.Server.ShutdownTimeout)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("server terminated with error")
		return err
	}

	a.Logger.Info().Msg("alert relay stopped")
	return nil
}

// ExportOptions hold parameters for charting a telemetry bucket.
type ExportOptions struct {
	Bucket  string
	PNGPath string
	Symbol  string
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
