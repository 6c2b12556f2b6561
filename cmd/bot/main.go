// Command bot runs the anonymous chat Telegram bot.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/TG-16/anonymous-telegram-bot/chat"
	"github.com/TG-16/anonymous-telegram-bot/config"
	"github.com/TG-16/anonymous-telegram-bot/database"
	"github.com/TG-16/anonymous-telegram-bot/logger"
	"github.com/TG-16/anonymous-telegram-bot/storage"
	"github.com/TG-16/anonymous-telegram-bot/telegram"
	tgsender "github.com/TG-16/anonymous-telegram-bot/telegram/sender"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("bot: %v", err)
	}
}

func run() error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg); err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	backend, err := openBackend(cfg)
	if err != nil {
		return err
	}

	startedAt := time.Now()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	users, err := storage.Open(ctx, backend)
	if err != nil {
		backend.Close()
		return fmt.Errorf("user store open failed: %w", err)
	}
	defer func() {
		if err := users.Close(); err != nil {
			logger.Store.Error("store close failed",
				slog.String("event", "close"),
				slog.String("err", err.Error()),
			)
		}
	}()

	dispatcher := tgsender.NewDispatcher(tgsender.Options{})
	outbox := telegram.NewOutbox(dispatcher)

	coordinator := chat.NewCoordinator(users, outbox, chat.Config{
		Cooldown:         time.Duration(cfg.Chat.CooldownMS) * time.Millisecond,
		AccountsRequired: cfg.Chat.AccountsRequired,
	})

	opts := telegram.RunOptions{
		Config:      cfg,
		Dispatcher:  dispatcher,
		Middlewares: telegram.DefaultMiddlewares(cfg, nil),
		Routes:      telegram.Routes(coordinator),
		Commands:    telegram.Commands(),
		OnStart: func(ctx context.Context, rt telegram.Runtime) error {
			outbox.Attach(rt.Bot)
			logger.L.With("component", "app").Info("app ready",
				slog.String("event", "ready"),
				slog.Int("users", users.Len()),
				slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
			)
			return nil
		},
		OnStop: func(ctx context.Context, rt telegram.Runtime) error {
			logger.L.With("component", "app").Info("shutting down...",
				slog.String("event", "shutdown"),
			)
			if err := users.Persist(); err != nil {
				logger.Store.Error("final persist failed",
					slog.String("event", "persist"),
					slog.String("err", err.Error()),
				)
			}
			return nil
		},
	}

	return telegram.Run(ctx, opts)
}

func openBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		db, err := database.Connect(cfg.Storage.Database)
		if err != nil {
			return nil, fmt.Errorf("database connect failed: %w", err)
		}
		if err := database.RunMigrations(cfg.Storage.Database); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
		return storage.NewPostgres(db), nil
	case config.BackendBadger:
		b, err := storage.OpenBadger(cfg.Storage.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("badger open failed: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}
