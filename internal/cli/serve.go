package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hyson0807/isolog/internal/api"
	"github.com/hyson0807/isolog/internal/logger"
	"github.com/hyson0807/isolog/internal/notify"
)

const shutdownTimeout = 10 * time.Second

type ServeCmd struct {
	Listen string `help:"Listen address, overrides the config file." placeholder:"HOST:PORT"`
}

func (cmd *ServeCmd) Run(appCtx *Context) error {
	cfg := appCtx.Config
	if cmd.Listen != "" {
		cfg.Listen = cmd.Listen
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	dispatcher, err := newDispatcher(appCtx)
	if err != nil {
		return err
	}

	rt, err := openRuntime(sigCtx, appCtx, dispatcher)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.scheduler.Start()
	if err := rt.engine.Start(sigCtx); err != nil {
		return fmt.Errorf("engine start failed: %w", err)
	}

	secret, err := resolveAPISecret(appCtx)
	if err != nil {
		return err
	}
	handler, err := api.NewHandler(rt.engine, rt.scheduler, secret)
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}

	app := newApp(handler)

	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "err", err)
		}
	}()

	logger.Info("isolog listening",
		"addr", cfg.Listen,
		"db", cfg.DBPath,
		"tz", rt.engine.Location().String(),
		"today", rt.engine.Today().Format("2006-01-02"),
	)
	if err := app.Listen(cfg.Listen); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}

func newApp(handler *api.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "isolog",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{Output: logger.Writer()}))
	app.Use(compress.New())

	api.RegisterRoutes(app, handler)
	return app
}

func newDispatcher(appCtx *Context) (notify.Dispatcher, error) {
	telegram := appCtx.Config.Telegram
	if !telegram.Enabled() {
		logger.Info("telegram not configured, reminders go to the log")
		return notify.LogDispatcher{}, nil
	}
	dispatcher, err := notify.NewTelegramDispatcher(telegram.BotToken, telegram.ChatID)
	if err != nil {
		return nil, fmt.Errorf("telegram init failed: %w", err)
	}
	return dispatcher, nil
}
