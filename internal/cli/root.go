package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/hyson0807/isolog/internal/config"
	"github.com/hyson0807/isolog/internal/db"
	"github.com/hyson0807/isolog/internal/logger"
	"github.com/hyson0807/isolog/internal/models"
	"github.com/hyson0807/isolog/internal/notify"
	"github.com/hyson0807/isolog/internal/security"
	"github.com/hyson0807/isolog/internal/services"
	"gorm.io/gorm"
)

// Context is handed to every command's Run method.
type Context struct {
	ConfigPath string
	Config     *config.Config
	Out        io.Writer
}

// LoadContext reads the config file and starts logging.
func LoadContext(configPath string, debug bool, out io.Writer) (*Context, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Log.Debug = true
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = filepath.Join(filepath.Dir(configPath), "logs")
	}
	if err := logger.Init(logger.Config{Debug: cfg.Log.Debug, Dir: cfg.Log.Dir}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &Context{ConfigPath: configPath, Config: cfg, Out: out}, nil
}

// runtime is the storage, scheduler and engine shared by the commands.
type runtime struct {
	database  *gorm.DB
	scheduler *notify.LocalScheduler
	engine    *services.Engine
}

func openRuntime(ctx context.Context, appCtx *Context, dispatcher notify.Dispatcher) (*runtime, error) {
	location, err := appCtx.Config.Location()
	if err != nil {
		return nil, err
	}

	database, err := db.OpenSQLite(appCtx.Config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	scheduler := notify.NewLocalScheduler(location, dispatcher)
	engine := services.NewEngine(db.NewRepositories(database).KV, scheduler, services.EngineConfig{
		Location:      location,
		LookaheadDays: appCtx.Config.LookaheadDays,
	})
	engine.Load(ctx)
	// permission only lives in the scheduler's memory; stored preferences can
	// only be enabled after a grant, so they stand in for it across restarts
	if engine.Preferences().Enabled && dispatcher != nil {
		if err := scheduler.SetPermission(models.PermissionGranted); err != nil {
			engine.Stop()
			if sqlDB, dbErr := database.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, err
		}
	}

	return &runtime{database: database, scheduler: scheduler, engine: engine}, nil
}

// Close drains pending writes before the database goes away.
func (rt *runtime) Close() {
	rt.engine.Stop()
	rt.scheduler.Stop()
	if sqlDB, err := rt.database.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// resolveAPISecret finds the token signing secret. A secret that could not go
// into the keyring is written to the config file instead.
func resolveAPISecret(appCtx *Context) (string, error) {
	secret, source, err := security.ResolveSecret(appCtx.Config.SecretKey)
	if err != nil {
		return "", err
	}
	logger.Debug("api secret resolved", "source", source)

	if source == security.SecretGeneratedUnstored {
		logger.Warn("keyring unavailable, storing api secret in config", "path", appCtx.ConfigPath)
		appCtx.Config.SecretKey = secret
		if err := appCtx.Config.Save(appCtx.ConfigPath); err != nil {
			return "", fmt.Errorf("save api secret: %w", err)
		}
	}
	return secret, nil
}
