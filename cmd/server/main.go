package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/yourname/skilltracker/internal"
	"github.com/yourname/skilltracker/internal/api"
	"github.com/yourname/skilltracker/internal/auth"
	"github.com/yourname/skilltracker/internal/config"
	"github.com/yourname/skilltracker/internal/storage"
)

func main() {
	cfg := config.Load()

	logger, err := internal.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	var repos *storage.Repositories
	var closer interface{ Close() error }

	switch cfg.DBType {
	case "postgres":
		repos, closer, err = openPostgres(cfg, logger)
	default:
		repos, closer, err = openFile(cfg, logger)
	}
	if err != nil {
		logger.Fatalf("failed to init storage (%s): %v", cfg.DBType, err)
	}

	provider := auth.NewJWTProvider(cfg.JWTSecret, 24*time.Hour, logger)
	app := api.NewApp(logger, repos, provider)
	r := api.Router(app)

	go func() {
		logger.Infof("server running on :%s (backend=%s)", cfg.Port, cfg.DBType)
		if err := r.Run(":" + cfg.Port); err != nil {
			logger.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := closer.Close(); err != nil {
		logger.Errorf("failed to close storage: %v", err)
	}
}

func openFile(cfg *config.Config, logger internal.Logger) (*storage.Repositories, interface{ Close() error }, error) {
	if dir := filepath.Dir(cfg.FileSkills); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	repos, fs, err := storage.NewFileRepositories(cfg.FileUsers, cfg.FileSkills, cfg.FileTime, logger)
	if err != nil {
		return nil, nil, err
	}
	return repos, fs, nil
}

func openPostgres(cfg *config.Config, logger internal.Logger) (*storage.Repositories, interface{ Close() error }, error) {
	repos, ps, err := storage.NewPostgresRepositories(cfg.DBDSN, logger)
	if err != nil {
		return nil, nil, err
	}
	return repos, ps, nil
}
