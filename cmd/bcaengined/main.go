// Command bcaengined is the bcaengine platform service.
// It serves the run processing endpoint, the run log and output tables,
// and a health check.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/bcaengine/bcaengine/internal/api"
	"github.com/bcaengine/bcaengine/internal/ingestion"
	"github.com/bcaengine/bcaengine/internal/logging"
	"github.com/bcaengine/bcaengine/internal/runlog"
	"github.com/bcaengine/bcaengine/pkg/config"
)

type serviceConfig struct {
	Port        string
	DatabaseURL string
	ConfigPath  string
	APIKey      string
	LogLevel    string
	Storage     config.StorageConfig
}

func loadServiceConfig() serviceConfig {
	return serviceConfig{
		Port:        envOrDefault("PORT", "8080"),
		DatabaseURL: envOrDefault("DATABASE_URL", "postgres://localhost:5432/bcaengine?sslmode=disable"),
		ConfigPath:  os.Getenv("BCAENGINE_CONFIG"),
		APIKey:      os.Getenv("API_KEY"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		Storage: config.StorageConfig{
			Backend:  envOrDefault("STORAGE_BACKEND", "local"),
			LocalDir: envOrDefault("LOCAL_STORAGE_PATH", "/tmp/bcaengine-data"),
			Bucket:   os.Getenv("BUCKET"),
			Region:   os.Getenv("AWS_REGION"),
			Endpoint: os.Getenv("S3_ENDPOINT"),
		},
	}
}

func main() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := loadServiceConfig()
	log := logging.Init(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("bcaengined stopped")
	}
}

func run(cfg serviceConfig, log zerolog.Logger) error {
	analysis := config.DefaultConfig()
	if cfg.ConfigPath != "" {
		loaded, err := config.Load(cfg.ConfigPath)
		if err != nil {
			return err
		}
		analysis = loaded
	}
	if err := analysis.Validate(); err != nil {
		return err
	}

	runs, err := runlog.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer runs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := ingestion.NewStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	// Initialize services
	svc := ingestion.NewService(storage, runs, analysis.Options(), log)
	handler := api.NewHandler(svc, runs, storage, nil, runs.DB().PingContext, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(cfg.APIKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.Storage.Backend).Msg("starting bcaengined")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
