package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"backend/api"
	"backend/internal/audit"
	"backend/internal/config"
	"backend/internal/domain"
	"backend/internal/infra"
	"backend/internal/logger"
	"backend/internal/tenancy"
)

func main() {
	loadEnvFile()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	cfg, err := config.Load(env, "")
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting up",
		zap.String("env", env),
		zap.String("mode", cfg.Server.Mode),
	)

	db, err := infra.InitDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to init database", zap.Error(err))
	}
	defer infra.CloseDatabase()

	registry := tenancy.NewRegistry()
	if err := domain.Register(registry); err != nil {
		logger.Fatal("failed to register models", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		logger.Info("running schema migration")
		if err := domain.Migrate(db, registry); err != nil {
			logger.Fatal("schema migration failed", zap.Error(err))
		}
	} else {
		logger.Info("auto migration disabled")
	}

	recorder := audit.NewRecorder(db, logger.Get())
	if err := recorder.Migrate(); err != nil {
		logger.Fatal("failed to prepare bypass audit table", zap.Error(err))
	}

	// Installing the plugin finalizes the registry; conflicting or
	// circular declarations are fatal here, before any traffic.
	plugin := tenancy.New(registry,
		tenancy.WithPolicy(tenancy.Policy{RequireStore: cfg.Tenancy.RequireStore}),
		tenancy.WithLogger(logger.Get()),
		tenancy.WithAuditor(recorder),
	)
	if err := db.Use(plugin); err != nil {
		logger.Fatal("failed to install tenancy plugin", zap.Error(err))
	}

	router := api.SetupRouter(db, registry, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	gracefulShutdown(server)
}

func gracefulShutdown(server *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("bye")
}

// loadEnvFile walks up from the working directory and the executable's
// directory looking for a .env file.
func loadEnvFile() {
	if path := resolveEnvPath(); path != "" {
		if err := godotenv.Load(path); err != nil {
			fmt.Printf("failed to load env file %s: %v\n", path, err)
		}
	}
}

func resolveEnvPath() string {
	for _, path := range collectEnvCandidates() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func collectEnvCandidates() []string {
	seen := make(map[string]struct{})
	var candidates []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		candidates = append(candidates, path)
	}

	traverse := func(start string) {
		dir := filepath.Clean(start)
		for i := 0; i < 8; i++ {
			if dir == "" || dir == string(filepath.Separator) || dir == "." {
				break
			}
			add(filepath.Join(dir, ".env"))
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if wd, err := os.Getwd(); err == nil {
		traverse(wd)
	}
	if exe, err := os.Executable(); err == nil {
		traverse(filepath.Dir(exe))
	}

	return candidates
}
