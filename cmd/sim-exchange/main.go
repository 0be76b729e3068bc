package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/uhyunpark/hlsdk/params"
	"github.com/uhyunpark/hlsdk/pkg/api"
	"github.com/uhyunpark/hlsdk/pkg/exchange"
	"github.com/uhyunpark/hlsdk/pkg/storage"
	"github.com/uhyunpark/hlsdk/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	logFile := cfg.LogFile
	if logFile == "" {
		logFile = "data/sim-exchange.log"
	}

	logger, err := util.NewLoggerWithFile(logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	// ---- Assets ----
	var assets *exchange.Universe
	if cfg.AssetsFile != "" {
		assets, err = params.LoadAssets(cfg.AssetsFile)
		if err != nil {
			sugar.Fatalw("assets_load_failed", "file", cfg.AssetsFile, "err", err)
		}
	} else {
		assets = params.DefaultAssets()
	}
	sugar.Infow("assets_loaded", "count", len(assets.Assets()), "file", cfg.AssetsFile)

	// ---- Journal ----
	var journal storage.Journal
	if cfg.Storage.JournalPath != "" {
		pj, err := storage.NewPebbleJournal(cfg.Storage.JournalPath)
		if err != nil {
			sugar.Fatalw("journal_open_failed", "path", cfg.Storage.JournalPath, "err", err)
		}
		journal = pj
		sugar.Infow("journal_opened", "path", cfg.Storage.JournalPath)
	} else {
		journal = storage.NewMemoryJournal()
		sugar.Info("journal_in_memory - orders are lost on restart")
	}
	defer journal.Close()

	// ---- API Server ----
	srv, err := api.NewServer(cfg.Simulator, assets, journal,
		api.WithLogger(sugar),
		api.WithMainnet(cfg.Client.Mainnet),
	)
	if err != nil {
		sugar.Fatalw("api_server_init_failed", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		sugar.Errorw("api_server_failed", "err", err)
		return
	}
	sugar.Info("api_server_stopped")
}
