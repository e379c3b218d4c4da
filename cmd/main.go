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
	"github.com/robfig/cron/v3"

	"github.com/codex-editor/codex-companion/internal/config"
	"github.com/codex-editor/codex-companion/internal/httpapi"
	"github.com/codex-editor/codex-companion/internal/index"
	"github.com/codex-editor/codex-companion/internal/jobs"
	"github.com/codex-editor/codex-companion/internal/persistence"
	"github.com/codex-editor/codex-companion/internal/service"
	"github.com/codex-editor/codex-companion/internal/spell"
	"github.com/codex-editor/codex-companion/internal/validation"
	"github.com/codex-editor/codex-companion/pkg/log"
)

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronRunner interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func main() {
	_ = godotenv.Load()

	opts := make([]config.Option, 0, 1)
	settingsPath := config.RuntimeSettingsFilePath()
	if persisted, err := config.LoadRuntimeSettingsFile(settingsPath); err == nil {
		opts = append(opts, config.WithRuntimeSettings(persisted))
	} else if !os.IsNotExist(err) {
		log.Warn("Ignoring settings file %s: %v", settingsPath, err)
	}

	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.System.LogLevel))

	store, err := persistence.NewSQLiteStore(cfg.Workspace.DBPath)
	if err != nil {
		log.Fatal("Failed to open store at %s: %v", cfg.Workspace.DBPath, err)
	}
	defer store.Close()

	dictionary, err := spell.OpenDictionary(cfg.Workspace.DictionaryPath)
	if err != nil {
		log.Fatal("Failed to open dictionary at %s: %v", cfg.Workspace.DictionaryPath, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	searchIndex := index.New()
	indexer := service.NewIndexer(store, searchIndex, cfg.Workspace.Dir,
		cfg.Index.VerseChunkSize, cfg.System.TargetLanguage.String())
	if err := indexer.Rebuild(ctx); err != nil {
		log.Fatal("Failed to rebuild search index: %v", err)
	}

	queue := jobs.NewQueue(cfg.Index.Workers, store)
	queue.Start(indexer.Execute)
	defer queue.Stop()

	cronEngine := cron.New()
	scanSvc := service.NewRunnableScanService(*cfg, cronEngine, queue, indexer)

	settingsStore, err := config.NewRuntimeSettingsStore(settingsPath, cfg.RuntimeSettings())
	if err != nil {
		log.Fatal("Failed to init settings store: %v", err)
	}

	reporter := validation.NewReporter(store, cfg.Validation.MaxLevel)

	httpSrv := httpapi.NewServer(indexer, queue, searchIndex,
		httpapi.WithReporter(reporter),
		httpapi.WithValidationStore(store),
		httpapi.WithDictionary(dictionary),
		httpapi.WithRuntimeSettingsStore(settingsStore),
		httpapi.WithRuntimeSettingsApplier(func(next config.RuntimeSettings) error {
			// Cron changes take effect on the next restart.
			indexer.SetVerseChunkSize(next.VerseChunkSize)
			reporter.SetMaxLevel(next.MaxValidations)
			return nil
		}),
		httpapi.WithScanTrigger(scanSvc.TriggerScan, cfg.Index.CronExpr),
	)

	if err := runWithComponents(ctx, cfg, scanSvc, cronEngine, httpSrv); err != nil {
		log.Fatal("Companion exited: %v", err)
	}
}

func runWithComponents(
	ctx context.Context,
	cfg *config.Config,
	scanSvc scheduler,
	cronEngine cronRunner,
	httpSrv httpServer,
) error {
	if err := scanSvc.Schedule(ctx); err != nil {
		return err
	}
	cronEngine.Start()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Companion API listening on %s", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		cronEngine.Stop()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed: %v", err)
	}
	<-cronEngine.Stop().Done()
	return <-errCh
}
