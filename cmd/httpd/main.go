// Command httpd runs the url-sentinel HTTP service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonesrussell/url-sentinel/internal/api"
	"github.com/jonesrussell/url-sentinel/internal/config"
	"github.com/jonesrussell/url-sentinel/internal/database"
	"github.com/jonesrussell/url-sentinel/internal/enrichment"
	"github.com/jonesrussell/url-sentinel/internal/features"
	"github.com/jonesrussell/url-sentinel/internal/learner"
	"github.com/jonesrussell/url-sentinel/internal/logging"
	"github.com/jonesrussell/url-sentinel/internal/model"
	"github.com/jonesrussell/url-sentinel/internal/predictor"
	"github.com/jonesrussell/url-sentinel/internal/processor"
	"github.com/jonesrussell/url-sentinel/internal/telemetry"
)

const shutdownGrace = 30 * time.Second

func main() {
	cfg, err := config.Load(config.GetConfigPath("config.yml"))
	if err != nil {
		logging.Must(logging.Config{}).Fatal("load configuration", logging.Error(err))
	}

	log := logging.Must(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	defer log.Sync() //nolint:errcheck

	log.Info("starting url-sentinel",
		logging.String("version", cfg.Service.Version),
		logging.Int("port", cfg.Service.Port))

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatal("connect database", logging.Error(err))
	}
	defer db.Close()

	repo := database.NewFeedbackRepository(db)
	extractor := features.NewExtractor()
	resolver := features.NewDNSResolver(cfg.Lookup.Resolver, cfg.Lookup.DNSTimeout)
	tel := telemetry.NewProvider()

	trainer := model.NewTrainer(model.TrainerOptions{
		ArtifactsDir:     cfg.Artifacts.Dir,
		CVFolds:          cfg.Learning.CVFolds,
		SearchIterations: cfg.Learning.SearchIterations,
		Seed:             cfg.Learning.RandomSeed,
	}, log)
	learn := learner.New(repo, extractor, trainer, cfg.Learning, cfg.Artifacts.Dir, log)

	pred, err := predictor.New(cfg.Artifacts.Dir, extractor, log)
	if err != nil {
		log.Fatal("load model artifacts", logging.Error(err))
	}

	analyzer := enrichment.NewAnalyzer(resolver, cfg.Lookup.HTTPTimeout, log)
	limiter := processor.NewRateLimiter(cfg.Lookup.RPS, log)
	bulk := processor.NewBulkExtractor(extractor, resolver, limiter, processor.BulkOptions{
		Workers:      cfg.Lookup.ExtractionWorkers,
		ChunkSize:    cfg.Lookup.ChunkSize,
		HostFeatures: cfg.Lookup.HostFeatures,
	}, log)

	handler := api.NewHandler(pred, learn, analyzer, bulk, repo, db, tel, log,
		cfg.Service.Name, cfg.Service.Version)
	server := api.NewServer(handler, api.ServerConfig{
		Port:  cfg.Service.Port,
		Debug: cfg.Service.Debug,
	}, tel, log)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			log.Fatal("server error", logging.Error(err))
		}
	case sig := <-shutdown:
		log.Info("shutdown signal received", logging.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Fatal("graceful shutdown failed", logging.Error(err))
		}
		log.Info("server stopped gracefully")
	}
}
