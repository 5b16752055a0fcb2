package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"palatlas-go/internal/config"
	"palatlas-go/internal/insights"
	"palatlas-go/internal/logger"
	"palatlas-go/internal/narrative"
	"palatlas-go/internal/pipeline"
	"palatlas-go/internal/server"
)

func main() {
	_ = godotenv.Load() // loads .env

	cfg, err := config.Load()
	log := logger.NewWithOptions(cfg.Environment, cfg.LogLevel, os.Stdout)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.WithField("environment", cfg.Environment).Info("starting service")

	if cfg.Insights.APIKey == "" {
		log.Warn("QLOO_API_KEY is empty; insights requests will be rejected")
	}
	client := insights.NewClient(insights.Config{
		BaseURL:     cfg.Insights.BaseURL,
		APIKey:      cfg.Insights.APIKey,
		HTTPTimeout: cfg.Insights.HTTPTimeout,
		MaxAttempts: cfg.Insights.MaxAttempts,
		BackoffUnit: cfg.Insights.BackoffUnit,
	}, log)

	var model narrative.Model
	if cfg.LLM.UseMock {
		log.Info("mock LLM mode ON")
		model = narrative.MockModel{}
	} else {
		model = narrative.NewResponsesModel(narrative.ResponsesConfig{
			BaseURL:      cfg.LLM.BaseURL,
			APIKey:       cfg.LLM.APIKey,
			Model:        cfg.LLM.Model,
			HTTPTimeout:  cfg.LLM.HTTPTimeout,
			MaxRetryTime: cfg.LLM.MaxRetryTime,
		}, log)
		if cfg.LLM.APIKey == "" {
			log.Warn("OPENAI_API_KEY is empty; analysis and chat will fail fast")
		}
	}
	composer := narrative.NewComposer(model, log)

	p := pipeline.New(client, composer, pipeline.Config{
		SampleCap:            cfg.Analysis.SampleCap,
		DefaultLimit:         cfg.Analysis.DefaultLimit,
		DefaultAnalysisLimit: cfg.Analysis.DefaultAnalysisLimit,
	}, log)

	srv := server.NewServer(cfg.Server, p, log)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.WithField("addr", srv.Addr()).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	<-shutdown
	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("shutdown complete")
}
