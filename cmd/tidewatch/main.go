package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tidewatch/tidewatch/internal/api"
	"github.com/tidewatch/tidewatch/internal/configs"
	"github.com/tidewatch/tidewatch/internal/explorer"
	"github.com/tidewatch/tidewatch/internal/explorer/etherscan"
	"github.com/tidewatch/tidewatch/internal/gateway"
	"github.com/tidewatch/tidewatch/internal/summarizer"
	"github.com/tidewatch/tidewatch/internal/summarizer/deepseek"
	"github.com/tidewatch/tidewatch/internal/summarizer/openai"
	"github.com/tidewatch/tidewatch/internal/task"
	"github.com/tidewatch/tidewatch/internal/wallet"
)

func main() {
	logger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := configs.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	keys, err := newKeySelector(cfg.Explorer)
	if err != nil {
		logger.Fatal("failed to build key selector", zap.Error(err))
	}
	explorerClient := etherscan.NewClient(cfg.Explorer.BaseURL, keys)

	summ, err := newSummarizer(cfg.AI)
	if err != nil {
		logger.Fatal("failed to build summarizer", zap.Error(err))
	}

	var filter *wallet.BalanceFilter
	if cfg.Filter.Enabled {
		limiter := rate.NewLimiter(rate.Limit(cfg.Filter.RPS), 1)
		filter = wallet.NewBalanceFilter(explorerClient, limiter, logger)
		logger.Info("balance filter enabled", zap.Float64("rps", cfg.Filter.RPS))
	}

	analyzer := wallet.NewAnalyzer(explorerClient, summ, filter, cfg.SummaryWindow, logger)

	var hub gateway.Collaborator
	if cfg.Gateway.HubURL != "" {
		hub = gateway.NewHubClient(cfg.Gateway.HubURL, cfg.Gateway.ServiceKey)
		logger.Info("agent hub callbacks enabled", zap.String("hub_url", cfg.Gateway.HubURL))
	} else {
		hub = gateway.NewNopCollaborator(logger)
		logger.Info("no agent hub configured, callbacks disabled")
	}

	store := task.NewMemoryStore()
	processor := task.NewProcessor(store, analyzer, hub, logger)
	server := api.NewServer(cfg.API.Port, processor, store, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server stopped unexpectedly", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("APP_ENV") == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newKeySelector(cfg configs.ExplorerConfig) (explorer.KeySelector, error) {
	switch strings.ToLower(cfg.KeyStrategy) {
	case "round_robin", "":
		return explorer.NewRoundRobinKeys(cfg.APIKeys)
	case "random":
		return explorer.NewRandomKeys(cfg.APIKeys)
	default:
		return nil, fmt.Errorf("unknown key strategy %q", cfg.KeyStrategy)
	}
}

func newSummarizer(cfg configs.AIConfig) (summarizer.Summarizer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return openai.NewOpenAISummarizer(cfg.APIKey, cfg.Model, cfg.MaxTokens, float32(cfg.Temperature)), nil
	case "deepseek":
		return deepseek.NewDeepSeekSummarizer(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
