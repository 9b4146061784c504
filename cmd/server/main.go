package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/clients/alpaca"
	"github.com/falconadvisor/falcon/internal/clients/explain"
	"github.com/falconadvisor/falcon/internal/config"
	"github.com/falconadvisor/falcon/internal/database"
	"github.com/falconadvisor/falcon/internal/modules/compliance"
	compliancehandlers "github.com/falconadvisor/falcon/internal/modules/compliance/handlers"
	"github.com/falconadvisor/falcon/internal/modules/harvesting"
	harvestinghandlers "github.com/falconadvisor/falcon/internal/modules/harvesting/handlers"
	"github.com/falconadvisor/falcon/internal/modules/ledger"
	ledgerhandlers "github.com/falconadvisor/falcon/internal/modules/ledger/handlers"
	"github.com/falconadvisor/falcon/internal/modules/policy"
	policyhandlers "github.com/falconadvisor/falcon/internal/modules/policy/handlers"
	"github.com/falconadvisor/falcon/internal/modules/portfolio"
	portfoliohandlers "github.com/falconadvisor/falcon/internal/modules/portfolio/handlers"
	"github.com/falconadvisor/falcon/internal/modules/reconciliation"
	reconciliationhandlers "github.com/falconadvisor/falcon/internal/modules/reconciliation/handlers"
	"github.com/falconadvisor/falcon/internal/reliability"
	"github.com/falconadvisor/falcon/internal/scheduler"
	"github.com/falconadvisor/falcon/internal/server"
	"github.com/falconadvisor/falcon/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{Level: "info"})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Falcon Advisor")

	// Databases
	ledgerDB, err := database.New(database.Config{
		Path:    cfg.LedgerDBPath(),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	portfolioDB, err := database.New(database.Config{
		Path:    cfg.PortfolioDBPath(),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	if err := ledgerDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate ledger database")
	}
	if err := portfolioDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate portfolio database")
	}

	// Policy store: a broken policy document is fatal at startup.
	policyStore := policy.NewStore(cfg.PolicyPath, log)
	if _, err := policyStore.Load(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load compliance policy")
	}

	// Repositories and services
	txns := ledger.NewRepository(ledgerDB.Conn(), log)
	ledgerService := ledger.NewService(txns, log)
	holdings := portfolio.NewRepository(portfolioDB.Conn(), log)
	checks := compliance.NewRepository(ledgerDB.Conn(), log)

	broker := alpaca.NewClient(alpaca.Config{
		BaseURL:   cfg.Broker.BaseURL,
		APIKey:    cfg.Broker.APIKey,
		APISecret: cfg.Broker.APISecret,
		Account:   cfg.Broker.Account,
		Timeout:   cfg.Broker.Timeout,
	}, log)

	retryCfg := reliability.RetryConfig{
		Attempts: cfg.Broker.RetryAttempts,
		BaseWait: cfg.Broker.RetryBaseWait,
	}

	explainer := buildExplainer(cfg, log)

	evaluator := compliance.NewEvaluator(txns, holdings, log)
	complianceService := compliance.NewService(
		policyStore, evaluator, txns, checks, broker, explainer,
		cfg.Compliance.ApprovalThreshold, retryCfg, log)

	engine := reconciliation.NewEngine(broker, txns, holdings, retryCfg, log)

	analyzer := harvesting.NewAnalyzer(holdings, txns, harvesting.Thresholds{
		MinLoss:        cfg.Harvest.MinLoss,
		MinLossPct:     cfg.Harvest.MinLossPct,
		TaxRate:        cfg.Compliance.TaxRate,
		WashWindowDays: cfg.Compliance.WashSaleWindowDays,
	}, log)

	// Background reconciliation
	sched := scheduler.New(log)
	if cfg.Reconcile.Enabled {
		job := reconciliation.NewJob(engine, 2*time.Minute, log)
		if err := sched.AddJob(cfg.Reconcile.Schedule, job); err != nil {
			log.Fatal().Err(err).Msg("Failed to register reconciliation job")
		}
		// Catch up on fills that happened while the process was down.
		go func() {
			if err := sched.RunNow(job); err != nil {
				log.Warn().Err(err).Msg("Startup reconciliation pass failed")
			}
		}()
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:        cfg.Port,
		Log:         log,
		LedgerDB:    ledgerDB,
		PortfolioDB: portfolioDB,
		DevMode:     cfg.DevMode,
		Handlers: []server.RouteRegistrar{
			compliancehandlers.NewHandler(complianceService, checks, log),
			ledgerhandlers.NewHandler(ledgerService, txns, log),
			portfoliohandlers.NewHandler(holdings, log),
			reconciliationhandlers.NewHandler(engine, log),
			harvestinghandlers.NewHandler(analyzer, log),
			policyhandlers.NewHandler(policyStore, log),
		},
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// buildExplainer initializes the optional Gemini explainer. Reviews run
// without explanations when it is disabled or fails to initialize.
func buildExplainer(cfg *config.Config, log zerolog.Logger) compliance.Explainer {
	if !cfg.Explain.Enabled {
		return nil
	}

	client, err := explain.NewClient(context.Background(), cfg.Explain.Model, log)
	if err != nil {
		log.Warn().Err(err).Msg("Explanation client unavailable, reviews will run without prose")
		return nil
	}
	return client
}
