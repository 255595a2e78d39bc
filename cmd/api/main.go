package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"

	"github.com/norelinorth/statement-importer/internal/ai"
	"github.com/norelinorth/statement-importer/internal/api/handlers"
	"github.com/norelinorth/statement-importer/internal/blob"
	"github.com/norelinorth/statement-importer/internal/domain"
	"github.com/norelinorth/statement-importer/internal/extract"
	"github.com/norelinorth/statement-importer/internal/importer"
	"github.com/norelinorth/statement-importer/internal/ledger"
	"github.com/norelinorth/statement-importer/internal/logger"
	"github.com/norelinorth/statement-importer/internal/store/inmemory"
	"github.com/norelinorth/statement-importer/internal/store/sqldb"
)

func main() {
	// Parse command-line flags
	var (
		port         = flag.String("port", "8080", "HTTP server port")
		dsn          = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (or set DATABASE_URL env); empty runs the in-memory store")
		model        = flag.String("model", ai.DefaultModelName, "Gemini model used for extraction and parsing")
		accountsPath = flag.String("accounts", os.Getenv("ACCOUNTS_FILE"), "JSON file with the chart of accounts (or set ACCOUNTS_FILE env)")
		logLevel     = flag.String("log-level", "info", "log level (debug, info, warn, error)")
		pretty       = flag.Bool("pretty", false, "human-readable log output for local development")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New(*logLevel, *pretty)

	ctx := context.Background()

	// Initialize stores
	var (
		imports   importer.ImportStore
		providers importer.ProviderStore
	)
	if *dsn != "" {
		store, err := sqldb.Open(*dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open database")
		}
		defer store.Close()
		imports, providers = store, store
		log.Info().Msg("Using SQL store")
	} else {
		store := inmemory.NewStore()
		seedDevData(store)
		imports, providers = store, store
		log.Warn().Msg("No DSN configured; using the in-memory store, data is lost on restart")
	}

	// Chart of accounts and ledger
	accounts, err := loadAccounts(*accountsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *accountsPath).Msg("Failed to load chart of accounts")
	}
	if len(accounts) == 0 {
		log.Warn().Msg("Chart of accounts is empty; parsed transactions will fail validation")
	}
	chart := ledger.NewStaticAccounts(accounts)

	cfg := importer.DefaultConfig()
	book := ledger.NewBook(chart, cfg.BalanceTolerance)

	// AI collaborators
	genaiClient, err := ai.NewClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	completer := ai.NewGeminiCompleter(genaiClient, *model)
	extractor := extract.NewGeminiExtractor(genaiClient, *model)

	// Blob storage
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer storageClient.Close()
	blobs := blob.NewGCSFetcher(storageClient)

	svc := importer.NewService(cfg, imports, providers, chart, book, blobs, extractor, completer, nil,
		logger.WithComponent(log, "importer"))

	router := handlers.NewRouter(svc, logger.WithComponent(log, "api"))

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// loadAccounts reads the chart of accounts from a JSON file. An empty path
// yields an empty chart.
func loadAccounts(path string) ([]domain.Account, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var accounts []domain.Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// seedDevData registers a sample provider and company so the in-memory setup
// is usable out of the box.
func seedDevData(store *inmemory.Store) {
	store.PutCompany(&domain.Company{Name: "Noreli North", Abbr: "NN"})
	store.PutProvider(&domain.Provider{
		Name:    "Interactive Brokers",
		Enabled: true,
		PromptTemplate: "You are parsing a {provider} brokerage statement for {company} " +
			"covering {statement_period}, imported on {import_date}.\n\n" +
			"STATEMENT TEXT:\n{text}\n\nSTATEMENT TABLES:\n{tables}\n",
		AccountingRules: []domain.AccountingRule{
			{
				TransactionType:       "Dividend",
				DebitAccountTemplate:  "Cash - {provider} Account",
				CreditAccountTemplate: "Dividend Income",
				Enabled:               true,
			},
			{
				TransactionType:       "Fee",
				DebitAccountTemplate:  "Brokerage Fees",
				CreditAccountTemplate: "Cash - {provider} Account",
				Enabled:               true,
			},
			{
				TransactionType:       "Interest",
				DebitAccountTemplate:  "Cash - {provider} Account",
				CreditAccountTemplate: "Interest Income",
				Enabled:               true,
			},
		},
	})
}
