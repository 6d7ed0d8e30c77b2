package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/iwvelando/mac-forecast/internal/config"
	"github.com/iwvelando/mac-forecast/internal/forecast"
	"github.com/iwvelando/mac-forecast/internal/server"
	"github.com/iwvelando/mac-forecast/pkg/constants"
	"github.com/iwvelando/mac-forecast/pkg/marketplace"
	"github.com/iwvelando/mac-forecast/pkg/marketplace/sqlite"
	"github.com/iwvelando/mac-forecast/pkg/output"
	"github.com/iwvelando/mac-forecast/pkg/validation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	var cfg zap.Config
	switch loggingConfig.Format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	case "json", "":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", loggingConfig.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}
		cfg.OutputPaths = []string{loggingConfig.OutputFile}
		cfg.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return cfg.Build()
}

// loadPrices reads every stored quote from the price database at path.
func loadPrices(ctx context.Context, logger *zap.Logger, path string) (*marketplace.Marketplace, error) {
	store, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = store.Close()
	}()

	prices := marketplace.New(logger)
	n, err := store.LoadInto(ctx, prices)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded market prices",
		zap.String("op", "main.loadPrices"),
		zap.String("path", path),
		zap.Int("quotes", n),
	)
	return prices, nil
}

// recordPrices stores the configured market prices in the price database at path.
func recordPrices(ctx context.Context, path string, markets []config.Market) (int, error) {
	store, err := sqlite.New(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = store.Close()
	}()

	var quotes []marketplace.Quote
	for _, m := range markets {
		for period, price := range m.Prices {
			quotes = append(quotes, marketplace.Quote{Market: m.Name, Region: m.Region, Period: period, Price: price})
		}
	}
	return len(quotes), store.SaveQuotes(ctx, quotes)
}

func serve(serverConfigPath, logLevel string) error {
	cfg, err := server.LoadConfig(serverConfigPath)
	if err != nil {
		return err
	}

	logger, err := initializeLogger(cfg.Logging, logLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	var prices *marketplace.Marketplace
	if cfg.PricesDB != "" {
		prices, err = loadPrices(context.Background(), logger, cfg.PricesDB)
		if err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           server.NewHandlerWithPrices(logger, cfg.UploadSizeBytes(), version, prices),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server",
		zap.String("op", "main.serve"),
		zap.String("address", cfg.Address),
		zap.Int64("maxUploadSize", cfg.UploadSizeBytes()),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	pricesDB := flag.String("prices-db", "", "path to a SQLite market price database to load prices from")
	recordPricesFlag := flag.Bool("record-prices", false, "store the configured market prices in -prices-db")
	serveFlag := flag.Bool("serve", false, "run the HTTP API instead of a single forecast")
	serverConfig := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	flag.Parse()

	if *serveFlag {
		if err := serve(*serverConfig, *logLevel); err != nil {
			fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"server failed\", \"error\": \"%v\"}\n", err)
			os.Exit(1)
		}
		return
	}

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	outputFormat := conf.OutputFormat()
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	ctx := context.Background()
	var prices *marketplace.Marketplace
	if *pricesDB != "" {
		if *recordPricesFlag {
			n, err := recordPrices(ctx, *pricesDB, conf.Markets)
			if err != nil {
				logger.Fatal("failed to record market prices",
					zap.String("op", "main"),
					zap.Error(err),
				)
			}
			logger.Info("recorded market prices",
				zap.String("op", "main"),
				zap.Int("quotes", n),
			)
		}
		prices, err = loadPrices(ctx, logger, *pricesDB)
		if err != nil {
			logger.Fatal("failed to load market prices",
				zap.String("op", "main"),
				zap.String("path", *pricesDB),
				zap.Error(err),
			)
		}
	}

	results, err := forecast.GetForecastWithPrices(logger, *conf, prices)
	if err != nil {
		logger.Fatal("failed to compute forecast",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(os.Stdout, results)
	case constants.OutputFormatCSV:
		output.CsvFormat(os.Stdout, results)
		fmt.Println()
		output.CsvShareWeights(os.Stdout, results)
	}
}
