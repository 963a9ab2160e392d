package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"invoice-reconciler/internal/config"
	"invoice-reconciler/internal/domain"
	"invoice-reconciler/internal/gateway"
	"invoice-reconciler/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	mode := flag.String("mode", "scheduled", "Trigger mode: scheduled, manual or file-upload")
	periodStr := flag.String("period", "", "Period to reconcile (YYYY-MM); defaults to the previous calendar month")
	filesStr := flag.String("files", "", "Uploaded statement files as channel=path[,channel=path...] (file-upload mode)")
	debugLog := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	log, err := buildLogger(*debugLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(*configPath, *mode, *periodStr, *filesStr, log); err != nil {
		log.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(configPath, mode, periodStr, filesStr string, log *zap.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	period := domain.PreviousMonth(time.Now())
	if periodStr != "" {
		period, err = domain.ParsePeriod(periodStr)
		if err != nil {
			return err
		}
	}

	// --- Dependency wiring ---
	invoiceSource := gateway.NewSzamlazzSource(cfg.Szamlazz.AgentKey, cfg.Szamlazz.BaseURL, log)

	txnSources, err := transactionSources(cfg, mode, filesStr, log)
	if err != nil {
		return err
	}

	var orderSource usecase.OrderSource
	if cfg.WooCommerce.BaseURL != "" {
		orderSource = gateway.NewWooCommerceSource(cfg.WooCommerce.BaseURL, cfg.WooCommerce.ConsumerKey, cfg.WooCommerce.ConsumerSecret)
	}

	store, err := gateway.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	var notifier usecase.Notifier
	if cfg.Alert.SMTPAddr != "" {
		notifier = gateway.NewSMTPNotifier(cfg.Alert.SMTPAddr, cfg.Alert.From, cfg.Alert.To, cfg.Alert.Username, cfg.Alert.Password)
	}

	judge := gateway.NewOpenAIJudge(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)

	uc := usecase.NewReconciliationUseCase(
		invoiceSource,
		txnSources,
		orderSource,
		usecase.NewExactMatcher(log),
		usecase.NewAIMatcher(judge, cfg.Matching.ConfidenceThreshold, log),
		store,
		notifier,
		log,
	)

	runRecord, err := uc.Reconcile(context.Background(), period)
	if err != nil {
		return err
	}

	output, err := json.MarshalIndent(runRecord, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

// transactionSources picks the live payment-rail connectors, replaced per
// channel by CSV connectors in file-upload mode.
func transactionSources(cfg *config.Config, mode, filesStr string, log *zap.Logger) ([]usecase.TransactionSource, error) {
	uploads := map[string]string{}
	if mode == "file-upload" {
		if filesStr == "" {
			return nil, fmt.Errorf("file-upload mode requires -files")
		}
		for _, pair := range strings.Split(filesStr, ",") {
			channel, path, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("invalid -files entry %q, want channel=path", pair)
			}
			uploads[channel] = path
		}
	}

	var sources []usecase.TransactionSource
	if path, ok := uploads["wise"]; ok {
		sources = append(sources, gateway.NewCSVTransactionSource("wise", path, "HUF", log))
	} else if cfg.Wise.Token != "" {
		sources = append(sources, gateway.NewWiseSource(cfg.Wise.Token, cfg.Wise.BaseURL))
	}
	if path, ok := uploads["mypos"]; ok {
		sources = append(sources, gateway.NewCSVTransactionSource("mypos", path, "HUF", log))
	} else if cfg.MyPOS.ClientID != "" {
		sources = append(sources, gateway.NewMyPOSSource(cfg.MyPOS.ClientID, cfg.MyPOS.Secret, cfg.MyPOS.BaseURL))
	}
	for channel, path := range uploads {
		if channel != "wise" && channel != "mypos" {
			sources = append(sources, gateway.NewCSVTransactionSource(channel, path, "HUF", log))
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no transaction sources configured")
	}
	return sources, nil
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
