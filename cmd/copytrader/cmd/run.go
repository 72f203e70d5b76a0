package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mirrorops/copytrader/broker"
	"github.com/mirrorops/copytrader/broker/paper"
	"github.com/mirrorops/copytrader/config"
	"github.com/mirrorops/copytrader/engine"
	"github.com/mirrorops/copytrader/journal"
	"github.com/mirrorops/copytrader/logger"
	"github.com/mirrorops/copytrader/metrics"
	"github.com/mirrorops/copytrader/risk"
	"github.com/mirrorops/copytrader/source/bridge"
	"github.com/mirrorops/copytrader/store"
	"github.com/mirrorops/copytrader/translate"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the mirror engine from a config file",
	Long: `Run the position mirror engine using settings from a configuration file.

The config file selects the bridge endpoint, the destination adapter, the
translation parameters and the risk constraints.

Example:
  copytrader run --config copytrader.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(store.NewFileBackend(cfg.Store.Path))
	if err != nil {
		// the store recovers to an empty state; mirroring continues without
		// the lost records
		log.WithError(err).Warn("lifecycle store loaded with errors")
	}

	jrnl, err := newJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer jrnl.Close()

	dest, err := newBroker(cfg.Broker)
	if err != nil {
		return err
	}

	src := bridge.New(cfg.Source.BridgeURL, cfg.StaleAfter(), log)
	if err := src.Connect(ctx); err != nil {
		return fmt.Errorf("connect bridge: %w", err)
	}
	defer src.Close()

	ledger := risk.NewDayTradeLedger()
	gate, err := newGate(cfg.Risk, dest.exec, ledger)
	if err != nil {
		return err
	}

	translator := translate.New(translate.Config{
		Underlying:           cfg.Mirror.Underlying,
		StrikeStep:           cfg.Mirror.StrikeStep,
		ExpirationOffsetDays: cfg.Mirror.ExpirationOffsetDays,
		OpenBidMarkup:        cfg.Mirror.OpenBidMarkup,
		CloseAskDiscount:     cfg.Mirror.CloseAskDiscount,
	}, dest.md)

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, log)
	}

	eng := engine.New(engine.Config{
		PollInterval:       cfg.PollInterval(),
		ErrorPause:         cfg.ErrorPause(),
		MagicFilter:        cfg.Source.MagicFilter,
		DayTradeWindowDays: cfg.Risk.WindowDays,
	}, engine.Deps{
		Source:     src,
		Execution:  dest.exec,
		Gate:       gate,
		Translator: translator,
		Store:      st,
		Ledger:     ledger,
		Journal:    jrnl,
		Log:        log,
	})

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("mirror engine stopped")
	return nil
}

// destination bundles the two broker facets one adapter provides.
type destination struct {
	exec broker.Execution
	md   broker.MarketData
}

func newBroker(cfg config.BrokerConfig) (destination, error) {
	switch cfg.Mode {
	case "paper":
		b := paper.New(cfg.PaperEquity)
		return destination{exec: b, md: b}, nil
	default:
		// a live adapter needs brokerage credentials and an order API binding
		return destination{}, fmt.Errorf("broker mode %q is not available in this build", cfg.Mode)
	}
}

func newJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	case "csv":
		return journal.NewCSV(cfg.File)
	default:
		return journal.Nop{}, nil
	}
}

func newGate(cfg config.RiskConfig, equity broker.Execution, ledger *risk.DayTradeLedger) (*risk.Gate, error) {
	openHour, openMinute, err := config.ParseClock(cfg.SessionOpen)
	if err != nil {
		return nil, fmt.Errorf("risk.session_open: %w", err)
	}
	closeHour, closeMinute, err := config.ParseClock(cfg.SessionClose)
	if err != nil {
		return nil, fmt.Errorf("risk.session_close: %w", err)
	}

	return risk.NewGate(risk.GateConfig{
		Timezone:        cfg.Timezone,
		OpenHour:        openHour,
		OpenMinute:      openMinute,
		CloseHour:       closeHour,
		CloseMinute:     closeMinute,
		EquityThreshold: cfg.EquityThreshold,
		MaxDayTrades:    cfg.MaxDayTrades,
		WindowDays:      cfg.WindowDays,
	}, equity, ledger), nil
}

func serveMetrics(addr string, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	log.WithComponent("metrics").WithField("addr", addr).Info("metrics endpoint listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("metrics server stopped")
	}
}
