package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/scalper/broker"
	"github.com/rustyeddy/scalper/broker/live"
	"github.com/rustyeddy/scalper/broker/sim"
	"github.com/rustyeddy/scalper/checklist"
	"github.com/rustyeddy/scalper/config"
	"github.com/rustyeddy/scalper/control"
	"github.com/rustyeddy/scalper/engine"
	"github.com/rustyeddy/scalper/journal"
	"github.com/rustyeddy/scalper/metrics"
	"github.com/rustyeddy/scalper/news"
	"github.com/rustyeddy/scalper/notify"
	"github.com/rustyeddy/scalper/regime"
	"github.com/rustyeddy/scalper/risk"
	"github.com/rustyeddy/scalper/terminal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading engine from a config file",
	Long: `Start the strategy loop using settings from a configuration file.

In dry-run mode orders fill against an in-memory simulator over a
synthetic price feed; in live mode they go through the broker terminal.

Example:
  scalper run -f settings.yaml`,
	RunE: runRun,
}

var (
	runConfigPath string
	runBalance    float64
	runSeed       int64
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().Float64VarP(&runBalance, "balance", "b", 100_000, "starting balance for the dry-run terminal")
	runCmd.Flags().Int64Var(&runSeed, "seed", 1, "price walk seed for the dry-run terminal")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.System.LogLevel)

	term := terminal.NewMock(runBalance, runSeed, log)

	var exec broker.ExecutionPort
	mode := "live"
	if cfg.System.DryRun {
		mode = "sim"
		exec = sim.NewEngine(term, cfg.Trading.MagicNumber, log)
	} else {
		// TODO: real broker terminal adapter; until then live mode runs
		// the live execution path against the mock terminal.
		log.Warn().Msg("no broker terminal adapter available, live orders fill on the mock terminal")
		exec = live.NewEngine(term, cfg.Trading.MagicNumber, log)
	}
	log.Info().Str("mode", mode).Msg("execution port selected")

	jrnl, err := newJournal(cfg)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer jrnl.Close()

	var calendar engine.Calendar
	if cfg.News.Enabled {
		calendar = news.NewLoader(cfg.News.FeedURL, log)
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Secrets.TelegramToken != "" && cfg.Secrets.TelegramChatID != "" {
		notifier = notify.NewTelegram(cfg.Secrets.TelegramToken, cfg.Secrets.TelegramChatID, "", log)
	}

	eng := engine.New(engine.Options{
		Config:    cfg,
		Terminal:  term,
		Execution: exec,
		Governor:  risk.NewGovernor(cfg.Risk.RiskPerTradePercent, cfg.Risk.MaxDailyLossPercent),
		Regime:    regime.NewClassifier(nil, log),
		Gate:      checklist.NewGate(cfg.Checklist.MaxSpreadPoints, cfg.Checklist.MinATR),
		News:      calendar,
		Journal:   jrnl,
		Notifier:  notifier,
		Mode:      mode,
		Log:       log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.System.MetricsAddr != "" {
		go serveMetrics(cfg.System.MetricsAddr, log)
	}

	if cfg.Secrets.TelegramToken != "" && cfg.Secrets.TelegramChatID != "" {
		chatID, perr := strconv.ParseInt(cfg.Secrets.TelegramChatID, 10, 64)
		if perr != nil {
			return fmt.Errorf("parse TELEGRAM_CHAT_ID: %w", perr)
		}
		ctl := control.NewTelegram(cfg.Secrets.TelegramToken, chatID, eng, "", log)
		go func() {
			if err := ctl.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("control loop exited")
			}
		}()
	}

	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

func newJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	case "csv":
		return journal.NewCSV(cfg.Journal.DecisionsFile, cfg.Journal.TradesFile)
	default:
		return journal.Nop{}, nil
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

func serveMetrics(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server failed")
	}
}
