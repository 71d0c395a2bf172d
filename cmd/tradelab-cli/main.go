package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"

	"tradelab/internal/config"
	"tradelab/internal/domain"
	"tradelab/internal/engine"
	"tradelab/internal/marketdata"
	"tradelab/internal/store"
	"tradelab/internal/strategy"
	"tradelab/internal/util"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tradelab-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  run        Run a backtest job file\n")
		fmt.Fprintf(os.Stderr, "  types      List strategy types and their presets\n")
		fmt.Fprintf(os.Stderr, "  version    Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("tradelab-cli %s\n", version)

	case "types":
		printTypes()

	case "run":
		if err := runJob(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "run: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

func printTypes() {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tSTOP\tTARGET\tMAX HOLD\tWINDOW")
	for _, t := range domain.AllStrategyTypes() {
		p := strategy.DefaultParameters(t)
		fmt.Fprintf(tw, "%s\t%g %s\t%g %s\t%dm\t%s-%s\n", t,
			p.StopLoss.Value, p.StopLoss.Kind,
			p.TakeProfit.Value, p.TakeProfit.Kind,
			p.Exit.MaxHoldMinutes,
			p.TradingHours.Start, p.TradingHours.End)
	}
	tw.Flush()
}

func runJob(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	jobPath := fs.String("job", "", "path to the YAML job file (required)")
	outPath := fs.String("out", "", "write full results as JSON to this file")
	synthetic := fs.Bool("synthetic", false, "skip market data and use synthetic bars only")
	only := fs.String("strategies", "", "comma-separated strategy IDs to run (default: all)")
	fs.Parse(args)

	if *jobPath == "" {
		fs.Usage()
		return fmt.Errorf("-job is required")
	}

	job, err := strategy.LoadJob(*jobPath)
	if err != nil {
		return err
	}
	if *only != "" {
		if job, err = job.Select(strings.Split(*only, ",")...); err != nil {
			return err
		}
	}

	cfg, err := config.LoadOrDefault(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	// Warnings only unless debugging; the summary table owns stdout.
	level := "warn"
	if cfg.Logging.Level == "debug" {
		level = "debug"
	}
	logger := util.NewLogger(level, "text")
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var source marketdata.BarSource
	if !*synthetic {
		bars, closeStore, err := store.Open(ctx, store.Options{
			Backend:     cfg.Storage.Backend,
			DataDir:     cfg.Storage.DataDir,
			SQLitePath:  cfg.Storage.SQLitePath,
			PostgresURL: cfg.Storage.PostgresURL,
		})
		if err != nil {
			return fmt.Errorf("opening %s store: %w", cfg.Storage.Backend, err)
		}
		defer closeStore()

		source = marketdata.NewChain(marketdata.ChainOptions{
			Alpaca: marketdata.AlpacaOptions{
				APIKey:     cfg.Alpaca.APIKey,
				APISecret:  cfg.Alpaca.APISecret,
				DataURL:    cfg.Alpaca.DataURL,
				Feed:       cfg.Alpaca.Feed,
				BarMinutes: cfg.Backtest.BarMinutes,
			},
			RequestDelay:   cfg.Backtest.RequestDelay,
			MaxRetries:     cfg.Backtest.MaxRetries,
			RetryBaseDelay: cfg.Backtest.RetryBaseDelay,
		}, bars)
	}

	bar := progressbar.NewOptions(len(job.Strategies),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Backtesting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)

	eng := engine.New(source,
		engine.WithBarMinutes(cfg.Backtest.BarMinutes),
		engine.WithHalfSpread(cfg.Backtest.HalfSpread),
		engine.WithRiskFreeRate(cfg.Backtest.RiskFreeRate),
		engine.WithLogger(logger),
		engine.WithProgress(func(done, total int) { bar.Set(done) }),
	)

	results, err := eng.Run(ctx, job.Request())
	bar.Finish()
	if err != nil {
		return err
	}

	printSummary(results)

	if *outPath != "" {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding results: %w", err)
		}
		if err := os.WriteFile(*outPath, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", *outPath, err)
		}
		fmt.Printf("\nresults written to %s\n", *outPath)
	}
	return nil
}

func printSummary(results []domain.BacktestResult) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "STRATEGY\tTYPE\tSOURCE\tTRADES\tRETURN %\tMAX DD %\tWIN %\tSHARPE\tPF\t")
	for _, r := range results {
		m := r.Metrics
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%.2f\t%.1f\t%.3f\t%.2f\t\n",
			r.StrategyID, r.StrategyType, r.DataSource, m.TotalTrades,
			m.TotalReturn, m.MaxDrawdown, m.WinRate, m.SharpeRatio, m.ProfitFactor)
	}
	tw.Flush()
}
