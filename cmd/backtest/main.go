package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/meridianlab/tradesim/internal/backtest/engine"
	enginev1 "github.com/meridianlab/tradesim/internal/backtest/engine/engine_v1"
	"github.com/meridianlab/tradesim/internal/datasource"
	"github.com/meridianlab/tradesim/internal/metrics"
	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"
)

// backtestAction is the core logic executed by the CLI command. It loads the
// engine config and signal stream, replays the stream, and writes results.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	signalsPath := cmd.String("signals")
	outputDir := cmd.String("output")

	configContent, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	// Parsed a second time here only to recover the initial capital for the
	// portfolio metrics; the engine does its own parsing and validation.
	var config enginev1.BacktestEngineV1Config
	if err := yaml.Unmarshal(configContent, &config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	backtester := enginev1.NewBacktestEngineV1()
	if err := backtester.Initialize(string(configContent)); err != nil {
		return fmt.Errorf("failed to initialize backtest engine: %w", err)
	}
	defer func() {
		if err := backtester.Shutdown(); err != nil {
			log.Printf("failed to shut down backtest engine: %v", err)
		}
	}()

	source := &datasource.CSVSignalSource{
		FilePath: signalsPath,
	}

	signals, err := source.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to load signals: %w", err)
	}

	log.Printf("Replaying %d signals for %s/%s...", len(signals), config.Exchange, config.Symbol)

	bar := progressbar.Default(int64(len(signals)))
	bar.Describe(fmt.Sprintf("Backtesting %s", filepath.Base(signalsPath)))

	onSignal := engine.OnSignalCallback(func(current int, total int) {
		_ = bar.Set(current)
	})

	trades, err := backtester.Run(signals, optional.Some(onSignal))
	if err != nil {
		return fmt.Errorf("backtest run failed: %w", err)
	}

	if err := backtester.WriteResults(outputDir); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	if len(trades) == 0 {
		log.Printf("No completed trades; skipping portfolio metrics. Final capital: %.2f", backtester.AvailableCapital())

		return nil
	}

	stats, err := metrics.Compute(trades, config.InitialCapital)
	if err != nil {
		return fmt.Errorf("failed to compute portfolio metrics: %w", err)
	}

	portfolioPath := filepath.Join(outputDir, "portfolio.yaml")
	if err := metrics.WritePortfolioStats(portfolioPath, stats); err != nil {
		return fmt.Errorf("failed to write portfolio metrics: %w", err)
	}

	log.Printf("Completed %d trades, net profit %.2f (ROI %.2f%%), results in %s",
		stats.TotalTrades, stats.NetProfit, stats.ROI, outputDir)

	return nil
}

// schemaAction prints the engine configuration JSON schema.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	backtester := enginev1.NewBacktestEngineV1()

	schema, err := backtester.GetConfigSchema()
	if err != nil {
		return fmt.Errorf("failed to generate config schema: %w", err)
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Replay a trading signal stream against historical costs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the engine configuration YAML file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "signals",
				Aliases:  []string{"s"},
				Usage:    "Path to the signal stream CSV file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Path to the results output directory",
				Value:   "results",
			},
		},
		Action: backtestAction,
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "Print the engine configuration JSON schema",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
