package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type TradeResult struct {
	// Count of all completed trades.
	NumberOfTrades int `yaml:"number_of_trades"`
	// Count of trades with positive net pnl.
	NumberOfWinningTrades int `yaml:"number_of_winning_trades"`
	// Count of trades with negative net pnl.
	NumberOfLosingTrades int `yaml:"number_of_losing_trades"`
	// Win rate.
	WinRate float64 `yaml:"win_rate"`
}

type TradeHoldingTime struct {
	// Minimum holding time of a trade in hours
	Min int `yaml:"min"`
	// Maximum holding time of a trade in hours
	Max int `yaml:"max"`
	// Average holding time of a trade in hours
	Avg int `yaml:"avg"`
}

// SymbolStats aggregates the completed-trade ledger for one symbol.
type SymbolStats struct {
	// ID is the unique identifier for this backtest run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this backtest run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// Symbol of the instrument.
	Symbol string `yaml:"symbol"`
	// Result of all trades.
	TradeResult TradeResult `yaml:"trade_result"`
	// Total fees across entries and exits.
	TotalFees float64 `yaml:"total_fees"`
	// Total slippage cost, informational only.
	TotalSlippage float64 `yaml:"total_slippage"`
	// Holding time of all trades.
	TradeHoldingTime TradeHoldingTime `yaml:"trade_holding_time"`
	// Realized PnL summed over all completed trades.
	RealizedPnL float64 `yaml:"realized_pnl"`
	// Worst single-trade net pnl.
	MaximumLoss float64 `yaml:"maximum_loss"`
	// Best single-trade net pnl.
	MaximumProfit float64 `yaml:"maximum_profit"`
}

// WriteSymbolStats writes per-symbol statistics to a YAML file.
func WriteSymbolStats(path string, stats []SymbolStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal symbol stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write symbol stats to file: %w", err)
	}

	return nil
}
