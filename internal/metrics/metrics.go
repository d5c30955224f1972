// Package metrics computes portfolio-level statistics from a completed-trade
// ledger. It consumes the engine's output and never feeds back into a run.
package metrics

import (
	"fmt"
	"math"
	"os"

	"github.com/meridianlab/tradesim/internal/types"
	"github.com/meridianlab/tradesim/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PortfolioStats summarizes one backtest run. Slippage figures are
// informational: executed prices already reflect slippage, so fees are the
// only cost deducted anywhere.
type PortfolioStats struct {
	// GrossProfit is the sum of gross pnl over all trades.
	GrossProfit float64 `yaml:"gross_profit"`
	// NetProfit is the sum of net pnl over all trades.
	NetProfit float64 `yaml:"net_profit"`
	// ROI is NetProfit as a percentage of initial capital.
	ROI float64 `yaml:"roi"`
	// TotalTrades is the number of completed round trips.
	TotalTrades int `yaml:"total_trades"`
	// PercentProfitable is the share of trades with positive net pnl.
	PercentProfitable float64 `yaml:"percent_profitable"`
	// ProfitFactor is total net wins divided by total net losses.
	// Zero when there are no losing trades.
	ProfitFactor float64 `yaml:"profit_factor"`
	// WinLossRatio is the count of winners divided by the count of losers.
	// Zero when there are no losing trades.
	WinLossRatio float64 `yaml:"win_loss_ratio"`
	// Expectancy is the average net pnl contribution per trade.
	Expectancy float64 `yaml:"expectancy"`
	// SharpeRatio is mean per-trade net pnl over its sample standard
	// deviation. Zero when undefined (fewer than two trades or no variance).
	SharpeRatio float64 `yaml:"sharpe_ratio"`
	// SortinoRatio is mean per-trade net pnl over the sample standard
	// deviation of losing trades only. Zero when undefined.
	SortinoRatio float64 `yaml:"sortino_ratio"`
	// MaxDrawdown is the largest peak-to-trough decline of the equity curve.
	MaxDrawdown float64 `yaml:"max_drawdown"`
	// RecoveryFactor is NetProfit over MaxDrawdown. Zero when no drawdown.
	RecoveryFactor float64 `yaml:"recovery_factor"`
	// TotalFees across entries and exits.
	TotalFees float64 `yaml:"total_fees"`
	// TotalSlippage reported across entries and exits, informational.
	TotalSlippage float64 `yaml:"total_slippage"`
	// AvgFeePerTrade is TotalFees divided by TotalTrades.
	AvgFeePerTrade float64 `yaml:"avg_fee_per_trade"`
	// FeesPctOfCapital is TotalFees as a percentage of initial capital.
	FeesPctOfCapital float64 `yaml:"fees_pct_of_capital"`
}

// Compute aggregates a completed-trade ledger into portfolio statistics.
// Fails when the ledger is empty since every ratio would be undefined.
func Compute(trades []types.CompletedTrade, initialCapital float64) (PortfolioStats, error) {
	if len(trades) == 0 {
		return PortfolioStats{}, errors.New(errors.ErrCodeEmptyLedger, "cannot compute portfolio stats from an empty ledger")
	}

	var stats PortfolioStats

	stats.TotalTrades = len(trades)

	var (
		totalWins, totalLosses float64
		numWins, numLosses     int
		returns                []float64
	)

	for _, trade := range trades {
		stats.GrossProfit += trade.GrossPnL
		stats.NetProfit += trade.NetPnL
		stats.TotalFees += trade.TotalFees
		stats.TotalSlippage += trade.TotalSlippage
		returns = append(returns, trade.NetPnL)

		if trade.NetPnL > 0 {
			totalWins += trade.NetPnL
			numWins++
		} else if trade.NetPnL < 0 {
			totalLosses += math.Abs(trade.NetPnL)
			numLosses++
		}
	}

	if initialCapital > 0 {
		stats.ROI = stats.NetProfit / initialCapital * 100
		stats.FeesPctOfCapital = stats.TotalFees / initialCapital * 100
	}

	stats.PercentProfitable = float64(numWins) / float64(stats.TotalTrades) * 100
	stats.AvgFeePerTrade = stats.TotalFees / float64(stats.TotalTrades)

	if totalLosses > 0 {
		stats.ProfitFactor = totalWins / totalLosses
	}

	if numLosses > 0 {
		stats.WinLossRatio = float64(numWins) / float64(numLosses)
	}

	stats.Expectancy = stats.NetProfit / float64(stats.TotalTrades)
	stats.SharpeRatio = sharpe(returns)
	stats.SortinoRatio = sortino(returns)
	stats.MaxDrawdown = maxDrawdown(trades, initialCapital)

	if stats.MaxDrawdown > 0 {
		stats.RecoveryFactor = stats.NetProfit / stats.MaxDrawdown
	}

	return stats, nil
}

// sharpe returns mean over sample standard deviation of per-trade returns.
func sharpe(returns []float64) float64 {
	std := sampleStd(returns)
	if std == 0 {
		return 0
	}

	return mean(returns) / std
}

// sortino penalizes only downside deviation.
func sortino(returns []float64) float64 {
	var downside []float64

	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}

	std := sampleStd(downside)
	if std == 0 {
		return 0
	}

	return mean(returns) / std
}

// maxDrawdown walks the equity curve formed by capital-after-trade values,
// starting from the initial capital.
func maxDrawdown(trades []types.CompletedTrade, initialCapital float64) float64 {
	peak := initialCapital
	drawdown := 0.0

	for _, trade := range trades {
		if trade.CapitalAfter > peak {
			peak = trade.CapitalAfter
		}

		if dd := peak - trade.CapitalAfter; dd > drawdown {
			drawdown = dd
		}
	}

	return drawdown
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// sampleStd returns the sample standard deviation (n-1 denominator).
// Returns 0 for fewer than two values.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	m := mean(values)
	sum := 0.0

	for _, v := range values {
		sum += (v - m) * (v - m)
	}

	return math.Sqrt(sum / float64(len(values)-1))
}

// WritePortfolioStats writes portfolio statistics to a YAML file.
func WritePortfolioStats(path string, stats PortfolioStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write portfolio stats to file: %w", err)
	}

	return nil
}
