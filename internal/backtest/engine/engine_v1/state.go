package engine

import (
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/meridianlab/tradesim/internal/logger"
	"github.com/meridianlab/tradesim/internal/types"
	"github.com/meridianlab/tradesim/pkg/errors"
	"go.uber.org/zap"
)

// LedgerState mirrors the engine's completed-trade ledger into an in-memory
// DuckDB database so that aggregate statistics can be expressed as SQL and
// results can be exported to Parquet. Nothing persists between runs.
type LedgerState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewLedgerState(logger *logger.Logger) (*LedgerState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLedgerNil, "failed to open ledger database", err)
	}

	return &LedgerState{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the trades table.
func (s *LedgerState) Initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			trade_id TEXT PRIMARY KEY,
			symbol TEXT,
			opened_at TIMESTAMP,
			closed_at TIMESTAMP,
			num_entries INTEGER,
			avg_entry_price DOUBLE,
			exit_price DOUBLE,
			total_notional DOUBLE,
			exit_proceeds DOUBLE,
			entry_fees DOUBLE,
			exit_fee DOUBLE,
			total_fees DOUBLE,
			entry_slippage DOUBLE,
			exit_slippage DOUBLE,
			total_slippage DOUBLE,
			gross_pnl DOUBLE,
			net_pnl DOUBLE,
			capital_after DOUBLE,
			return_pct DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to create trades table", err)
	}

	return nil
}

// RecordTrade appends one completed trade to the ledger.
func (s *LedgerState) RecordTrade(trade types.CompletedTrade) error {
	insertQuery := s.sq.
		Insert("trades").
		Columns(
			"trade_id", "symbol", "opened_at", "closed_at", "num_entries",
			"avg_entry_price", "exit_price", "total_notional", "exit_proceeds",
			"entry_fees", "exit_fee", "total_fees",
			"entry_slippage", "exit_slippage", "total_slippage",
			"gross_pnl", "net_pnl", "capital_after", "return_pct",
		).
		Values(
			uuid.New().String(), trade.Symbol, trade.OpenedAt, trade.ClosedAt, trade.NumEntries,
			trade.AvgEntryPrice, trade.ExitPrice, trade.TotalNotional, trade.ExitProceeds,
			trade.EntryFees, trade.ExitFee, trade.TotalFees,
			trade.EntrySlippage, trade.ExitSlippage, trade.TotalSlippage,
			trade.GrossPnL, trade.NetPnL, trade.CapitalAfter, trade.ReturnPct,
		).
		RunWith(s.db)

	if _, err := insertQuery.Exec(); err != nil {
		return errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to insert trade", err)
	}

	return nil
}

// GetAllTrades returns the ledger ordered by close time.
func (s *LedgerState) GetAllTrades() ([]types.CompletedTrade, error) {
	selectQuery := s.sq.
		Select(
			"symbol", "opened_at", "closed_at", "num_entries",
			"avg_entry_price", "exit_price", "total_notional", "exit_proceeds",
			"entry_fees", "exit_fee", "total_fees",
			"entry_slippage", "exit_slippage", "total_slippage",
			"gross_pnl", "net_pnl", "capital_after", "return_pct",
		).
		From("trades").
		OrderBy("closed_at ASC").
		RunWith(s.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var trades []types.CompletedTrade

	for rows.Next() {
		var trade types.CompletedTrade

		err := rows.Scan(
			&trade.Symbol,
			&trade.OpenedAt,
			&trade.ClosedAt,
			&trade.NumEntries,
			&trade.AvgEntryPrice,
			&trade.ExitPrice,
			&trade.TotalNotional,
			&trade.ExitProceeds,
			&trade.EntryFees,
			&trade.ExitFee,
			&trade.TotalFees,
			&trade.EntrySlippage,
			&trade.ExitSlippage,
			&trade.TotalSlippage,
			&trade.GrossPnL,
			&trade.NetPnL,
			&trade.CapitalAfter,
			&trade.ReturnPct,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to scan trade", err)
		}

		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeLedgerQueryFailed, "error iterating trades", err)
	}

	return trades, nil
}

// calculateTradeResult calculates the win/loss statistics for a symbol.
func (s *LedgerState) calculateTradeResult(symbol string) (types.TradeResult, error) {
	query := `
		WITH trade_stats AS (
			SELECT
				COUNT(*) as total_trades,
				SUM(CASE WHEN net_pnl > 0 THEN 1 ELSE 0 END) as winning_trades,
				SUM(CASE WHEN net_pnl < 0 THEN 1 ELSE 0 END) as losing_trades
			FROM trades
			WHERE symbol = ?
		)
		SELECT
			total_trades,
			winning_trades,
			losing_trades,
			CASE WHEN total_trades > 0 THEN CAST(winning_trades AS DOUBLE) / total_trades ELSE 0 END as win_rate
		FROM trade_stats
	`

	var result types.TradeResult

	err := s.db.QueryRow(query, symbol).Scan(
		&result.NumberOfTrades,
		&result.NumberOfWinningTrades,
		&result.NumberOfLosingTrades,
		&result.WinRate,
	)
	if err != nil {
		return types.TradeResult{}, errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to calculate trade result", err)
	}

	return result, nil
}

// calculateTradeHoldingTime calculates holding time statistics for a symbol in hours.
func (s *LedgerState) calculateTradeHoldingTime(symbol string) (types.TradeHoldingTime, error) {
	query := `
		WITH trade_durations AS (
			SELECT EXTRACT(EPOCH FROM (closed_at - opened_at)) / 3600 as duration
			FROM trades
			WHERE symbol = ?
		)
		SELECT
			COALESCE(MIN(duration), 0) as min_duration,
			COALESCE(MAX(duration), 0) as max_duration,
			COALESCE(AVG(duration), 0) as avg_duration
		FROM trade_durations
	`

	var holdingTime types.TradeHoldingTime

	var minDuration, maxDuration, avgDuration float64

	err := s.db.QueryRow(query, symbol).Scan(&minDuration, &maxDuration, &avgDuration)
	if err != nil {
		return types.TradeHoldingTime{}, errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to calculate holding time", err)
	}

	holdingTime.Min = int(math.Round(minDuration))
	holdingTime.Max = int(math.Round(maxDuration))
	holdingTime.Avg = int(math.Round(avgDuration))

	return holdingTime, nil
}

// calculateCosts sums fees and slippage for a symbol.
func (s *LedgerState) calculateCosts(symbol string) (float64, float64, error) {
	query := s.sq.
		Select("COALESCE(SUM(total_fees), 0)", "COALESCE(SUM(total_slippage), 0)").
		From("trades").
		Where(squirrel.Eq{"symbol": symbol}).
		RunWith(s.db)

	var totalFees, totalSlippage float64
	if err := query.QueryRow().Scan(&totalFees, &totalSlippage); err != nil {
		return 0, 0, errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to calculate costs", err)
	}

	return totalFees, totalSlippage, nil
}

// GetStats returns per-symbol statistics for every symbol in the ledger.
func (s *LedgerState) GetStats() ([]types.SymbolStats, error) {
	selectQuery := s.sq.
		Select("DISTINCT symbol").
		From("trades").
		OrderBy("symbol").
		RunWith(s.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to get unique symbols", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to scan symbol", err)
		}

		symbols = append(symbols, symbol)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeLedgerQueryFailed, "error iterating symbols", err)
	}

	runID := uuid.New().String()
	now := time.Now()

	var stats []types.SymbolStats

	for _, symbol := range symbols {
		tradeResult, err := s.calculateTradeResult(symbol)
		if err != nil {
			return nil, err
		}

		holdingTime, err := s.calculateTradeHoldingTime(symbol)
		if err != nil {
			return nil, err
		}

		totalFees, totalSlippage, err := s.calculateCosts(symbol)
		if err != nil {
			return nil, err
		}

		pnlQuery := s.sq.
			Select(
				"COALESCE(SUM(net_pnl), 0) as realized_pnl",
				"COALESCE(MIN(net_pnl), 0) as max_loss",
				"COALESCE(MAX(net_pnl), 0) as max_profit",
			).
			From("trades").
			Where(squirrel.Eq{"symbol": symbol}).
			RunWith(s.db)

		var realizedPnL, maxLoss, maxProfit float64
		if err := pnlQuery.QueryRow().Scan(&realizedPnL, &maxLoss, &maxProfit); err != nil {
			return nil, errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to calculate pnl extremes", err)
		}

		stats = append(stats, types.SymbolStats{
			ID:               runID,
			Timestamp:        now,
			Symbol:           symbol,
			TradeResult:      tradeResult,
			TotalFees:        totalFees,
			TotalSlippage:    totalSlippage,
			TradeHoldingTime: holdingTime,
			RealizedPnL:      realizedPnL,
			MaximumLoss:      maxLoss,
			MaximumProfit:    maxProfit,
		})
	}

	return stats, nil
}

// Write exports the trade ledger to a Parquet file in the given directory.
func (s *LedgerState) Write(path string) error {
	tradesPath := filepath.Join(path, "trades.parquet")

	_, err := s.db.Exec(fmt.Sprintf(`COPY trades TO '%s' (FORMAT PARQUET)`, tradesPath))
	if err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWriteFailed, "failed to export trades to Parquet", err)
	}

	s.logger.Info("Exported trade ledger to Parquet",
		zap.String("trades", tradesPath),
	)

	return nil
}

// Cleanup resets the ledger database.
func (s *LedgerState) Cleanup() error {
	_, err := s.db.Exec(`DROP TABLE IF EXISTS trades`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLedgerQueryFailed, "failed to cleanup trades table", err)
	}

	return s.Initialize()
}

// Close releases the underlying database handle.
func (s *LedgerState) Close() error {
	return s.db.Close()
}
