package engine

import (
	"math"
	"os"
	"path/filepath"

	"github.com/meridianlab/tradesim/internal/backtest/engine"
	"github.com/meridianlab/tradesim/internal/logger"
	"github.com/meridianlab/tradesim/internal/market"
	"github.com/meridianlab/tradesim/internal/types"
	"github.com/meridianlab/tradesim/pkg/errors"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// BacktestEngineV1 replays an ordered signal stream against one cost model.
// State is a single capital figure, a map of open positions (at most one per
// symbol), and the append-only completed-trade ledger. All of it is owned by
// this instance; independent runs use independent instances.
type BacktestEngineV1 struct {
	config        BacktestEngineV1Config
	log           *logger.Logger
	costModel     market.CostModel
	capital       float64
	openPositions map[string]*types.Position
	trades        []types.CompletedTrade
	state         *LedgerState
	initialized   bool
}

func NewBacktestEngineV1() engine.Engine {
	return &BacktestEngineV1{
		config:        EmptyConfig(),
		log:           nil,
		costModel:     market.CostModel{},
		capital:       0,
		openPositions: make(map[string]*types.Position),
		trades:        nil,
		state:         nil,
		initialized:   false,
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	// parse the config
	err := yaml.Unmarshal([]byte(config), &b.config)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigParseFailed, "failed to parse engine config", err)
	}

	if err := b.config.Validate(); err != nil {
		return err
	}

	// initialize the logger
	var loggerError error

	b.log, loggerError = logger.NewLogger()
	if loggerError != nil {
		return loggerError
	}

	// resolve the cost model before touching any signal; a missing entry is
	// a hard stop
	registry, err := b.loadRegistry()
	if err != nil {
		return err
	}

	b.costModel, err = registry.Lookup(b.config.Exchange, b.config.Symbol)
	if err != nil {
		return err
	}

	// initialize the trade ledger store
	b.state, err = NewLedgerState(b.log)
	if err != nil {
		return err
	}

	if err := b.state.Initialize(); err != nil {
		return err
	}

	b.capital = b.config.InitialCapital
	b.openPositions = make(map[string]*types.Position)
	b.trades = nil
	b.initialized = true

	b.log.Debug("Backtest engine initialized",
		zap.String("exchange", b.config.Exchange),
		zap.String("symbol", b.config.Symbol),
		zap.Float64("initial_capital", b.config.InitialCapital),
		zap.String("cost_regime", string(b.costModel.Regime)),
	)

	return nil
}

func (b *BacktestEngineV1) loadRegistry() (*market.Registry, error) {
	if b.config.CostTablePath != "" {
		return market.NewRegistryFromYAMLFile(b.config.CostTablePath)
	}

	return market.DefaultRegistry()
}

// Run implements engine.Engine. The fold is strictly sequential: each
// signal's outcome depends on the capital and open positions left behind by
// every prior signal.
func (b *BacktestEngineV1) Run(signals []types.Signal, onSignal optional.Option[engine.OnSignalCallback]) ([]types.CompletedTrade, error) {
	if !b.initialized {
		return nil, errors.New(errors.ErrCodeEngineNotInitialized, "engine must be initialized before Run")
	}

	ledgerStart := len(b.trades)
	total := len(signals)

	for i, signal := range signals {
		if !b.skipByTimeWindow(signal) {
			switch signal.Side {
			case types.SignalSideBuy:
				b.handleBuy(signal)
			case types.SignalSideSell:
				if err := b.handleSell(signal); err != nil {
					return nil, err
				}
			}
		}

		// Skipped signals still count as handled so progress reaches total
		if onSignal.IsSome() {
			onSignal.Unwrap()(i+1, total)
		}
	}

	completed := make([]types.CompletedTrade, len(b.trades)-ledgerStart)
	copy(completed, b.trades[ledgerStart:])

	b.log.Debug("Backtest run finished",
		zap.Int("signals", total),
		zap.Int("completed_trades", len(completed)),
		zap.Int("open_positions", len(b.openPositions)),
		zap.Float64("capital", b.capital),
	)

	return completed, nil
}

func (b *BacktestEngineV1) skipByTimeWindow(signal types.Signal) bool {
	if b.config.StartTime.IsSome() && signal.Timestamp.Before(b.config.StartTime.Unwrap()) {
		return true
	}

	if b.config.EndTime.IsSome() && signal.Timestamp.After(b.config.EndTime.Unwrap()) {
		return true
	}

	return false
}

// handleBuy opens a position for the signal's symbol or, when one is already
// open, adds an averaging entry to it. Capital exhaustion is a silent no-op
// so a long signal stream can be replayed without special-casing it.
func (b *BacktestEngineV1) handleBuy(signal types.Signal) {
	notionalDec := decimal.NewFromFloat(b.capital).Mul(decimal.NewFromFloat(signal.PositionSizeFraction))
	notional, _ := notionalDec.Float64()

	if notional <= 0 {
		b.log.Debug("Skipping buy signal, no capital available",
			zap.String("symbol", signal.Symbol),
			zap.Float64("capital", b.capital),
		)

		return
	}

	executedPrice := b.costModel.ApplySlippage(signal.Price, types.SignalSideBuy)
	fee := b.costModel.ComputeFee(notional)

	// The executed price already carries the slippage; this figure is kept
	// for reporting and never deducted from capital again.
	slippageCost := math.Abs(executedPrice-signal.Price) * (notional / executedPrice)

	position, open := b.openPositions[signal.Symbol]
	if !open {
		position = types.NewPosition(signal.Symbol, signal.Timestamp)
		b.openPositions[signal.Symbol] = position
	}

	position.AddEntry(types.Entry{
		Timestamp:         signal.Timestamp,
		ExecutedPrice:     executedPrice,
		NotionalCommitted: notional,
		Fee:               fee,
		SlippageCost:      slippageCost,
	})

	newCapital := decimal.NewFromFloat(b.capital).Sub(notionalDec).Sub(decimal.NewFromFloat(fee))
	b.capital, _ = newCapital.Float64()
}

// handleSell liquidates the entire open position for the signal's symbol.
// A sell with no open position is a silent no-op; the engine is long-only.
func (b *BacktestEngineV1) handleSell(signal types.Signal) error {
	position, open := b.openPositions[signal.Symbol]
	if !open {
		b.log.Debug("Skipping sell signal, no open position",
			zap.String("symbol", signal.Symbol),
		)

		return nil
	}

	quantity := position.TotalQuantity()
	executedPrice := b.costModel.ApplySlippage(signal.Price, types.SignalSideSell)

	proceedsDec := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(executedPrice))
	proceeds, _ := proceedsDec.Float64()
	exitFee := b.costModel.ComputeFee(proceeds)
	exitSlippage := math.Abs(signal.Price-executedPrice) * quantity

	totalNotional := position.TotalNotional()
	entryFees := position.TotalEntryFees()
	entrySlippage := position.TotalEntrySlippage()

	grossDec := proceedsDec.Sub(decimal.NewFromFloat(totalNotional))
	netDec := grossDec.Sub(decimal.NewFromFloat(entryFees)).Sub(decimal.NewFromFloat(exitFee))
	grossPnL, _ := grossDec.Float64()
	netPnL, _ := netDec.Float64()

	newCapital := decimal.NewFromFloat(b.capital).Add(proceedsDec).Sub(decimal.NewFromFloat(exitFee))
	b.capital, _ = newCapital.Float64()

	returnPct := 0.0
	if totalNotional > 0 {
		pctDec := netDec.Div(decimal.NewFromFloat(totalNotional)).Mul(decimal.NewFromInt(100))
		returnPct, _ = pctDec.Float64()
	}

	trade := types.CompletedTrade{
		Symbol:        position.Symbol,
		OpenedAt:      position.OpenedAt,
		ClosedAt:      signal.Timestamp,
		NumEntries:    len(position.Entries),
		AvgEntryPrice: position.AverageEntryPrice(),
		ExitPrice:     executedPrice,
		TotalNotional: totalNotional,
		ExitProceeds:  proceeds,
		EntryFees:     entryFees,
		ExitFee:       exitFee,
		TotalFees:     entryFees + exitFee,
		EntrySlippage: entrySlippage,
		ExitSlippage:  exitSlippage,
		TotalSlippage: entrySlippage + exitSlippage,
		GrossPnL:      grossPnL,
		NetPnL:        netPnL,
		CapitalAfter:  b.capital,
		ReturnPct:     returnPct,
	}

	b.trades = append(b.trades, trade)
	delete(b.openPositions, signal.Symbol)

	if err := b.state.RecordTrade(trade); err != nil {
		return err
	}

	return nil
}

// AvailableCapital implements engine.Engine.
func (b *BacktestEngineV1) AvailableCapital() float64 {
	return b.capital
}

// CompletedTrades returns the full ledger accumulated since the last Reset.
func (b *BacktestEngineV1) CompletedTrades() []types.CompletedTrade {
	return b.trades
}

// HasOpenPosition reports whether a position is currently open for symbol.
func (b *BacktestEngineV1) HasOpenPosition(symbol string) bool {
	_, open := b.openPositions[symbol]

	return open
}

// OpenPositionCount returns the number of symbols with an open position.
func (b *BacktestEngineV1) OpenPositionCount() int {
	return len(b.openPositions)
}

// WriteResults implements engine.Engine. It writes stats.yaml plus a Parquet
// export of the trade ledger to the given folder.
func (b *BacktestEngineV1) WriteResults(folder string) error {
	if b.state == nil {
		return errors.New(errors.ErrCodeLedgerNil, "ledger state is nil")
	}

	if err := os.MkdirAll(folder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWriteFailed, "failed to create results folder", err)
	}

	stats, err := b.state.GetStats()
	if err != nil {
		return err
	}

	if err := types.WriteSymbolStats(filepath.Join(folder, "stats.yaml"), stats); err != nil {
		return errors.Wrap(errors.ErrCodeLedgerWriteFailed, "failed to write stats", err)
	}

	return b.state.Write(folder)
}

// Reset implements engine.Engine.
func (b *BacktestEngineV1) Reset() error {
	if !b.initialized {
		return errors.New(errors.ErrCodeEngineNotInitialized, "engine must be initialized before Reset")
	}

	b.capital = b.config.InitialCapital
	b.openPositions = make(map[string]*types.Position)
	b.trades = nil

	return b.state.Cleanup()
}

// Shutdown implements engine.Engine. It closes the ledger database; the
// in-memory ledger contents are lost. Safe to call on an engine that was
// never initialized.
func (b *BacktestEngineV1) Shutdown() error {
	b.initialized = false

	if b.state == nil {
		return nil
	}

	err := b.state.Close()
	b.state = nil

	return err
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	return b.config.GenerateSchemaJSON()
}
