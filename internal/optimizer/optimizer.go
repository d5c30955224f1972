// Package optimizer runs independent backtests over a parameter grid.
// Signals within one run are inherently sequential, so the parallelism
// boundary is the run: each grid combination gets its own engine instance
// with no shared mutable state.
package optimizer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/meridianlab/tradesim/internal/backtest/engine"
	enginev1 "github.com/meridianlab/tradesim/internal/backtest/engine/engine_v1"
	"github.com/meridianlab/tradesim/internal/logger"
	"github.com/meridianlab/tradesim/internal/metrics"
	"github.com/meridianlab/tradesim/internal/types"
	"github.com/meridianlab/tradesim/pkg/errors"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Objective selects how grid combinations are ranked.
type Objective string

const (
	ObjectiveNetProfit    Objective = "net_profit"
	ObjectiveSharpe       Objective = "sharpe"
	ObjectiveProfitFactor Objective = "profit_factor"
)

// ParamSet is one combination of sweep parameters.
type ParamSet struct {
	// InitialCapital for this run.
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	// SizeFraction overrides PositionSizeFraction on every BUY signal.
	// Zero keeps each signal's own fraction.
	SizeFraction float64 `yaml:"size_fraction" json:"size_fraction"`
}

// Grid describes the parameter ranges to sweep. The cartesian product of all
// ranges is evaluated.
type Grid struct {
	InitialCapitals []float64 `yaml:"initial_capitals" json:"initial_capitals"`
	SizeFractions   []float64 `yaml:"size_fractions" json:"size_fractions"`
}

// Combinations expands the grid into the full cartesian product. An empty
// SizeFractions range sweeps only capital, keeping signal fractions as-is.
func (g Grid) Combinations() []ParamSet {
	fractions := g.SizeFractions
	if len(fractions) == 0 {
		fractions = []float64{0}
	}

	var combos []ParamSet

	for _, capital := range g.InitialCapitals {
		for _, fraction := range fractions {
			combos = append(combos, ParamSet{
				InitialCapital: capital,
				SizeFraction:   fraction,
			})
		}
	}

	return combos
}

// Result is the outcome of one grid combination.
type Result struct {
	Params ParamSet               `yaml:"params" json:"params"`
	Stats  metrics.PortfolioStats `yaml:"stats" json:"stats"`
	Score  float64                `yaml:"score" json:"score"`
}

// Optimizer sweeps engine parameters against a fixed signal stream.
type Optimizer struct {
	exchange  string
	symbol    string
	workers   int
	objective Objective
	log       *logger.Logger
}

// NewOptimizer creates an optimizer for the given instrument. workers caps
// the number of concurrent backtest runs; values below 1 mean sequential.
func NewOptimizer(exchange string, symbol string, workers int, objective Objective, log *logger.Logger) (*Optimizer, error) {
	switch objective {
	case ObjectiveNetProfit, ObjectiveSharpe, ObjectiveProfitFactor:
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidObjective, "unknown objective %q", objective)
	}

	if workers < 1 {
		workers = 1
	}

	return &Optimizer{
		exchange:  exchange,
		symbol:    symbol,
		workers:   workers,
		objective: objective,
		log:       log,
	}, nil
}

// Optimize evaluates every grid combination and returns results ordered by
// score, best first. Runs with an empty ledger (no completed trades) are
// skipped, matching the behavior of a backtest that never closed a position.
func (o *Optimizer) Optimize(signals []types.Signal, grid Grid) ([]Result, error) {
	combos := grid.Combinations()
	if len(combos) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyGrid, "parameter grid is empty")
	}

	o.log.Info("Starting parameter sweep",
		zap.Int("combinations", len(combos)),
		zap.Int("workers", o.workers),
		zap.String("objective", string(o.objective)),
	)

	var (
		mu      sync.Mutex
		results []Result
	)

	var group errgroup.Group

	group.SetLimit(o.workers)

	for _, combo := range combos {
		group.Go(func() error {
			result, ok, err := o.evaluate(signals, combo)
			if err != nil {
				return err
			}

			if !ok {
				return nil
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results, nil
}

// evaluate runs one combination on a fresh engine instance.
func (o *Optimizer) evaluate(signals []types.Signal, params ParamSet) (Result, bool, error) {
	backtester := enginev1.NewBacktestEngineV1()

	config := fmt.Sprintf("initial_capital: %f\nexchange: %s\nsymbol: %s\n",
		params.InitialCapital, o.exchange, o.symbol)

	if err := backtester.Initialize(config); err != nil {
		return Result{}, false, err
	}

	// Each combination holds its own in-memory ledger database; release it
	// as soon as the run is scored or a sweep leaks one handle per combo.
	defer func() {
		if err := backtester.Shutdown(); err != nil {
			o.log.Warn("Failed to shut down backtest engine", zap.Error(err))
		}
	}()

	trades, err := backtester.Run(o.applyParams(signals, params), optional.None[engine.OnSignalCallback]())
	if err != nil {
		return Result{}, false, err
	}

	if len(trades) == 0 {
		return Result{}, false, nil
	}

	stats, err := metrics.Compute(trades, params.InitialCapital)
	if err != nil {
		return Result{}, false, err
	}

	return Result{
		Params: params,
		Stats:  stats,
		Score:  o.score(stats),
	}, true, nil
}

// applyParams returns a copy of the signal stream with the combination's
// size fraction applied. The input is never mutated since other workers
// share it.
func (o *Optimizer) applyParams(signals []types.Signal, params ParamSet) []types.Signal {
	if params.SizeFraction <= 0 {
		return signals
	}

	adjusted := make([]types.Signal, len(signals))
	copy(adjusted, signals)

	for i := range adjusted {
		if adjusted[i].Side == types.SignalSideBuy {
			adjusted[i].PositionSizeFraction = params.SizeFraction
		}
	}

	return adjusted
}

func (o *Optimizer) score(stats metrics.PortfolioStats) float64 {
	switch o.objective {
	case ObjectiveSharpe:
		return stats.SharpeRatio
	case ObjectiveProfitFactor:
		return stats.ProfitFactor
	default:
		return stats.NetProfit
	}
}
