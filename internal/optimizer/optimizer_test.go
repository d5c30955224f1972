package optimizer

import (
	"testing"
	"time"

	"github.com/meridianlab/tradesim/internal/logger"
	"github.com/meridianlab/tradesim/internal/types"
	"github.com/meridianlab/tradesim/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type OptimizerTestSuite struct {
	suite.Suite
}

func TestOptimizerSuite(t *testing.T) {
	suite.Run(t, new(OptimizerTestSuite))
}

func roundTripSignals() []types.Signal {
	return []types.Signal{
		{
			Timestamp:            time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Side:                 types.SignalSideBuy,
			Symbol:               "BTC",
			Price:                100,
			PositionSizeFraction: 0.5,
		},
		{
			Timestamp:            time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Side:                 types.SignalSideSell,
			Symbol:               "BTC",
			Price:                110,
			PositionSizeFraction: 1,
		},
	}
}

func (suite *OptimizerTestSuite) TestNewOptimizerRejectsUnknownObjective() {
	_, err := NewOptimizer("Binance", "BTC", 1, "best_vibes", logger.NewSilentLogger())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidObjective))
}

func (suite *OptimizerTestSuite) TestGridCombinations() {
	grid := Grid{
		InitialCapitals: []float64{1000, 2000},
		SizeFractions:   []float64{0.1, 0.5},
	}
	suite.Len(grid.Combinations(), 4)

	// Without fractions the sweep keeps the signals' own sizing
	capitalOnly := Grid{InitialCapitals: []float64{1000}}
	combos := capitalOnly.Combinations()
	suite.Require().Len(combos, 1)
	suite.Zero(combos[0].SizeFraction)
}

func (suite *OptimizerTestSuite) TestOptimizeEmptyGrid() {
	o, err := NewOptimizer("Binance", "BTC", 1, ObjectiveNetProfit, logger.NewSilentLogger())
	suite.Require().NoError(err)

	_, err = o.Optimize(roundTripSignals(), Grid{})
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeEmptyGrid))
}

func (suite *OptimizerTestSuite) TestOptimizeRanksByNetProfit() {
	o, err := NewOptimizer("Binance", "BTC", 2, ObjectiveNetProfit, logger.NewSilentLogger())
	suite.Require().NoError(err)

	results, err := o.Optimize(roundTripSignals(), Grid{
		InitialCapitals: []float64{1000, 2000},
	})
	suite.Require().NoError(err)
	suite.Require().Len(results, 2)

	// Same strategy on twice the capital nets twice the profit
	suite.InDelta(2000, results[0].Params.InitialCapital, 1e-9)
	suite.InDelta(1000, results[1].Params.InitialCapital, 1e-9)
	suite.Greater(results[0].Score, results[1].Score)
	suite.InDelta(results[0].Stats.NetProfit, results[0].Score, 1e-9)
}

func (suite *OptimizerTestSuite) TestOptimizeSweepsSizeFraction() {
	o, err := NewOptimizer("Binance", "BTC", 1, ObjectiveNetProfit, logger.NewSilentLogger())
	suite.Require().NoError(err)

	results, err := o.Optimize(roundTripSignals(), Grid{
		InitialCapitals: []float64{1000},
		SizeFractions:   []float64{0.1, 1.0},
	})
	suite.Require().NoError(err)
	suite.Require().Len(results, 2)

	// A winning round trip scales with the committed fraction
	suite.InDelta(1.0, results[0].Params.SizeFraction, 1e-9)
	suite.InDelta(0.1, results[1].Params.SizeFraction, 1e-9)
}

func (suite *OptimizerTestSuite) TestOptimizeSkipsRunsWithoutTrades() {
	o, err := NewOptimizer("Binance", "BTC", 1, ObjectiveNetProfit, logger.NewSilentLogger())
	suite.Require().NoError(err)

	// A buy that never closes produces an empty ledger
	buyOnly := roundTripSignals()[:1]

	results, err := o.Optimize(buyOnly, Grid{InitialCapitals: []float64{1000}})
	suite.Require().NoError(err)
	suite.Empty(results)
}

func (suite *OptimizerTestSuite) TestOptimizeUnknownInstrumentFails() {
	o, err := NewOptimizer("Binance", "DOGE", 1, ObjectiveNetProfit, logger.NewSilentLogger())
	suite.Require().NoError(err)

	_, err = o.Optimize(roundTripSignals(), Grid{InitialCapitals: []float64{1000}})
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeCostModelNotFound))
}
