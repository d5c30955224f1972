package market

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/meridianlab/tradesim/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RegistryTestSuite struct {
	suite.Suite
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) TestNewRegistryFromYAMLFile() {
	table := `
- exchange: Backtest
  symbol: SPX
  regime: fixed
  tick_size: 0.25
  price_precision: 2
  exchange_fee: 1.2
  slippage_ticks: 1
- exchange: Backtest
  symbol: SOL
  regime: percentage
  tick_size: 0.001
  price_precision: 3
  fee_rate: 0.001
  slippage_rate: 0.0005
`

	path := filepath.Join(suite.T().TempDir(), "costs.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte(table), 0644))

	registry, err := NewRegistryFromYAMLFile(path)
	suite.Require().NoError(err)
	suite.Equal(2, registry.Len())

	spx, err := registry.Lookup("Backtest", "SPX")
	suite.Require().NoError(err)
	suite.Equal(CostRegimeFixed, spx.Regime)
	suite.InDelta(1.2, spx.ExchangeFee, 1e-9)

	sol, err := registry.Lookup("Backtest", "SOL")
	suite.Require().NoError(err)
	suite.Equal(CostRegimePercentage, sol.Regime)
	suite.InDelta(0.0005, sol.SlippageRate, 1e-9)

	// A table loaded from file fully replaces the built-in instruments
	_, err = registry.Lookup("Binance", "BTC")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeCostModelNotFound))
}

func (suite *RegistryTestSuite) TestNewRegistryFromYAMLFileErrors() {
	suite.Run("missing file", func() {
		_, err := NewRegistryFromYAMLFile("/nonexistent/costs.yaml")
		suite.Error(err)
		suite.True(errors.IsConfiguration(err))
	})

	suite.Run("malformed yaml", func() {
		path := filepath.Join(suite.T().TempDir(), "costs.yaml")
		suite.Require().NoError(os.WriteFile(path, []byte("not: [a list"), 0644))

		_, err := NewRegistryFromYAMLFile(path)
		suite.Error(err)
		suite.True(errors.HasCode(err, errors.ErrCodeConfigParseFailed))
	})

	suite.Run("invalid model in table", func() {
		path := filepath.Join(suite.T().TempDir(), "costs.yaml")
		table := "- exchange: X\n  symbol: S\n  regime: percentage\n  tick_size: 0\n"
		suite.Require().NoError(os.WriteFile(path, []byte(table), 0644))

		_, err := NewRegistryFromYAMLFile(path)
		suite.Error(err)
		suite.True(errors.HasCode(err, errors.ErrCodeInvalidCostModel))
	})
}
