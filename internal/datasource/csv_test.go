package datasource

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meridianlab/tradesim/internal/types"
	"github.com/meridianlab/tradesim/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type CSVSignalSourceTestSuite struct {
	suite.Suite
}

func TestCSVSignalSourceSuite(t *testing.T) {
	suite.Run(t, new(CSVSignalSourceTestSuite))
}

func (suite *CSVSignalSourceTestSuite) writeFile(content string) string {
	path := filepath.Join(suite.T().TempDir(), "signals.csv")
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	return path
}

func (suite *CSVSignalSourceTestSuite) TestReadAll() {
	path := suite.writeFile(`timestamp,side,symbol,price,position_size_fraction
2024-01-01T00:00:00Z,BUY,BTC,100.5,0.5
2024-01-02T00:00:00Z,SELL,BTC,110,1
`)

	source := CSVSignalSource{FilePath: path}
	signals, err := source.ReadAll()
	suite.Require().NoError(err)
	suite.Require().Len(signals, 2)

	first := signals[0]
	suite.Equal(types.SignalSideBuy, first.Side)
	suite.Equal("BTC", first.Symbol)
	suite.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first.Timestamp)
	suite.InDelta(100.5, first.Price, 1e-9)
	suite.InDelta(0.5, first.PositionSizeFraction, 1e-9)

	suite.Equal(types.SignalSideSell, signals[1].Side)
}

func (suite *CSVSignalSourceTestSuite) TestReadAllReordersNothing() {
	// Columns in a different order than the canonical header
	path := suite.writeFile(`symbol,price,timestamp,side,position_size_fraction
BTC,100,2024-01-01T00:00:00Z,BUY,0.5
`)

	source := CSVSignalSource{FilePath: path}
	signals, err := source.ReadAll()
	suite.Require().NoError(err)
	suite.Require().Len(signals, 1)
	suite.Equal("BTC", signals[0].Symbol)
	suite.InDelta(100, signals[0].Price, 1e-9)
}

func (suite *CSVSignalSourceTestSuite) TestReadAllSellWithZeroFraction() {
	// Sizing is advisory on sells; strategies may emit 0 there
	path := suite.writeFile(`timestamp,side,symbol,price,position_size_fraction
2024-01-01T00:00:00Z,BUY,BTC,100,0.5
2024-01-02T00:00:00Z,SELL,BTC,110,0
`)

	source := CSVSignalSource{FilePath: path}
	signals, err := source.ReadAll()
	suite.Require().NoError(err)
	suite.Require().Len(signals, 2)
	suite.Zero(signals[1].PositionSizeFraction)
}

func (suite *CSVSignalSourceTestSuite) TestReadAllEmptyFileBody() {
	path := suite.writeFile("timestamp,side,symbol,price,position_size_fraction\n")

	source := CSVSignalSource{FilePath: path}
	signals, err := source.ReadAll()
	suite.Require().NoError(err)
	suite.Empty(signals)
}

func (suite *CSVSignalSourceTestSuite) TestReadAllErrors() {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{
			name:    "missing column",
			content: "timestamp,side,symbol,price\n",
			code:    errors.ErrCodeSignalParseFailed,
		},
		{
			name: "bad timestamp",
			content: `timestamp,side,symbol,price,position_size_fraction
yesterday,BUY,BTC,100,0.5
`,
			code: errors.ErrCodeSignalParseFailed,
		},
		{
			name: "bad price",
			content: `timestamp,side,symbol,price,position_size_fraction
2024-01-01T00:00:00Z,BUY,BTC,expensive,0.5
`,
			code: errors.ErrCodeSignalParseFailed,
		},
		{
			name: "invalid side",
			content: `timestamp,side,symbol,price,position_size_fraction
2024-01-01T00:00:00Z,HOLD,BTC,100,0.5
`,
			code: errors.ErrCodeInvalidSignal,
		},
		{
			name: "out of order",
			content: `timestamp,side,symbol,price,position_size_fraction
2024-01-02T00:00:00Z,BUY,BTC,100,0.5
2024-01-01T00:00:00Z,SELL,BTC,110,1
`,
			code: errors.ErrCodeSignalOutOfOrder,
		},
		{
			name: "duplicate timestamp",
			content: `timestamp,side,symbol,price,position_size_fraction
2024-01-01T00:00:00Z,BUY,BTC,100,0.5
2024-01-01T00:00:00Z,SELL,BTC,110,1
`,
			code: errors.ErrCodeSignalOutOfOrder,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			source := CSVSignalSource{FilePath: suite.writeFile(tc.content)}
			_, err := source.ReadAll()
			suite.Error(err)
			suite.True(errors.HasCode(err, tc.code))
		})
	}
}

func (suite *CSVSignalSourceTestSuite) TestReadAllMissingFile() {
	source := CSVSignalSource{FilePath: "/nonexistent/signals.csv"}
	_, err := source.ReadAll()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSignalParseFailed))
}
