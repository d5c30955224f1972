package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type PositionTestSuite struct {
	suite.Suite
}

func TestPositionSuite(t *testing.T) {
	suite.Run(t, new(PositionTestSuite))
}

func (suite *PositionTestSuite) TestEmptyPosition() {
	position := NewPosition("BTC", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	suite.Equal("BTC", position.Symbol)
	suite.Empty(position.Entries)
	suite.Zero(position.TotalNotional())
	suite.Zero(position.TotalQuantity())
	suite.Zero(position.TotalEntryFees())
	suite.Zero(position.AverageEntryPrice())
}

func (suite *PositionTestSuite) TestSingleEntry() {
	position := NewPosition("BTC", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	position.AddEntry(Entry{
		Timestamp:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExecutedPrice:     100.02,
		NotionalCommitted: 500,
		Fee:               0.5,
		SlippageCost:      0.1,
	})

	suite.Len(position.Entries, 1)
	suite.InDelta(500, position.TotalNotional(), 1e-9)
	suite.InDelta(500.0/100.02, position.TotalQuantity(), 1e-9)
	suite.InDelta(0.5, position.TotalEntryFees(), 1e-9)
	suite.InDelta(0.1, position.TotalEntrySlippage(), 1e-9)
	suite.InDelta(100.02, position.AverageEntryPrice(), 1e-9)
}

func (suite *PositionTestSuite) TestAveragingEntries() {
	position := NewPosition("ETH", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	// Equal quantities at 100 and 200 average to 133.33..., not 150:
	// the average is volume weighted, 300 notional over 2.25 units.
	position.AddEntry(Entry{
		Timestamp:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExecutedPrice:     100,
		NotionalCommitted: 150,
		Fee:               0.15,
	})
	position.AddEntry(Entry{
		Timestamp:         time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		ExecutedPrice:     200,
		NotionalCommitted: 150,
		Fee:               0.15,
	})

	suite.Len(position.Entries, 2)
	suite.InDelta(300, position.TotalNotional(), 1e-9)
	suite.InDelta(2.25, position.TotalQuantity(), 1e-9)
	suite.InDelta(0.3, position.TotalEntryFees(), 1e-9)
	suite.InDelta(300.0/2.25, position.AverageEntryPrice(), 1e-9)
}

func (suite *PositionTestSuite) TestEntriesKeepInsertionOrder() {
	position := NewPosition("BTC", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	for i := range 3 {
		position.AddEntry(Entry{
			Timestamp:         time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
			ExecutedPrice:     100 + float64(i),
			NotionalCommitted: 100,
		})
	}

	suite.Len(position.Entries, 3)
	for i, entry := range position.Entries {
		suite.Equal(time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC), entry.Timestamp)
	}
}
