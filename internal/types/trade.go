package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is a single fill within an open position. Entries are created by the
// engine when a BUY signal executes and are never mutated afterwards.
type Entry struct {
	Timestamp time.Time `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
	// ExecutedPrice is the fill price after slippage, snapped to the tick size.
	ExecutedPrice float64 `yaml:"executed_price" json:"executed_price" csv:"executed_price"`
	// NotionalCommitted is the capital in currency units spent on this entry.
	NotionalCommitted float64 `yaml:"notional_committed" json:"notional_committed" csv:"notional_committed"`
	Fee               float64 `yaml:"fee" json:"fee" csv:"fee"`
	// SlippageCost is the economic cost of slippage on this entry. It is
	// already embedded in ExecutedPrice and tracked here for reporting only.
	SlippageCost float64 `yaml:"slippage_cost" json:"slippage_cost" csv:"slippage_cost"`
}

// Position is the open trade for one symbol. It accumulates entries when the
// strategy averages into a position with repeated BUY signals and is consumed
// wholesale by the closing SELL. Entries are append-only and kept in
// chronological order by the engine.
type Position struct {
	Symbol   string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	OpenedAt time.Time `yaml:"opened_at" json:"opened_at" csv:"opened_at"`
	Entries  []Entry   `yaml:"entries" json:"entries" csv:"entries"`
}

// NewPosition creates a Position for symbol with its first entry timestamp.
func NewPosition(symbol string, openedAt time.Time) *Position {
	return &Position{
		Symbol:   symbol,
		OpenedAt: openedAt,
		Entries:  nil,
	}
}

// AddEntry appends a fill to the position. The caller guarantees
// chronological order and a positive executed price.
func (p *Position) AddEntry(entry Entry) {
	p.Entries = append(p.Entries, entry)
}

// TotalNotional returns the capital committed across all entries.
func (p *Position) TotalNotional() float64 {
	total := decimal.Zero
	for _, entry := range p.Entries {
		total = total.Add(decimal.NewFromFloat(entry.NotionalCommitted))
	}

	result, _ := total.Float64()

	return result
}

// TotalQuantity returns the quantity of the asset held across all entries.
// ExecutedPrice is always positive by construction, so division is safe.
func (p *Position) TotalQuantity() float64 {
	total := decimal.Zero
	for _, entry := range p.Entries {
		qty := decimal.NewFromFloat(entry.NotionalCommitted).Div(decimal.NewFromFloat(entry.ExecutedPrice))
		total = total.Add(qty)
	}

	result, _ := total.Float64()

	return result
}

// TotalEntryFees returns the fees paid across all entries.
func (p *Position) TotalEntryFees() float64 {
	total := decimal.Zero
	for _, entry := range p.Entries {
		total = total.Add(decimal.NewFromFloat(entry.Fee))
	}

	result, _ := total.Float64()

	return result
}

// TotalEntrySlippage returns the reported slippage cost across all entries.
func (p *Position) TotalEntrySlippage() float64 {
	total := decimal.Zero
	for _, entry := range p.Entries {
		total = total.Add(decimal.NewFromFloat(entry.SlippageCost))
	}

	result, _ := total.Float64()

	return result
}

// AverageEntryPrice returns the volume-weighted average entry price.
// Returns 0 when the position has no entries.
func (p *Position) AverageEntryPrice() float64 {
	quantity := p.TotalQuantity()
	if quantity == 0 {
		return 0
	}

	avg := decimal.NewFromFloat(p.TotalNotional()).Div(decimal.NewFromFloat(quantity))
	result, _ := avg.Float64()

	return result
}

// CompletedTrade is the engine's output record for one full round trip:
// one or more BUY entries closed by a single SELL.
type CompletedTrade struct {
	Symbol   string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	OpenedAt time.Time `yaml:"opened_at" json:"opened_at" csv:"opened_at"`
	ClosedAt time.Time `yaml:"closed_at" json:"closed_at" csv:"closed_at"`
	// NumEntries is the number of fills accumulated before the close. Values
	// above 1 indicate dollar-cost-averaging.
	NumEntries    int     `yaml:"num_entries" json:"num_entries" csv:"num_entries"`
	AvgEntryPrice float64 `yaml:"avg_entry_price" json:"avg_entry_price" csv:"avg_entry_price"`
	ExitPrice     float64 `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	// TotalNotional is the capital committed across all entries.
	TotalNotional float64 `yaml:"total_notional" json:"total_notional" csv:"total_notional"`
	ExitProceeds  float64 `yaml:"exit_proceeds" json:"exit_proceeds" csv:"exit_proceeds"`
	EntryFees     float64 `yaml:"entry_fees" json:"entry_fees" csv:"entry_fees"`
	ExitFee       float64 `yaml:"exit_fee" json:"exit_fee" csv:"exit_fee"`
	TotalFees     float64 `yaml:"total_fees" json:"total_fees" csv:"total_fees"`
	// Slippage figures are informational: the executed prices already reflect
	// the full economic cost of slippage, so these are never deducted again.
	EntrySlippage float64 `yaml:"entry_slippage" json:"entry_slippage" csv:"entry_slippage"`
	ExitSlippage  float64 `yaml:"exit_slippage" json:"exit_slippage" csv:"exit_slippage"`
	TotalSlippage float64 `yaml:"total_slippage" json:"total_slippage" csv:"total_slippage"`
	// GrossPnL is ExitProceeds - TotalNotional.
	GrossPnL float64 `yaml:"gross_pnl" json:"gross_pnl" csv:"gross_pnl"`
	// NetPnL is GrossPnL - TotalFees. It always equals the change in
	// available capital produced by this round trip.
	NetPnL float64 `yaml:"net_pnl" json:"net_pnl" csv:"net_pnl"`
	// CapitalAfter is the available capital immediately after the close.
	CapitalAfter float64 `yaml:"capital_after" json:"capital_after" csv:"capital_after"`
	// ReturnPct is NetPnL as a percentage of TotalNotional.
	ReturnPct float64 `yaml:"return_pct" json:"return_pct" csv:"return_pct"`
}
