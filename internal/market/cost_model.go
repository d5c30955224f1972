package market

import (
	"math"

	"github.com/meridianlab/tradesim/internal/types"
	"github.com/meridianlab/tradesim/pkg/errors"
)

// CostRegime selects how an instrument charges execution costs.
type CostRegime string

const (
	// CostRegimePercentage charges costs as fractions of price and notional.
	// Typical for crypto spot exchanges.
	CostRegimePercentage CostRegime = "percentage"
	// CostRegimeFixed charges a flat currency fee per trade and slips a fixed
	// number of ticks. Typical for exchange-traded futures.
	CostRegimeFixed CostRegime = "fixed"
)

// CostModel describes the execution costs of one (exchange, symbol) pair.
// Exactly one cost regime is active per instance, resolved at construction;
// ApplySlippage and ComputeFee dispatch on Regime rather than checking which
// fields happen to be set.
type CostModel struct {
	Exchange string     `yaml:"exchange" json:"exchange"`
	Symbol   string     `yaml:"symbol" json:"symbol"`
	Regime   CostRegime `yaml:"regime" json:"regime"`
	// TickSize is the minimum price increment. Executed prices are always
	// exact multiples of it.
	TickSize float64 `yaml:"tick_size" json:"tick_size"`
	// PricePrecision is the number of decimal places prices are quoted at.
	PricePrecision int `yaml:"price_precision" json:"price_precision"`

	// Percentage regime fields.
	FeeRate      float64 `yaml:"fee_rate,omitempty" json:"fee_rate,omitempty"`
	SlippageRate float64 `yaml:"slippage_rate,omitempty" json:"slippage_rate,omitempty"`

	// Fixed regime fields.
	ExchangeFee   float64 `yaml:"exchange_fee,omitempty" json:"exchange_fee,omitempty"`
	SlippageTicks int     `yaml:"slippage_ticks,omitempty" json:"slippage_ticks,omitempty"`

	// Informational contract metadata for futures instruments.
	TickValue    float64 `yaml:"tick_value,omitempty" json:"tick_value,omitempty"`
	ContractSize float64 `yaml:"contract_size,omitempty" json:"contract_size,omitempty"`
	Currency     string  `yaml:"currency,omitempty" json:"currency,omitempty"`
}

// Validate checks the structural invariants of the model: a positive tick
// size and exactly one active cost regime.
func (m *CostModel) Validate() error {
	if m.TickSize <= 0 {
		return errors.Newf(errors.ErrCodeInvalidCostModel, "tick size must be positive for %s/%s, got %f", m.Exchange, m.Symbol, m.TickSize)
	}

	switch m.Regime {
	case CostRegimePercentage:
		if m.FeeRate < 0 || m.SlippageRate < 0 {
			return errors.Newf(errors.ErrCodeInvalidCostModel, "negative percentage costs for %s/%s", m.Exchange, m.Symbol)
		}
	case CostRegimeFixed:
		if m.ExchangeFee < 0 || m.SlippageTicks < 0 {
			return errors.Newf(errors.ErrCodeInvalidCostModel, "negative fixed costs for %s/%s", m.Exchange, m.Symbol)
		}
	default:
		return errors.Newf(errors.ErrCodeInvalidCostModel, "unknown cost regime %q for %s/%s", m.Regime, m.Exchange, m.Symbol)
	}

	return nil
}

// ApplySlippage converts a reference price into an executed price. Slippage
// always moves the price against the trader: BUY executes higher, SELL
// executes lower. The result is snapped to the nearest tick multiple, rounding
// half away from zero.
func (m *CostModel) ApplySlippage(referencePrice float64, side types.SignalSide) float64 {
	var executed float64

	switch m.Regime {
	case CostRegimeFixed:
		offset := float64(m.SlippageTicks) * m.TickSize
		if side == types.SignalSideBuy {
			executed = referencePrice + offset
		} else {
			executed = referencePrice - offset
		}
	case CostRegimePercentage:
		if side == types.SignalSideBuy {
			executed = referencePrice * (1 + m.SlippageRate)
		} else {
			executed = referencePrice * (1 - m.SlippageRate)
		}
	}

	return m.RoundToTick(executed)
}

// ComputeFee returns the fee for a trade of the given notional value. In the
// fixed regime the fee is flat per trade regardless of notional.
func (m *CostModel) ComputeFee(notional float64) float64 {
	if m.Regime == CostRegimeFixed {
		return m.ExchangeFee
	}

	return notional * m.FeeRate
}

// RoundToTick snaps a price to the nearest multiple of the tick size.
// Ties round half away from zero, which is math.Round's behavior.
func (m *CostModel) RoundToTick(price float64) float64 {
	return math.Round(price/m.TickSize) * m.TickSize
}
