package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/meridianlab/tradesim/pkg/errors"
)

type SignalSide string

const (
	// SignalSideBuy opens a new position or adds an averaging entry to an open one.
	SignalSideBuy SignalSide = "BUY"
	// SignalSideSell closes the entire open position for the symbol.
	SignalSideSell SignalSide = "SELL"
)

// Signal is one trading decision produced by strategy logic. It carries no
// cost information; fees and slippage are applied by the engine when the
// signal is executed. Signals are immutable and assumed to arrive in
// chronological order.
type Signal struct {
	// Timestamp is the moment the decision was made. The engine assumes the
	// input stream is sorted by this field and performs no sorting itself.
	Timestamp time.Time  `yaml:"timestamp" json:"timestamp" csv:"timestamp" validate:"required"`
	Side      SignalSide `yaml:"side" json:"side" csv:"side" validate:"required,oneof=BUY SELL"`
	Symbol    string     `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	// Price is the reference price before any cost adjustment, e.g. the close
	// of the candle that triggered the decision.
	Price float64 `yaml:"price" json:"price" csv:"price" validate:"required,gt=0"`
	// PositionSizeFraction is the fraction of currently available capital to
	// commit on a BUY (0.1 = 10%). Advisory on SELL: a SELL always closes the
	// full position, so zero is accepted there.
	PositionSizeFraction float64 `yaml:"position_size_fraction" json:"position_size_fraction" csv:"position_size_fraction" validate:"gte=0,lte=1"`
}

// Validate validates the Signal struct. Sizing is only required where it is
// consumed: a BUY must carry a positive fraction, a SELL closes the full
// position regardless.
func (s *Signal) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSignal, "invalid signal", err)
	}

	if s.Side == SignalSideBuy && s.PositionSizeFraction <= 0 {
		return errors.Newf(errors.ErrCodeInvalidSizeFraction,
			"buy signal requires a positive position size fraction, got %f", s.PositionSizeFraction)
	}

	return nil
}
