package engine

import (
	"github.com/meridianlab/tradesim/internal/types"
	"github.com/moznion/go-optional"
)

// OnSignalCallback is called after each processed signal with the number of
// signals handled so far and the total. Used for progress reporting.
type OnSignalCallback func(current int, total int)

// Engine replays an ordered signal stream against a market cost model and
// produces a ledger of completed trades.
type Engine interface {
	// Initialize configures the engine from a YAML configuration string.
	// Cost model resolution happens here: a missing (exchange, symbol) entry
	// fails initialization before any signal is processed.
	Initialize(config string) error
	// Run processes the signal stream as a single synchronous fold and
	// returns the completed-trade ledger in close order. Signals are assumed
	// to be pre-sorted by timestamp. A position still open when the stream
	// ends is not included in the result.
	Run(signals []types.Signal, onSignal optional.Option[OnSignalCallback]) ([]types.CompletedTrade, error)
	// AvailableCapital returns the engine's current available capital.
	AvailableCapital() float64
	// WriteResults writes per-symbol statistics and the trade ledger to the
	// given folder.
	WriteResults(folder string) error
	// Reset restores the engine to its initial state so the same instance
	// can replay another stream.
	Reset() error
	// Shutdown releases resources held by the engine, including the trade
	// ledger database. The engine must be re-initialized before reuse.
	Shutdown() error
	// GetConfigSchema returns the JSON schema of the engine configuration.
	GetConfigSchema() (string, error)
}
