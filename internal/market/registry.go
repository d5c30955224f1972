package market

import (
	"fmt"
	"os"

	"github.com/meridianlab/tradesim/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Registry is a read-only lookup table of cost models keyed by
// (exchange, symbol). It is built once before a backtest run; a missing
// entry is a fatal configuration error, never a fallback, since silently
// backtesting with wrong costs would invalidate the results.
type Registry struct {
	models map[string]CostModel
}

func key(exchange string, symbol string) string {
	return fmt.Sprintf("%s/%s", exchange, symbol)
}

// NewRegistry creates a registry containing the given cost models.
// Every model is validated; an invalid model fails construction.
func NewRegistry(models []CostModel) (*Registry, error) {
	registry := &Registry{
		models: make(map[string]CostModel, len(models)),
	}

	for _, model := range models {
		if err := model.Validate(); err != nil {
			return nil, err
		}

		registry.models[key(model.Exchange, model.Symbol)] = model
	}

	return registry, nil
}

// DefaultRegistry creates a registry with the built-in exchange tables.
func DefaultRegistry() (*Registry, error) {
	return NewRegistry(builtinCostModels())
}

// NewRegistryFromYAMLFile loads a user-supplied cost model table from a YAML
// file containing a list of cost model entries.
func NewRegistryFromYAMLFile(path string) (*Registry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read cost model table %s", path)
	}

	var models []CostModel
	if err := yaml.Unmarshal(content, &models); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigParseFailed, "failed to parse cost model table", err)
	}

	return NewRegistry(models)
}

// Lookup returns the cost model for the given exchange and symbol. Fails
// with ErrCodeCostModelNotFound when no entry exists for the pair.
func (r *Registry) Lookup(exchange string, symbol string) (CostModel, error) {
	model, ok := r.models[key(exchange, symbol)]
	if !ok {
		return CostModel{}, errors.Newf(errors.ErrCodeCostModelNotFound, "no cost model configured for %s/%s", exchange, symbol)
	}

	return model, nil
}

// Len returns the number of configured instruments.
func (r *Registry) Len() int {
	return len(r.models)
}
