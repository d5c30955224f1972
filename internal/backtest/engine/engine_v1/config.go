package engine

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/meridianlab/tradesim/pkg/errors"
	"github.com/moznion/go-optional"
)

// BacktestEngineV1Config configures one backtest run.
type BacktestEngineV1Config struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting capital for the backtest in quote currency,minimum=0"`
	// Exchange and Symbol select the cost model. The pair must exist in the
	// cost model table or initialization fails.
	Exchange string `yaml:"exchange" json:"exchange" jsonschema:"title=Exchange,description=Exchange name used for cost model lookup"`
	Symbol   string `yaml:"symbol" json:"symbol" jsonschema:"title=Symbol,description=Instrument symbol used for cost model lookup"`
	// CostTablePath points to a YAML cost model table. Empty means the
	// built-in exchange tables.
	CostTablePath string                     `yaml:"cost_table_path" json:"cost_table_path" jsonschema:"title=Cost Table Path,description=Optional path to a YAML cost model table"`
	StartTime     optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Signals before this time are skipped"`
	EndTime       optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Signals after this time are skipped"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config.
func (c *BacktestEngineV1Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		InitialCapital float64    `yaml:"initial_capital"`
		Exchange       string     `yaml:"exchange"`
		Symbol         string     `yaml:"symbol"`
		CostTablePath  string     `yaml:"cost_table_path"`
		StartTime      *time.Time `yaml:"start_time"`
		EndTime        *time.Time `yaml:"end_time"`
	}

	var config Config
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.InitialCapital = config.InitialCapital
	c.Exchange = config.Exchange
	c.Symbol = config.Symbol
	c.CostTablePath = config.CostTablePath

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// Validate checks the configuration before the engine accepts it.
func (c *BacktestEngineV1Config) Validate() error {
	if c.InitialCapital < 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "initial capital must not be negative, got %f", c.InitialCapital)
	}

	if c.Exchange == "" || c.Symbol == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "exchange and symbol are required for cost model lookup")
	}

	return nil
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config.
func (c *BacktestEngineV1Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config.
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema := c.GenerateSchema()

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// TestConfig returns a configuration suitable for tests.
func TestConfig(initialCapital float64, exchange string, symbol string) BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital: initialCapital,
		Exchange:       exchange,
		Symbol:         symbol,
		CostTablePath:  "",
		StartTime:      optional.None[time.Time](),
		EndTime:        optional.None[time.Time](),
	}
}

// EmptyConfig returns a BacktestEngineV1Config with default values.
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital: 0,
		Exchange:       "",
		Symbol:         "",
		CostTablePath:  "",
		StartTime:      optional.None[time.Time](),
		EndTime:        optional.None[time.Time](),
	}
}
