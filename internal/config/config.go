package config

import (
	"errors"
	"fmt"
	"os"
	"rebalancer/internal/engine"
	"rebalancer/types"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration of a backtest run file.
type Config struct {
	Backtest Backtest `yaml:"backtest"`
	Data     Data     `yaml:"data"`
	Strategy Strategy `yaml:"strategy"`
	Journal  Journal  `yaml:"journal"`
	Logging  Logging  `yaml:"logging"`
}

// Backtest mirrors engine.BacktestConfig. Money values are decimal strings
// and dates use 2006-01-02; empty values take the engine defaults.
type Backtest struct {
	InitialCapital     string   `yaml:"initial_capital"`
	TransactionCost    string   `yaml:"transaction_cost"`
	Slippage           string   `yaml:"slippage"`
	RebalanceFreq      string   `yaml:"rebalance_freq"`
	StartDate          string   `yaml:"start_date"`
	EndDate            string   `yaml:"end_date"`
	MaxSinglePosition  float64  `yaml:"max_single_position"`
	MaxGroupPosition   float64  `yaml:"max_group_position"`
	RiskFreeRate       *float64 `yaml:"risk_free_rate"`
	MissingPricePolicy string   `yaml:"missing_price_policy"`
	RebalanceBand      float64  `yaml:"rebalance_band"`
	StopLoss           float64  `yaml:"stop_loss"`
}

// Data selects where price bars are loaded from.
type Data struct {
	Source  string   `yaml:"source"`
	Path    string   `yaml:"path"`
	DBURL   string   `yaml:"db_url"`
	Symbols []string `yaml:"symbols"`
}

const (
	SourceCSV      = "csv"
	SourceParquet  = "parquet"
	SourcePostgres = "postgres"
)

// Strategy names the selection adapter and holds the options of each.
type Strategy struct {
	Name       string     `yaml:"name"`
	FactorRank FactorRank `yaml:"factorrank"`
	Donchian   Donchian   `yaml:"donchian"`
}

const (
	StrategyFactorRank = "factorrank"
	StrategyDonchian   = "donchian"
)

type FactorRank struct {
	TopN             int      `yaml:"top_n"`
	Weighting        string   `yaml:"weighting"`
	VolatilityColumn string   `yaml:"volatility_column"`
	MinScore         *float64 `yaml:"min_score"`
	Factors          []Factor `yaml:"factors"`
}

// Factor scores one column. Ladder lists (at, score) breakpoints; without
// one the raw column value is the score.
type Factor struct {
	Column string       `yaml:"column"`
	Weight float64      `yaml:"weight"`
	Ladder []LadderStep `yaml:"ladder"`
}

type LadderStep struct {
	At    float64 `yaml:"at"`
	Score float64 `yaml:"score"`
}

type Donchian struct {
	Lookback    int `yaml:"lookback"`
	ATRPeriod   int `yaml:"atr_period"`
	MaxHoldings int `yaml:"max_holdings"`
}

// Journal enables the run journal when Path is set.
type Journal struct {
	Path string `yaml:"path"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

var ErrInvalid = errors.New("invalid run config")

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BACKTEST_DB_URL"); v != "" {
		cfg.Data.DBURL = v
	}
	if v := os.Getenv("BACKTEST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BACKTEST_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}
}

func (c *Config) applyDefaults() {
	if c.Data.Source == "" {
		c.Data.Source = SourceCSV
	}
	if c.Strategy.Name == "" {
		c.Strategy.Name = StrategyFactorRank
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks the file-level settings and that the backtest section
// converts to a valid engine config.
func (c *Config) Validate() error {
	switch c.Data.Source {
	case SourceCSV, SourceParquet:
		if c.Data.Path == "" {
			return fmt.Errorf("%w: data.path is required for source %s", ErrInvalid, c.Data.Source)
		}
	case SourcePostgres:
		if c.Data.DBURL == "" {
			return fmt.Errorf("%w: data.db_url (or BACKTEST_DB_URL) is required for source postgres", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown data.source %q", ErrInvalid, c.Data.Source)
	}

	switch c.Strategy.Name {
	case StrategyFactorRank:
		if len(c.Strategy.FactorRank.Factors) == 0 {
			return fmt.Errorf("%w: strategy.factorrank.factors is empty", ErrInvalid)
		}
		for i, f := range c.Strategy.FactorRank.Factors {
			if f.Column == "" {
				return fmt.Errorf("%w: strategy.factorrank.factors[%d].column is empty", ErrInvalid, i)
			}
		}
	case StrategyDonchian:
	default:
		return fmt.Errorf("%w: unknown strategy.name %q", ErrInvalid, c.Strategy.Name)
	}

	_, err := c.BacktestConfig()
	return err
}

// BacktestConfig converts the backtest section to an engine config. Errors
// wrap engine.ErrInvalidConfig.
func (c *Config) BacktestConfig() (engine.BacktestConfig, error) {
	b := c.Backtest
	capital, err := decimalOr(b.InitialCapital, decimal.NewFromInt(1_000_000))
	if err != nil {
		return engine.BacktestConfig{}, fmt.Errorf("%w: initial_capital: %v", engine.ErrInvalidConfig, err)
	}
	tc, err := decimalOr(b.TransactionCost, decimal.RequireFromString("0.001"))
	if err != nil {
		return engine.BacktestConfig{}, fmt.Errorf("%w: transaction_cost: %v", engine.ErrInvalidConfig, err)
	}
	slip, err := decimalOr(b.Slippage, decimal.RequireFromString("0.001"))
	if err != nil {
		return engine.BacktestConfig{}, fmt.Errorf("%w: slippage: %v", engine.ErrInvalidConfig, err)
	}

	cfg := engine.NewBacktestConfig(capital, tc, slip)
	if b.RebalanceFreq != "" {
		freq, ok := types.LookupFrequency(b.RebalanceFreq)
		if !ok {
			return engine.BacktestConfig{}, fmt.Errorf("%w: unknown rebalance_freq %q", engine.ErrInvalidConfig, b.RebalanceFreq)
		}
		cfg.RebalanceFreq = freq
	}
	if cfg.StartDate, err = dateOrZero(b.StartDate); err != nil {
		return engine.BacktestConfig{}, fmt.Errorf("%w: start_date: %v", engine.ErrInvalidConfig, err)
	}
	if cfg.EndDate, err = dateOrZero(b.EndDate); err != nil {
		return engine.BacktestConfig{}, fmt.Errorf("%w: end_date: %v", engine.ErrInvalidConfig, err)
	}
	if b.MaxSinglePosition != 0 {
		cfg.MaxSinglePosition = b.MaxSinglePosition
	}
	if b.MaxGroupPosition != 0 {
		cfg.MaxGroupPosition = b.MaxGroupPosition
	}
	if b.RiskFreeRate != nil {
		cfg.RiskFreeRate = *b.RiskFreeRate
	}
	if b.MissingPricePolicy != "" {
		cfg.MissingPricePolicy = engine.MissingPricePolicy(strings.ToLower(b.MissingPricePolicy))
	}
	cfg.RebalanceBand = b.RebalanceBand
	cfg.StopLoss = b.StopLoss

	if err := cfg.Validate(); err != nil {
		return engine.BacktestConfig{}, err
	}
	return cfg, nil
}

func decimalOr(raw string, def decimal.Decimal) (decimal.Decimal, error) {
	if raw == "" {
		return def, nil
	}
	return decimal.NewFromString(raw)
}

func dateOrZero(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, raw)
}
