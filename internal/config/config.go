// Package config provides Viper-based configuration loading for the dice tools.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/dicenotation/internal/dice"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// DiceConfig holds the parsing policy and the random source settings.
type DiceConfig struct {
	// RerollLimit is the per-die reroll cap when the notation gives none.
	RerollLimit int `mapstructure:"reroll_limit"`
	// ExplodeLimit is the per-die explosion cap when the notation gives none.
	ExplodeLimit int `mapstructure:"explode_limit"`
	// AllowFullRangeExplode permits explode conditions matching every face.
	AllowFullRangeExplode bool `mapstructure:"allow_full_range_explode"`
	// MixedDice is "first" or "reject".
	MixedDice string `mapstructure:"mixed_dice"`
	// Seed selects a reproducible source when non-zero; zero uses crypto/rand.
	Seed int64 `mapstructure:"seed"`
}

// Policy converts the settings to a dice.Policy.
//
// Postcondition: Returns a Policy that passes dice.Policy.Validate, or an error.
func (d DiceConfig) Policy() (dice.Policy, error) {
	mixed, err := dice.ParseMixedDicePolicy(d.MixedDice)
	if err != nil {
		return dice.Policy{}, err
	}
	p := dice.Policy{
		RerollLimit:           d.RerollLimit,
		ExplodeLimit:          d.ExplodeLimit,
		AllowFullRangeExplode: d.AllowFullRangeExplode,
		MixedDice:             mixed,
	}
	if err := p.Validate(); err != nil {
		return dice.Policy{}, err
	}
	return p, nil
}

// Source returns the random source the settings select.
func (d DiceConfig) Source() dice.Source {
	if d.Seed != 0 {
		return dice.NewSeededSource(uint64(d.Seed))
	}
	return dice.NewCryptoSource()
}

// ScriptingConfig holds Lua sandbox settings.
type ScriptingConfig struct {
	// InstructionLimit caps VM instructions per script call; 0 disables the cap.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// CatalogConfig locates the roll macro catalog.
type CatalogConfig struct {
	// Path is a YAML file or a directory of YAML files; empty means no catalog.
	Path string `mapstructure:"path"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dice      DiceConfig      `mapstructure:"dice"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDice(c.Dice); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Scripting.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 0, got %d", c.Scripting.InstructionLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateDice(d DiceConfig) error {
	var errs []string
	if d.RerollLimit < 0 || d.RerollLimit > dice.MaxIterationLimit {
		errs = append(errs, fmt.Sprintf("dice.reroll_limit must be 0-%d, got %d", dice.MaxIterationLimit, d.RerollLimit))
	}
	if d.ExplodeLimit < 0 || d.ExplodeLimit > dice.MaxIterationLimit {
		errs = append(errs, fmt.Sprintf("dice.explode_limit must be 0-%d, got %d", dice.MaxIterationLimit, d.ExplodeLimit))
	}
	if _, err := dice.ParseMixedDicePolicy(d.MixedDice); err != nil {
		errs = append(errs, fmt.Sprintf("dice.mixed_dice must be one of [first, reject], got %q", d.MixedDice))
	}
	if d.Seed < 0 {
		errs = append(errs, fmt.Sprintf("dice.seed must be >= 0, got %d", d.Seed))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and
// environment variables only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// Default returns the configuration built from defaults and DICE_ environment
// variables.
func Default() (Config, error) {
	return LoadFromViper(newViper())
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	// Environment variable overrides with DICE_ prefix
	v.SetEnvPrefix("DICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("dice.reroll_limit", dice.DefaultRerollLimit)
	v.SetDefault("dice.explode_limit", dice.DefaultExplodeLimit)
	v.SetDefault("dice.allow_full_range_explode", true)
	v.SetDefault("dice.mixed_dice", "first")
	v.SetDefault("dice.seed", 0)

	v.SetDefault("scripting.instruction_limit", 100000)

	v.SetDefault("catalog.path", "")
}
