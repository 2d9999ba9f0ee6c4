package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicenotation/internal/dice"
)

func validConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Dice: DiceConfig{
			RerollLimit:           100,
			ExplodeLimit:          100,
			AllowFullRangeExplode: true,
			MixedDice:             "first",
		},
		Scripting: ScriptingConfig{
			InstructionLimit: 100000,
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, dice.DefaultRerollLimit, cfg.Dice.RerollLimit)
	assert.Equal(t, dice.DefaultExplodeLimit, cfg.Dice.ExplodeLimit)
	assert.True(t, cfg.Dice.AllowFullRangeExplode)
	assert.Equal(t, "first", cfg.Dice.MixedDice)
	assert.Empty(t, cfg.Catalog.Path)

	p, err := cfg.Dice.Policy()
	require.NoError(t, err)
	assert.Equal(t, dice.DefaultPolicy(), p)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
logging:
  level: debug
  format: console
dice:
  reroll_limit: 3
  explode_limit: 10
  allow_full_range_explode: false
  mixed_dice: reject
  seed: 42
scripting:
  instruction_limit: 5000
catalog:
  path: macros.yaml
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Dice.RerollLimit)
	assert.Equal(t, 10, cfg.Dice.ExplodeLimit)
	assert.False(t, cfg.Dice.AllowFullRangeExplode)
	assert.Equal(t, int64(42), cfg.Dice.Seed)
	assert.Equal(t, 5000, cfg.Scripting.InstructionLimit)
	assert.Equal(t, "macros.yaml", cfg.Catalog.Path)

	p, err := cfg.Dice.Policy()
	require.NoError(t, err)
	assert.Equal(t, dice.MixedDiceReject, p.MixedDice)
	assert.Equal(t, 3, p.RerollLimit)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DICE_DICE_EXPLODE_LIMIT", "7")
	t.Setenv("DICE_LOGGING_LEVEL", "warn")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Dice.ExplodeLimit)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestLoadFromViper(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("dice.mixed_dice", "sometimes")
	_, err := LoadFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dice.mixed_dice")
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingFormat(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		cfg := validConfig()
		cfg.Logging.Format = format
		assert.NoError(t, cfg.Validate(), "format %q should be valid", format)
	}
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateAggregatesViolations(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	cfg.Dice.RerollLimit = -1
	cfg.Dice.Seed = -5
	cfg.Scripting.InstructionLimit = -1
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"logging.level", "dice.reroll_limit", "dice.seed", "scripting.instruction_limit"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestDiceConfig_Source(t *testing.T) {
	seeded := DiceConfig{Seed: 9}
	a, b := seeded.Source(), seeded.Source()
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Next(1, 100), b.Next(1, 100), "same seed must replay")
	}
	assert.NotNil(t, DiceConfig{}.Source())
}

// Property-based tests

func TestPropertyValidLimitRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(0, dice.MaxIterationLimit).Draw(t, "limit")
		cfg := validConfig()
		cfg.Dice.ExplodeLimit = limit
		cfg.Dice.RerollLimit = limit
		if err := cfg.Validate(); err != nil {
			t.Fatalf("valid limit %d rejected: %v", limit, err)
		}
		if _, err := cfg.Dice.Policy(); err != nil {
			t.Fatalf("valid limit %d rejected by Policy: %v", limit, err)
		}
	})
}

func TestPropertyInvalidLimitRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.OneOf(
			rapid.IntRange(-1000, -1),
			rapid.IntRange(dice.MaxIterationLimit+1, 10000),
		).Draw(t, "limit")
		cfg := validConfig()
		cfg.Dice.ExplodeLimit = limit
		if err := cfg.Validate(); err == nil {
			t.Fatalf("invalid limit %d accepted", limit)
		}
		if _, err := cfg.Dice.Policy(); err == nil {
			t.Fatalf("invalid limit %d accepted by Policy", limit)
		}
	})
}

func TestShippedDevConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "dev.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "content/macros", cfg.Catalog.Path)
}
