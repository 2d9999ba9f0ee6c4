package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dicenotation/internal/catalog"
	"github.com/cory-johannsen/dicenotation/internal/config"
	"github.com/cory-johannsen/dicenotation/internal/dice"
	"github.com/cory-johannsen/dicenotation/internal/observability"
)

// app carries what every subcommand needs once the root pre-run has loaded
// configuration.
type app struct {
	configPath string
	seed       int64
	catalogDir string

	cfg     config.Config
	logger  *zap.Logger
	parser  *dice.Parser
	roller  *dice.Roller
	catalog *catalog.Catalog
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "diceroll",
		Short: "Roll and analyze tabletop dice notation",
		Long: `diceroll parses dice notation such as "4d6 keep 3 highest + %str%",
reports exact statistics without rolling, and rolls with a crypto or seeded source.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to configuration file (empty = defaults and DICE_ environment)")
	root.PersistentFlags().Int64Var(&a.seed, "seed", 0, "seed for a reproducible source (overrides dice.seed)")
	root.PersistentFlags().StringVar(&a.catalogDir, "catalog", "", "macro catalog file or directory (overrides catalog.path)")

	root.AddCommand(newRollCmd(a))
	root.AddCommand(newStatsCmd(a))
	root.AddCommand(newMacroCmd(a))
	root.AddCommand(newScriptCmd(a))
	return root
}

// setup loads configuration and builds the logger, parser, roller and catalog.
//
// Postcondition: On success every app field is non-nil except catalog, which
// is nil when no catalog path is configured.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cmd.Flags().Changed("seed") {
		if a.seed < 0 {
			return fmt.Errorf("--seed must be >= 0, got %d", a.seed)
		}
		cfg.Dice.Seed = a.seed
	}
	if cmd.Flags().Changed("catalog") {
		cfg.Catalog.Path = a.catalogDir
	}
	a.cfg = cfg

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	a.logger = logger

	policy, err := cfg.Dice.Policy()
	if err != nil {
		return fmt.Errorf("dice policy: %w", err)
	}
	parser, err := dice.NewParser(policy)
	if err != nil {
		return err
	}
	a.parser = parser
	a.roller = dice.NewLoggedRoller(cfg.Dice.Source(), logger, dice.WithParser(parser))

	if cfg.Catalog.Path != "" {
		cat, err := catalog.Load(cfg.Catalog.Path, parser)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		a.catalog = cat
		logger.Debug("catalog loaded",
			zap.String("path", cfg.Catalog.Path),
			zap.Int("macros", cat.Len()),
		)
	}
	return nil
}
