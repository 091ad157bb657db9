package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"intakectl/internal/config"
	"intakectl/internal/engine"
	"intakectl/internal/normalizer"
	"intakectl/pkg/logging"
)

var (
	rootDir   string
	rootDebug bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "intakectl",
	Short: "Verify and maintain intake parser fixtures",
	Long: `intakectl checks the intake formats of a repository against the parser
execution engine: it verifies that every fixture parses into its expected
event, that the fixtures cover enough of each parser and that every format's
fields.yml declares exactly the fields its parser emits.

With the fix flags it rewrites fixture expectations and fields.yml in place.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. failed checks)
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if rootDebug {
			level = logging.LevelDebug
		}
		logging.InitForCLI(level, cmd.ErrOrStderr())
	},
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "intakectl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Intakes root directory (default: intakesRoot from config, or the current directory)")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newCoverageCmd())
	rootCmd.AddCommand(newTaxonomyCmd())
	rootCmd.AddCommand(newFormatsCmd())
	rootCmd.AddCommand(newServeMCPCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}

// newManager creates the engine manager used by the commands. Tests replace
// it with a fake.
var newManager = func(cfg config.IntakectlConfig) (engine.Manager, error) {
	m, err := engine.NewCommandManager(cfg.Engine.Command, cfg.IntakesRoot, cfg.Engine.Timeout)
	if err != nil {
		return nil, err
	}
	return engine.NewCached(m, cfg.Engine.CacheTTL), nil
}

// runtime is what every command needs to talk to the engine.
type runtime struct {
	cfg        config.IntakectlConfig
	manager    engine.Manager
	normalizer *normalizer.Normalizer
}

func loadRuntime() (*runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if rootDir != "" {
		cfg.IntakesRoot = rootDir
	}
	logging.Debug("CLI", "Intakes root: %s, engine: %v", cfg.IntakesRoot, cfg.Engine.Command)

	manager, err := newManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine manager: %w", err)
	}
	return &runtime{
		cfg:        cfg,
		manager:    manager,
		normalizer: normalizer.New(normalizer.DefaultConfig(cfg.Normalizer.Dialect)),
	}, nil
}
