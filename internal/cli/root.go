package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"resumatch/internal/common"
	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/keywords"
	"resumatch/internal/lexicon"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var configFile string

// flagBindings maps a command's flags onto config keys; bound at load time
var flagBindings = map[*cobra.Command]map[string]string{}

var rootCmd = &cobra.Command{
	Use:   "resumatch",
	Short: "Score resumes against job descriptions by keyword coverage",
	Long: `Resumatch extracts keywords and short phrases from a job description and
a resume, then reports which required keywords the resume covers, which are
missing, and a 0-100 match score.

Run it once from the command line, rank a batch of resumes, serve the HTTP
API, or consume match jobs from a message queue.`,
	SilenceUsage:      true,
	PersistentPreRunE: initialize,
}

// Execute runs the root command with ctx
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// initialize loads configuration once flags are parsed and attaches the
// config and logger to the command context
func initialize(cmd *cobra.Command, args []string) error {
	var bindings []config.FlagBinding
	for flag, key := range flagBindings[cmd] {
		bindings = append(bindings, config.FlagBinding{Key: key, Flag: cmd.Flags().Lookup(flag)})
	}

	cfg, err := config.LoadConfig(configFile, bindings...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := errors.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	// stdout carries command output
	logger := errors.NewLoggerWithWriter(os.Stderr, level)

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		return fmt.Errorf("failed to apply vault secrets: %w", err)
	}

	logger.Debug("Starting resumatch",
		"version", Version,
		"command", cmd.Name(),
		"log_level", cfg.App.LogLevel,
		"lexicon", cfg.Matching.LexiconFile)

	ctx := context.WithValue(cmd.Context(), configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	cmd.SetContext(ctx)
	return nil
}

// bindFlags records which config key each named flag of cmd overrides
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	flagBindings[cmd] = keys
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

// buildEngine assembles the keyword engine from the matching settings
func buildEngine(cfg *config.Config, logger *errors.Logger) (*keywords.Engine, error) {
	engine, lex, err := lexicon.BuildEngine(cfg.Matching)
	if err != nil {
		return nil, fmt.Errorf("failed to build keyword engine: %w", err)
	}
	if lex != nil {
		logger.Info("Lexicon loaded",
			"file", lex.Path,
			"phrases", len(lex.Phrases),
			"aliases", len(lex.Aliases),
			"skills", len(lex.Skills))
	}
	return engine, nil
}

// newRunner prepares the shared pieces of a document command
func newRunner(cmd *cobra.Command, cfg *config.Config, logger *errors.Logger) common.Runner {
	return common.Runner{
		Logger:      logger,
		MaxFileSize: cfg.App.MaxFileSize,
		Output:      common.NewOutputHandler(logger).WithStdout(cmd.OutOrStdout()),
	}
}

// addOutputFlags registers --output and --format on cmd
func addOutputFlags(cmd *cobra.Command, cmdConfig *common.CommandConfig) {
	cmd.Flags().StringVarP(&cmdConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cmdConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "text", "markdown"}, cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveFormat applies the configured default format and validates it
func resolveFormat(cmdConfig *common.CommandConfig) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		return common.ResolveOutputFormat(cmdConfig, cfg.App)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: search /etc/resumatch, $HOME/.resumatch, .)")

	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(lexiconCmd)
	rootCmd.AddCommand(versionCmd)
}
