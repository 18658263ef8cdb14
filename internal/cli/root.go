package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/dshills/rekey/internal/config"
	"github.com/dshills/rekey/internal/mapping"
	"github.com/dshills/rekey/internal/rewrite"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitChanges      = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitRuntimeError = 4
)

// Global flags
var (
	flagMapping string
	flagPrefix  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "rekey",
	Short: "Rewrite issue keys in commit messages",
	Long: "rekey rewrites old issue-tracker keys (SK-123) in commit messages to a new scheme (AB#456)\n" +
		"using a JSON mapping file. Use it as a message filter during a history rewrite,\n" +
		"as a commit-msg hook, or to scan history for messages that still need rewriting.",
	SilenceUsage: true,
}

// Run executes the root command and returns an exit code.
func Run() int {
	exitCode = ExitSuccess
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}
	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print rekey version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rekey version %s\n", version)
	},
}

// buildOverrides collects config overrides from global flags. The prefix is
// included whenever the flag was given, even if empty.
func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagMapping != "" {
		m["mappingFile"] = flagMapping
	}
	if rootCmd.PersistentFlags().Changed("prefix") {
		m["prefix"] = flagPrefix
	}
	return m
}

// loadRewriter resolves configuration and loads the mapping. On failure it
// reports the error, sets ExitConfigError and returns nil.
func loadRewriter(cmd *cobra.Command) (*rewrite.Rewriter, config.Config) {
	cfg, err := config.Load(buildOverrides())
	if err != nil {
		configFailure(cmd, err)
		return nil, config.Config{}
	}
	m, err := mapping.Load(cfg.MappingFile)
	if err != nil {
		configFailure(cmd, err)
		if errors.Is(err, mapping.ErrNotFound) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Set the mapping with --mapping, %s, or `rekey config set mappingFile <path>`\n", config.EnvMappingFile)
		}
		return nil, config.Config{}
	}
	if flagVerbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "rekey: loaded %d keys from %s\n", m.Len(), cfg.MappingFile)
	}
	return rewrite.New(m, cfg.PrefixValue()), cfg
}

// configFailure reports a configuration or mapping error and sets
// ExitConfigError.
func configFailure(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	exitCode = ExitConfigError
}

// logChanges prints one line per rewritten key when --verbose is set.
func logChanges(cmd *cobra.Command, changes []rewrite.Change) {
	if !flagVerbose {
		return
	}
	for _, ch := range changes {
		fmt.Fprintf(cmd.ErrOrStderr(), "rekey: %s -> %s\n", ch.Token, ch.Replacement)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagMapping, "mapping", "", "Mapping file path (default: mapping.json)")
	rootCmd.PersistentFlags().StringVar(&flagPrefix, "prefix", "", "Prefix prepended to mapped keys (default: AB#)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log each rewritten key to stderr")

	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(messageCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
