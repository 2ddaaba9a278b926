// Package cli implements the contentmax command line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adstedt/contentmax-sub005/internal/config"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
)

// Build-time variables, set via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions carries the persistent flags shared by every subcommand.
type RootOptions struct {
	ConfigFile string
	LogLevel   string
	Output     string
}

type cliContextKey struct{}

// CLIContext is what subcommands pull out of the command context after the
// persistent pre-run has loaded configuration and built the logger.
type CLIContext struct {
	Config *config.Config
	Logger logging.Logger
	Opts   *RootOptions
}

// FromCommand extracts the CLIContext installed by the root pre-run.
func FromCommand(cmd *cobra.Command) *CLIContext {
	cc, _ := cmd.Context().Value(cliContextKey{}).(*CLIContext)
	return cc
}

// NewRootCommand builds the contentmax root command with all subcommands
// attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	root := &cobra.Command{
		Use:   "contentmax",
		Short: "Catalog taxonomy and opportunity scoring pipeline",
		Long: `contentmax builds a category taxonomy from a product catalog,
merges duplicate categories, attributes search and behavioral metrics onto
the tree, and scores every category for optimization opportunities.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.ConfigFile)
			if err != nil {
				return err
			}
			if opts.LogLevel != "" {
				cfg.Log.Level = opts.LogLevel
			}
			logger, err := newCLILogger(cfg.Log)
			if err != nil {
				return err
			}
			cc := &CLIContext{Config: cfg, Logger: logger, Opts: opts}
			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default searches ., ./configs, /etc/contentmax)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "override log level (debug, info, warn, error)")
	flags.StringVarP(&opts.Output, "output", "o", "text", "output format (text, json)")

	root.AddCommand(
		newRunCommand(),
		newExportCommand(),
		newServeCommand(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	for _, candidate := range []string{
		"config.yaml",
		"configs/config.yaml",
		"/etc/contentmax/config.yaml",
	} {
		if _, err := os.Stat(candidate); err == nil {
			return config.Load(candidate)
		}
	}
	return config.LoadFromEnv()
}

// newCLILogger writes human-readable logs to stderr so stdout stays clean
// for command output.
func newCLILogger(cfg config.LogConfig) (logging.Logger, error) {
	format := cfg.Format
	if format == "" || format == "text" {
		format = "console"
	}
	return logging.NewLogger(logging.LogConfig{
		Level:       cfg.Level,
		Format:      format,
		OutputPaths: []string{"stderr"},
	})
}

// PrintResult writes v to stdout in the selected output format.  Text output
// falls back to JSON for values without a table rendering.
func PrintResult(opts *RootOptions, v interface{}) error {
	switch opts.Output {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		if t, ok := v.(interface{ Rows() ([]string, [][]string) }); ok {
			headers, rows := t.Rows()
			fmt.Print(FormatTable(headers, rows))
			return nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// FormatTable renders headers and rows as aligned plain-text columns.
func FormatTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(padRight(cell, widths[i]))
		}
		b.WriteString("\n")
	}
	writeRow(headers)
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = strings.Repeat("-", widths[i])
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
