// Package cli implements the finrouter command-line interface.
//
// The commands list the registered categories and providers, fetch records
// through the router, run fetcher self tests and serve the HTTP API. Every
// command accepts --verbose (-v) for debug logging, --config for the
// directory holding config.yaml and --format (-o) for table, json or yaml
// output.
//
// # Example
//
//	finrouter fetch gdp -p country=US -p frequency=annual
//	finrouter fetch gdp equity_quote -p gdp.country=US -p equity_quote.symbol=AAPL -o json
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"finrouter/internal/catalog"
	"finrouter/internal/config"
	"finrouter/internal/router"
)

// Log levels for New; the root command switches to LogDebug on --verbose.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// Opener builds the router a command runs against
type Opener func(cfg *config.Config) (*router.Router, error)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	out       io.Writer
	configDir string
	format    string
	verbose   bool
	open      Opener
}

// New creates a CLI writing command output to out and logs to errOut
func New(out, errOut io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(errOut, level),
		out:    out,
		open:   openCatalog,
	}
}

// SetOpener replaces how commands obtain their router
func (c *CLI) SetOpener(open Opener) { c.open = open }

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "finrouter",
		Short:        "finrouter fetches normalized financial data from many providers",
		Long:         `finrouter routes a data category (gdp, equity_quote, crypto_quote, ...) to one of the providers serving it and returns ordered, provider-independent records.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			slog.SetDefault(slog.New(c.Logger))
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configDir, "config", "", "directory holding config.yaml (default . and $HOME/.finrouter)")
	root.PersistentFlags().StringVarP(&c.format, "format", "o", formatTable, "output format: table, json or yaml")

	root.AddCommand(c.categoriesCommand())
	root.AddCommand(c.providersCommand())
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.selftestCommand())
	root.AddCommand(c.serveCommand())

	return root
}

// Execute runs the CLI against the process arguments until ctx is done
func Execute(ctx context.Context) error {
	c := New(os.Stdout, os.Stderr, LogInfo)
	return c.RootCommand().ExecuteContext(ctx)
}

// setup loads the configuration and opens the router.
// The configured log level applies unless --verbose was given.
func (c *CLI) setup() (*config.Config, *router.Router, error) {
	var paths []string
	if c.configDir != "" {
		paths = append(paths, c.configDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return nil, nil, err
	}

	if !c.verbose {
		level, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("log_level: %w", err)
		}
		c.SetLogLevel(level)
	}

	r, err := c.open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, r, nil
}

func openCatalog(cfg *config.Config) (*router.Router, error) {
	cat, err := catalog.Load(cfg)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	return router.New(cat, router.WithLogger(slog.Default())), nil
}
