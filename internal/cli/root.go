// Package cli implements linkctl, the command-line front end: import a site
// into the document store, drive suggestion runs to completion locally and
// inspect stored documents.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/linksuggest/internal/app"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/logger"
)

// state is shared by the subcommands of one root command.
type state struct {
	cfgFile    string
	logLevel   string
	noProgress bool
	out        io.Writer
	errOut     io.Writer
	cfg        *config.Config
}

// NewRootCommand builds the linkctl command tree.
func NewRootCommand() *cobra.Command {
	st := &state{out: os.Stdout, errOut: os.Stderr}

	root := &cobra.Command{
		Use:   "linkctl",
		Short: "Find internal link opportunities in a site",
		Long: `linkctl imports HTML and markdown pages into the document store and
suggests links between them.

Example usage:
  linkctl import ./site --base-url https://example.com
  linkctl outbound 12          # links to add to post 12
  linkctl inbound 12           # posts that should link to post 12`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			st.out = cmd.OutOrStdout()
			st.errOut = cmd.ErrOrStderr()
			slog.SetDefault(slog.New(logger.NewHandler(st.errOut, st.logLevel, "pretty")))

			var err error
			st.cfg, err = config.Load(st.cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&st.cfgFile, "config", "", "config file (YAML or TOML)")
	root.PersistentFlags().StringVar(&st.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	root.PersistentFlags().BoolVar(&st.noProgress, "no-progress", false, "disable progress bars")

	root.AddCommand(
		newImportCommand(st),
		newRunCommand(st, "outbound"),
		newRunCommand(st, "inbound"),
		newShowCommand(st),
	)
	return root
}

// Execute runs linkctl and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func (st *state) open(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, st.cfg, app.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	return a, nil
}
