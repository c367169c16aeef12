package main

import (
	"fmt"

	"github.com/Sternrassler/astronews/internal/tui"
	"github.com/Sternrassler/astronews/pkg/feed"
	"github.com/Sternrassler/astronews/pkg/pagination"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// newRootCmd creates the root command. Without a subcommand it starts the
// interactive feed.
func newRootCmd() *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:           "astronews",
		Short:         "Browse space news in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file path (default ~/.config/astronews/config.toml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.BoolVar(&opts.noCache, "no-cache", false, "disable the redis response cache")

	rootCmd.AddCommand(
		newListCmd(&opts),
		newExportCmd(&opts),
		newConfigCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func runFeed(cmd *cobra.Command, opts options) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, opts, true, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	// The program does not exist until the model does; the capability is
	// only invoked from commands, after Run has started.
	var prog *tea.Program
	feedCfg := a.cfg.FeedOptions()
	feedCfg.ScrollToTop = func() {
		if prog != nil {
			prog.Send(tui.ScrollTopMsg{})
		}
	}

	ctrl, err := feed.NewController(pagination.NewFetcher(a.client), feedCfg)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	model := tui.New(ctx, ctrl, tui.Options{
		BottomThreshold: a.cfg.Trigger.BottomThreshold,
		TopThreshold:    a.cfg.Trigger.TopThreshold,
	})

	prog = tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)

	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("run feed: %w", err)
	}
	return nil
}
