package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raphi011/timeline"
	"github.com/raphi011/timeline/internal/hook"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve normalizations over http",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := newNormalizer()
	if err != nil {
		return err
	}

	clients, err := clientProvider()
	if err != nil {
		return err
	}

	opts := []timeline.ServerOption{
		timeline.WithAddress(cfg.Server.Host, cfg.Server.Port),
		timeline.WithServerLogger(log),
	}

	if cfg.Verify.FixtureDir != "" {
		opts = append(opts, timeline.WithScheduledVerification(timeline.ScheduledVerification{
			FixtureDir: cfg.Verify.FixtureDir,
			Schedule:   cfg.Verify.Schedule,
		}))
	}

	if slack := cfg.Verify.Slack; slack.Token != "" {
		h := hook.NewSlackHook(slack.ChannelID, slack.Token, log)

		if err := h.Init(ctx); err != nil {
			return fmt.Errorf("initiating hook %q: %w", h.Name(), err)
		}

		opts = append(opts, timeline.WithVerificationHook(h))
	}

	return timeline.NewServer(n, clients, opts...).Run(ctx)
}
