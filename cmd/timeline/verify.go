package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/raphi011/timeline/internal/verify"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [fixture-dir]",
	Short: "Normalize saved recordings and compare them with their expected output",
	Long: `Every directory below fixture-dir holds a recording: input.json,
annotations.json, network.json and the expected output expected.json.
Defaults to the configured verify.fixtureDir.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	dir := cfg.Verify.FixtureDir
	if len(args) == 1 {
		dir = args[0]
	}

	if dir == "" {
		return errors.New("no fixture directory given")
	}

	n, err := newNormalizer()
	if err != nil {
		return err
	}

	v := verify.New(func(ctx context.Context, data []byte, c verify.Client) ([]byte, error) {
		return n.NormalizeJSON(ctx, data, c)
	}, log)

	summary, err := v.Run(cmd.Context(), dir)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), verify.RenderSummary(summary))

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d fixtures failed", summary.Failed, summary.Total)
	}

	return nil
}
