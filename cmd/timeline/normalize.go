package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/raphi011/timeline"
	"github.com/raphi011/timeline/internal/model"
	"github.com/raphi011/timeline/internal/source"
	"github.com/spf13/cobra"
)

var (
	inputPath   string
	outputPath  string
	fixtureDir  string
	recordingID string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize grouped test cases",
	Long: `Normalizes grouped test cases of any supported schema version.
Annotations and network requests are read from --fixtures, or from the
configured source if --recording is set.`,
	Args: cobra.NoArgs,
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVarP(&inputPath, "input", "i", "-", "grouped test cases, - reads from stdin")
	normalizeCmd.Flags().StringVarP(&outputPath, "out", "o", "-", "output file, - writes to stdout")
	normalizeCmd.Flags().StringVar(&fixtureDir, "fixtures", "", "directory that holds the annotations and network requests of the recording")
	normalizeCmd.Flags().StringVarP(&recordingID, "recording", "r", "", "recording id, resolved with the configured source")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	input, err := readInput(inputPath)
	if err != nil {
		return err
	}

	client, err := normalizeClient(ctx)
	if err != nil {
		return err
	}

	n, err := newNormalizer()
	if err != nil {
		return err
	}

	out, err := n.NormalizeJSON(ctx, input, client)
	if err != nil {
		return err
	}

	if outputPath == "-" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	}

	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	return nil
}

func normalizeClient(ctx context.Context) (timeline.Client, error) {
	switch {
	case fixtureDir != "":
		return source.OpenFixtureDir(fixtureDir, log)
	case recordingID != "":
		clients, err := clientProvider()
		if err != nil {
			return nil, err
		}

		return clients(ctx, recordingID)
	}

	return noSource{}, nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	return data, nil
}

var errNoSource = errors.New("the recording has annotations, pass --fixtures or --recording")

// noSource is used if neither fixtures nor a recording are given, which is
// enough for canonical input and runners without annotations.
type noSource struct{}

func (noSource) Annotations(ctx context.Context) ([]model.Annotation, error) {
	return nil, errNoSource
}

func (noSource) NetworkRequests(ctx context.Context) (model.NetworkRequests, error) {
	return model.NetworkRequests{}, errNoSource
}
