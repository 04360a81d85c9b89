package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/raphi011/timeline"
	"github.com/raphi011/timeline/internal/config"
	"github.com/raphi011/timeline/internal/source"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	cfg config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "timeline",
	Short:         "Normalize recorded test metadata into timelines",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		level, err := cfg.Log.SlogLevel()
		if err != nil {
			return err
		}

		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(log)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (defaults to $"+config.EnvConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "overrides the configured log level")

	rootCmd.AddCommand(normalizeCmd, verifyCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func newNormalizer() (*timeline.Normalizer, error) {
	return timeline.New(
		timeline.WithLogger(log),
		timeline.WithConcurrency(cfg.Normalize.Concurrency),
	)
}

// clientProvider resolves recordings with the configured source.
func clientProvider() (timeline.ClientProvider, error) {
	if cfg.Source.Kind == config.SourceElastic {
		es, err := source.NewElastic(source.ElasticConfig{
			Addresses:       cfg.Source.Elastic.Addresses,
			Username:        cfg.Source.Elastic.Username,
			Password:        cfg.Source.Elastic.Password,
			AnnotationIndex: cfg.Source.Elastic.AnnotationIndex,
			NetworkIndex:    cfg.Source.Elastic.NetworkIndex,
		}, log)
		if err != nil {
			return nil, err
		}

		return func(ctx context.Context, recordingID string) (timeline.Client, error) {
			return es.Recording(recordingID), nil
		}, nil
	}

	fixtures := source.NewFixtures(cfg.Source.FixtureDir, log)

	return func(ctx context.Context, recordingID string) (timeline.Client, error) {
		r, err := fixtures.Recording(recordingID)
		if err != nil {
			return nil, err
		}

		return r, nil
	}, nil
}
