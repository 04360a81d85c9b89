package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the config file if none is passed explicitly.
const EnvConfigFile = "TIMELINE_CONFIG"

const (
	SourceFixtures = "fixtures"
	SourceElastic  = "elastic"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Source    SourceConfig    `yaml:"source"`
	Verify    VerifyConfig    `yaml:"verify"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type NormalizeConfig struct {
	// Concurrency is the number of tests reconstructed in parallel.
	Concurrency int `yaml:"concurrency"`
}

type SourceConfig struct {
	// Kind is either `fixtures` or `elastic`.
	Kind       string        `yaml:"kind"`
	FixtureDir string        `yaml:"fixtureDir"`
	Elastic    ElasticConfig `yaml:"elastic"`
}

type ElasticConfig struct {
	Addresses       []string `yaml:"addresses"`
	Username        string   `yaml:"username"`
	Password        string   `yaml:"password"`
	AnnotationIndex string   `yaml:"annotationIndex"`
	NetworkIndex    string   `yaml:"networkIndex"`
}

type VerifyConfig struct {
	FixtureDir string `yaml:"fixtureDir"`
	// Schedule is a cron spec (with seconds), verification is not scheduled if empty.
	Schedule string      `yaml:"schedule"`
	Slack    SlackConfig `yaml:"slack"`
}

// SlackConfig enables notifications of failed scheduled verifications if Token is set.
type SlackConfig struct {
	ChannelID string `yaml:"channelId"`
	Token     string `yaml:"token"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 1337,
		},
		Normalize: NormalizeConfig{
			Concurrency: runtime.GOMAXPROCS(0),
		},
		Source: SourceConfig{
			Kind:       SourceFixtures,
			FixtureDir: "recordings",
			Elastic: ElasticConfig{
				AnnotationIndex: "annotations",
				NetworkIndex:    "network-requests",
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path. If path is empty the file named by
// TIMELINE_CONFIG is used, if that is unset as well the defaults are returned.
func Load(path string) (Config, error) {
	c := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, fmt.Errorf("config file %s not found", path)
	} else if err != nil {
		return c, fmt.Errorf("reading config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Source.Kind {
	case SourceFixtures:
		if c.Source.FixtureDir == "" {
			return errors.New("source.fixtureDir must be set for fixture sources")
		}
	case SourceElastic:
		if len(c.Source.Elastic.Addresses) == 0 {
			return errors.New("source.elastic.addresses must be set for elastic sources")
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}

	if c.Normalize.Concurrency < 1 {
		return fmt.Errorf("normalize.concurrency must be positive, got %d", c.Normalize.Concurrency)
	}

	if c.Verify.Schedule != "" && c.Verify.FixtureDir == "" {
		return errors.New("verify.fixtureDir must be set when verify.schedule is set")
	}

	if c.Verify.Slack.Token != "" && c.Verify.Slack.ChannelID == "" {
		return errors.New("verify.slack.channelId must be set when verify.slack.token is set")
	}

	return nil
}

func (c LogConfig) SlogLevel() (slog.Level, error) {
	var l slog.Level

	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}

	return l, nil
}
