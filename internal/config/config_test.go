package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/raphi011/timeline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.yaml")

	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
source:
  kind: elastic
  elastic:
    addresses: ["http://localhost:9200"]
verify:
  fixtureDir: testdata
  schedule: "0 */5 * * * *"
  slack:
    channelId: C123
    token: xoxb-token
log:
  level: debug
`), 0o644))

	c, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "localhost", c.Server.Host, "unset values should keep their default")
	assert.Equal(t, config.SourceElastic, c.Source.Kind)
	assert.Equal(t, "annotations", c.Source.Elastic.AnnotationIndex)
	assert.Equal(t, "0 */5 * * * *", c.Verify.Schedule)
	assert.Equal(t, "C123", c.Verify.Slack.ChannelID)
	assert.Positive(t, c.Normalize.Concurrency)

	level, err := c.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))

	t.Setenv(config.EnvConfigFile, path)

	c, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 9000, c.Server.Port)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv(config.EnvConfigFile, "")

	c, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), c)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	c := config.Default()
	c.Source.Kind = "s3"
	assert.Error(t, c.Validate())

	c = config.Default()
	c.Source.Kind = config.SourceElastic
	assert.Error(t, c.Validate(), "elastic sources need addresses")

	c = config.Default()
	c.Verify.Schedule = "@every 1m"
	assert.Error(t, c.Validate(), "scheduled verification needs a fixture dir")

	c = config.Default()
	c.Verify.Slack.Token = "xoxb-token"
	assert.Error(t, c.Validate(), "slack notifications need a channel")

	c = config.Default()
	c.Normalize.Concurrency = 0
	assert.Error(t, c.Validate())
}
