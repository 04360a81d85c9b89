package schema_test

import (
	"testing"

	"github.com/raphi011/timeline/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateGroupedV2(t *testing.T) {
	t.Parallel()

	v, err := schema.New()
	require.NoError(t, err, "compiling the embedded schema should succeed")

	valid := `{
		"schemaVersion": "2.0.0",
		"environment": {"errors": [], "testRunner": {"name": "cypress", "version": "13.0.0"}},
		"testRecordings": [{"id": 1, "attempt": 1, "result": "passed", "events": {"main": []}}]
	}`

	assert.NoError(t, v.ValidateGroupedV2([]byte(valid)))

	tests := map[string]string{
		"missing runner":      `{"schemaVersion": "2.0.0", "environment": {"testRunner": {}}, "testRecordings": []}`,
		"recordings not list": `{"schemaVersion": "2.0.0", "environment": {"testRunner": {"name": "cypress"}}, "testRecordings": {}}`,
		"string test id":      `{"schemaVersion": "2.0.0", "environment": {"testRunner": {"name": "cypress"}}, "testRecordings": [{"id": "1", "attempt": 1, "result": "passed", "events": {}}]}`,
		"section not list":    `{"schemaVersion": "2.0.0", "environment": {"testRunner": {"name": "cypress"}}, "testRecordings": [{"id": 1, "attempt": 1, "result": "passed", "events": {"main": {}}}]}`,
	}

	for name, input := range tests {
		assert.Error(t, v.ValidateGroupedV2([]byte(input)), name)
	}
}
