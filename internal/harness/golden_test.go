package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	scenario, err := LoadScenario("testdata/scenarios/pair.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, UpdateGolden(t, scenario.Name, result, goldie.WithFixtureDir(dir)))

	data, err := os.ReadFile(filepath.Join(dir, "pair.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"pair"`)
	assert.Contains(t, string(data), `"status":"complete"`)
	assert.Contains(t, string(data), `"label":"Workout"`)

	// A second run must match the file byte for byte.
	require.NoError(t, RunWithGolden(t, scenario, goldie.WithFixtureDir(dir)))
}

func TestSnapshot_CanonicalShape(t *testing.T) {
	result := NewResult()
	result.Status = "idle"
	result.Trace = []string{"turn=1 iter=1 action start"}

	data, err := Snapshot("empty", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"records":[],"scenario_name":"empty","status":"idle","trace":["turn=1 iter=1 action start"]}`,
		string(data))
}
