package e2e

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"

	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var updateGolden = flag.Bool("update", false, "update golden files")

// AssertGolden compares actual output against a golden file.
// If -update flag is set, writes actual to the golden file instead.
func AssertGolden(t *testing.T, goldenPath string, actual []byte) {
	t.Helper()

	if *updateGolden {
		dir := filepath.Dir(goldenPath)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(goldenPath, actual, 0o644))
		t.Logf("Updated golden file: %s", goldenPath)
		return
	}

	expected, err := os.ReadFile(goldenPath)
	require.NoError(t, err, "golden file not found: %s (run with -update to create)", goldenPath)
	assert.Equal(t, string(expected), string(actual), "golden mismatch: %s", goldenPath)
}

// AssertGoldenJSON normalizes JSON and compares against a golden file.
// The actual value is marshalled with indentation and run through normalizer
// to erase nondeterministic IDs and timestamps before comparison.
func AssertGoldenJSON(t *testing.T, goldenPath string, actual interface{}, normalizer *Normalizer) {
	t.Helper()

	data, err := json.MarshalIndent(actual, "", "  ")
	require.NoError(t, err)

	if normalizer != nil {
		data = normalizer.NormalizeBytes(data)
	}

	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}

	AssertGolden(t, goldenPath, data)
}

// goldenDir returns the path to the testdata/golden directory for a scenario.
func goldenDir(scenario string) string {
	return filepath.Join("testdata", "golden", scenario)
}

// GoldenPath returns the path to a specific golden file for a scenario.
func GoldenPath(scenario, filename string) string {
	return filepath.Join(goldenDir(scenario), filename)
}
