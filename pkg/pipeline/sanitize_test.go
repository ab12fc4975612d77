package pipeline

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestExecutionName_StripsForbiddenChars(t *testing.T) {
	name := ExecutionName(`report<2024>:"final".pdf`)
	for _, r := range forbiddenNameChars {
		assert.False(t, strings.ContainsRune(name[:strings.LastIndex(name, "_")], r))
	}
}

func TestExecutionName_BoundedLength(t *testing.T) {
	name := ExecutionName(strings.Repeat("a", 200))
	assert.LessOrEqual(t, len(name), maxNameLen)
}

func TestExecutionName_IncludesUUIDSuffix(t *testing.T) {
	name := ExecutionName("report")
	assert.True(t, strings.HasPrefix(name, "report_"))
	_, err := uuid.Parse(strings.TrimPrefix(name, "report_"))
	assert.NoError(t, err)
}
