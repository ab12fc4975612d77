package pipeline

import (
	"strings"

	"github.com/google/uuid"
)

// forbiddenNameChars are stripped from an execution-name prefix.
const forbiddenNameChars = `<>:"/\|?*()[]%`

// maxPrefixLen and maxNameLen bound the sanitized execution name: a 40-char
// prefix plus "_" plus a uuid, never exceeding 80 characters total.
const (
	maxPrefixLen = 40
	maxNameLen   = 80
)

// ExecutionName builds the sanitized, collision-resistant name used to
// correlate a document's pipeline run across logs.
func ExecutionName(keyPrefix string) string {
	var b strings.Builder
	for _, r := range keyPrefix {
		if strings.ContainsRune(forbiddenNameChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	sanitized := b.String()
	if len(sanitized) > maxPrefixLen {
		sanitized = sanitized[:maxPrefixLen]
	}

	name := sanitized + "_" + uuid.NewString()
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return name
}
