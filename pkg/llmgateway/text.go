package llmgateway

import (
	"regexp"
	"strings"
)

// GetTextWithinTags extracts the content between the last <tag>...</tag>
// pair in text. LLM responses sometimes repeat or nest the requested tag,
// so this scans from the right and narrows the search window up to 5 times
// looking for a matching pair instead of taking the first (possibly
// truncated) occurrence.
func GetTextWithinTags(text, tag string) string {
	open := "<" + tag + ">"
	close_ := "</" + tag + ">"

	window := text
	for i := 0; i < 5; i++ {
		closeIdx := strings.LastIndex(window, close_)
		if closeIdx == -1 {
			return ""
		}
		openIdx := strings.LastIndex(window[:closeIdx], open)
		if openIdx == -1 {
			window = window[:closeIdx]
			continue
		}
		return window[openIdx+len(open) : closeIdx]
	}
	return ""
}

var nullWordRe = regexp.MustCompile(`(?i)\bNULL\b`)

// CleanJSONString replaces the bare word NULL (any case, as a standalone
// token) with an empty JSON string. The model is prompted to emit valid
// JSON but routinely emits unquoted NULL where it means an empty value,
// which json.Unmarshal would otherwise reject as an undefined identifier.
func CleanJSONString(s string) string {
	return nullWordRe.ReplaceAllString(s, `""`)
}
