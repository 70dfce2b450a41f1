package chat

import "unicode/utf8"

// Truncate bounds s to max bytes, appending an ellipsis when content was
// dropped. The cut backs up to a rune boundary so truncated content stays
// valid UTF-8. Message content appended to a run is always bounded so a
// single verbose tool cannot blow up the prompt.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
