package fulfillment

import (
	"fmt"
	"strings"
	"time"
)

// AppendNote adds one attributed, timestamped line to an append-only notes
// field. Existing content is never rewritten.
func AppendNote(existing string, at time.Time, userID, text string) string {
	line := fmt.Sprintf("[%s] %s: %s", at.UTC().Format(time.RFC3339), userID, strings.TrimSpace(text))
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}
