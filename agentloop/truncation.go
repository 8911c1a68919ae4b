package agentloop

import (
	"fmt"
	"strings"
)

// DefaultObservationLimit bounds each tool result fed back to the model.
const DefaultObservationLimit = 2000

// TruncationMode specifies how output is truncated.
type TruncationMode string

const (
	TruncateHead     TruncationMode = "head"
	TruncateHeadTail TruncationMode = "head_tail"
)

// TruncateObservation keeps the first limit runes of output. A limit of zero
// or less disables truncation.
func TruncateObservation(output string, limit int) string {
	return Truncate(output, limit, TruncateHead)
}

// Truncate shortens output to at most limit runes. TruncateHead keeps the
// prefix; TruncateHeadTail keeps both ends and marks the removed middle, so
// its result may exceed limit by the length of the marker.
func Truncate(output string, limit int, mode TruncationMode) string {
	if limit <= 0 {
		return output
	}
	runes := []rune(output)
	if len(runes) <= limit {
		return output
	}

	switch mode {
	case TruncateHeadTail:
		half := limit / 2
		removed := len(runes) - 2*half
		return string(runes[:half]) +
			fmt.Sprintf("\n[... %d characters omitted ...]\n", removed) +
			string(runes[len(runes)-half:])
	default:
		return string(runes[:limit])
	}
}

// TruncateLines applies line-based truncation using a head/tail split.
func TruncateLines(output string, maxLines int) string {
	if maxLines <= 0 {
		return output
	}
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}

	headCount := maxLines / 2
	tailCount := maxLines - headCount
	omitted := len(lines) - headCount - tailCount

	return strings.Join(lines[:headCount], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tailCount:], "\n")
}
