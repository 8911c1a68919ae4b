package agentloop

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// DefaultLoopDetectionWindow is the number of recent calls inspected.
const DefaultLoopDetectionWindow = 6

// toolCallSignature computes a deterministic signature for a tool call
// (name + hash of arguments). json.Marshal sorts map keys.
func toolCallSignature(call ToolCallRequest) string {
	data, err := json.Marshal(call.Args)
	if err != nil {
		data = []byte(fmt.Sprint(call.Args))
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", call.ToolName, h[:8])
}

// DetectLoop reports whether the last windowSize signatures repeat with a
// period of 1, 2 or 3.
func DetectLoop(signatures []string, windowSize int) bool {
	if windowSize <= 0 || len(signatures) < windowSize {
		return false
	}
	recent := signatures[len(signatures)-windowSize:]
	for period := 1; period <= 3; period++ {
		if windowSize%period == 0 && hasPeriod(recent, period) {
			return true
		}
	}
	return false
}

func hasPeriod(sigs []string, period int) bool {
	for i := period; i < len(sigs); i++ {
		if sigs[i] != sigs[i%period] {
			return false
		}
	}
	return true
}

func loopWarning(window int) string {
	return fmt.Sprintf("Loop detected: the last %d tool calls follow a repeating pattern. Try a different approach or give your final answer.", window)
}
