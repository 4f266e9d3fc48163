package agentloop

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
)

// toolCallSignature identifies a call by tool name and a short hash of its
// compacted arguments, so whitespace differences do not matter.
func toolCallSignature(name string, args json.RawMessage) string {
	var compact bytes.Buffer
	if json.Compact(&compact, args) == nil {
		args = compact.Bytes()
	}
	sum := sha256.Sum256(args)
	return name + ":" + hex.EncodeToString(sum[:8])
}

// maxLoopPeriod is the longest repeating cycle of calls DetectLoop looks
// for.
const maxLoopPeriod = 3

// DetectLoop reports whether the last windowSize signatures repeat with a
// period of 1 to maxLoopPeriod calls. The window must hold at least two
// full cycles.
func DetectLoop(signatures []string, windowSize int) bool {
	if windowSize <= 0 || len(signatures) < windowSize {
		return false
	}
	window := signatures[len(signatures)-windowSize:]
	for period := 1; period <= maxLoopPeriod && period < windowSize; period++ {
		if windowSize%period == 0 && slices.Equal(window[period:], window[:windowSize-period]) {
			return true
		}
	}
	return false
}
