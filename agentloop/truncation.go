package agentloop

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TruncationMode specifies how output is truncated.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// Preview limits for text written to logs and events. The conversation sent
// to the model is never truncated.
const (
	DefaultPreviewChars = 2000
	DefaultPreviewLines = 40
)

// TruncateOutput keeps at most maxChars bytes of output and adds a marker
// saying how much was dropped. Cuts never split a UTF-8 character.
func TruncateOutput(output string, maxChars int, mode TruncationMode) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}

	switch mode {
	case TruncateTail:
		start := runeStart(output, len(output)-maxChars, true)
		return fmt.Sprintf("[... %d characters omitted ...]\n", start) + output[start:]
	default:
		head := runeStart(output, maxChars/2, false)
		tail := runeStart(output, len(output)-(maxChars-maxChars/2), true)
		return output[:head] +
			fmt.Sprintf("\n[... %d characters omitted ...]\n", tail-head) +
			output[tail:]
	}
}

// runeStart moves byte offset i onto a rune boundary, forward when the
// kept text follows i and backward when it precedes it.
func runeStart(s string, i int, forward bool) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		if forward {
			i++
		} else {
			i--
		}
	}
	return i
}

// TruncateLines keeps the first and last lines of output so that at most
// maxLines remain, with the head getting the smaller half.
func TruncateLines(output string, maxLines int) string {
	if maxLines <= 0 {
		return output
	}
	lines := strings.Split(output, "\n")
	omitted := len(lines) - maxLines
	if omitted <= 0 {
		return output
	}

	head := lines[:maxLines/2]
	tail := lines[len(lines)-(maxLines-len(head)):]

	var b strings.Builder
	b.WriteString(strings.Join(head, "\n"))
	fmt.Fprintf(&b, "\n[... %d lines omitted ...]\n", omitted)
	b.WriteString(strings.Join(tail, "\n"))
	return b.String()
}

// preview shortens model or tool text for a log line or event payload.
func preview(text string) string {
	return TruncateLines(TruncateOutput(text, DefaultPreviewChars, TruncateHeadTail), DefaultPreviewLines)
}
