package agentloop

import (
	"encoding/json"
	"slices"

	"github.com/martinemde/minichain/unifiedllm"
)

// Conversation is the append-only message log of a single run. Messages are
// never edited or removed once appended.
type Conversation struct {
	messages   []unifiedllm.Message
	signatures []string
}

func newConversation(initial []unifiedllm.Message) *Conversation {
	c := &Conversation{
		messages: make([]unifiedllm.Message, 0, len(initial)+8),
	}
	c.messages = append(c.messages, initial...)
	return c
}

// Append adds messages to the end of the log.
func (c *Conversation) Append(msgs ...unifiedllm.Message) {
	c.messages = append(c.messages, msgs...)
}

// Messages returns a copy of the log. Callers may keep or modify the copy.
func (c *Conversation) Messages() []unifiedllm.Message {
	return slices.Clone(c.messages)
}

// Len returns the number of messages in the log.
func (c *Conversation) Len() int { return len(c.messages) }

// recordToolCall remembers the signature of a dispatched call for loop
// detection.
func (c *Conversation) recordToolCall(name string, args json.RawMessage) {
	c.signatures = append(c.signatures, toolCallSignature(name, args))
}

// Signatures returns the signatures of every tool call dispatched so far, in
// order.
func (c *Conversation) Signatures() []string {
	return slices.Clone(c.signatures)
}
