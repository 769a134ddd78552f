// Package bot implements the message dispatch core: command
// classification, canned replies, the AI responder, and the per-user
// dispatch workers.
package bot

import "strings"

// Recognized command prefixes. Matching is case-sensitive on the trimmed
// message text, checked in this order.
const (
	CommandHelp = "!help"
	CommandInfo = "!info"
	CommandAI   = "!ai"
)

type Kind int

const (
	KindHelp Kind = iota
	KindInfo
	KindAI
	KindAIEmpty
	KindFreeform
)

type Classification struct {
	Kind   Kind
	Prompt string
}

// Classify routes a raw inbound message text. It is pure: sending the
// matching reply is the caller's job.
func Classify(text string) Classification {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, CommandHelp):
		return Classification{Kind: KindHelp}
	case strings.HasPrefix(text, CommandInfo):
		return Classification{Kind: KindInfo}
	case strings.HasPrefix(text, CommandAI):
		prompt := strings.TrimSpace(strings.TrimPrefix(text, CommandAI))
		if prompt == "" {
			return Classification{Kind: KindAIEmpty}
		}
		return Classification{Kind: KindAI, Prompt: prompt}
	default:
		return Classification{Kind: KindFreeform, Prompt: text}
	}
}
