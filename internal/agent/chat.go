package agent

import (
	"strings"

	"github.com/udisondev/platekeeper/internal/config"
)

// chatSignal is what a line of world chat means to the agent.
type chatSignal int

const (
	chatNone chatSignal = iota
	chatWarpConfirmed
	chatCommandRejected
	chatCooldown
	chatKick
	chatPlateThreat
)

func (s chatSignal) String() string {
	switch s {
	case chatWarpConfirmed:
		return "warp_confirmed"
	case chatCommandRejected:
		return "command_rejected"
	case chatCooldown:
		return "cooldown"
	case chatKick:
		return "kick"
	case chatPlateThreat:
		return "plate_threat"
	default:
		return "none"
	}
}

// chatClassifier matches lowercase chat against configured substrings.
// Order matters: the first matching class wins.
type chatClassifier struct {
	rules []chatRule
}

type chatRule struct {
	signal   chatSignal
	patterns []string
}

func newChatClassifier(p config.ChatPatterns) chatClassifier {
	lower := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return chatClassifier{rules: []chatRule{
		{chatWarpConfirmed, lower(p.WarpConfirmed)},
		{chatCommandRejected, lower(p.CommandRejected)},
		{chatCooldown, lower(p.Cooldown)},
		{chatKick, lower(p.Kick)},
		{chatPlateThreat, lower(p.PlateThreat)},
	}}
}

func (c chatClassifier) classify(text string) chatSignal {
	lower := strings.ToLower(text)
	for _, rule := range c.rules {
		for _, p := range rule.patterns {
			if strings.Contains(lower, p) {
				return rule.signal
			}
		}
	}
	return chatNone
}
