package state

import (
	"fmt"
	"strings"
)

// DefaultMaxSummaryRunes bounds the rolling summary so accumulated context
// does not grow without limit across a long-running session.
const DefaultMaxSummaryRunes = 2000

const summaryLineLimit = 160

// UpdateContext folds one committed exchange into the context. Pure function
// of (old context, exchange): newly cited documents join the tracked set and a
// condensed line of the exchange is appended to the rolling summary, dropping
// oldest lines first when over budget.
func UpdateContext(prev Context, userText string, turn Turn, maxSummary int) Context {
	if maxSummary <= 0 {
		maxSummary = DefaultMaxSummaryRunes
	}

	next := prev.clone()
	for _, src := range turn.Sources {
		if !next.HasDocument(src) {
			next.Documents = append(next.Documents, src)
		}
	}

	line := condenseExchange(userText, turn)
	if next.Summary == "" {
		next.Summary = line
	} else {
		next.Summary = next.Summary + "\n" + line
	}
	next.Summary = trimSummary(next.Summary, maxSummary)
	return next
}

// ReplayContext rebuilds context from scratch by folding the accumulator over
// the full persisted history. Used when resuming a session.
func ReplayContext(turns []Turn, maxSummary int) Context {
	var ctx Context
	var lastUser string
	for _, t := range turns {
		switch t.Role {
		case RoleUser:
			lastUser = t.Text
		case RoleAssistant:
			ctx = UpdateContext(ctx, lastUser, t, maxSummary)
		}
	}
	return ctx
}

func condenseExchange(userText string, turn Turn) string {
	line := fmt.Sprintf("user: %s | assistant(%s): %s",
		truncateRunes(collapseWhitespace(userText), summaryLineLimit),
		turn.Intent,
		truncateRunes(collapseWhitespace(turn.Text), summaryLineLimit),
	)
	if len(turn.Sources) > 0 {
		line += " [" + strings.Join(turn.Sources, ", ") + "]"
	}
	return line
}

func trimSummary(summary string, maxRunes int) string {
	if len([]rune(summary)) <= maxRunes {
		return summary
	}
	lines := strings.Split(summary, "\n")
	for len(lines) > 1 && len([]rune(strings.Join(lines, "\n"))) > maxRunes {
		lines = lines[1:]
	}
	trimmed := strings.Join(lines, "\n")
	if runes := []rune(trimmed); len(runes) > maxRunes {
		// single oversized line: keep the newest tail
		trimmed = string(runes[len(runes)-maxRunes:])
	}
	return trimmed
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
