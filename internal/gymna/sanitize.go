package gymna

import "github.com/honestmeals/honestmeals/internal/models"

// Turn is one entry of the model conversation context.
type Turn struct {
	Role string
	Text string
}

// SanitizeHistory rewrites a message sequence into the strict user/assistant
// alternation the generation API requires:
//
//  1. Consecutive turns with the same role are merged, their texts joined by
//     a blank line in original order.
//  2. A trailing user turn is dropped, because the caller appends the new
//     user message itself and a dangling user turn would break alternation.
//
// The function is pure and total; it never fails.
func SanitizeHistory(turns []Turn) []Turn {
	if len(turns) == 0 {
		return []Turn{}
	}

	merged := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if n := len(merged); n > 0 && merged[n-1].Role == t.Role {
			merged[n-1].Text += "\n\n" + t.Text
			continue
		}
		merged = append(merged, t)
	}

	if n := len(merged); n > 0 && merged[n-1].Role == models.RoleUser {
		merged = merged[:n-1]
	}

	return merged
}

// historyFromMessages converts stored messages into model turns.
func historyFromMessages(msgs []models.Message) []Turn {
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, Turn{Role: m.Role, Text: m.Content})
	}
	return turns
}
