package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/perpetual-s/gemi/pkg/chat"
	"github.com/perpetual-s/gemi/pkg/conversation"
	"github.com/perpetual-s/gemi/pkg/journal"
	"github.com/perpetual-s/gemi/pkg/utils"
)

// Intent is one entry in the special-intent table: a set of trigger
// phrases matched case-insensitively against the user text, and a
// handler that synthesizes an analysis paragraph. The table is ordered;
// the first intent with a matching trigger wins, so overlapping
// triggers shadow by position.
type Intent struct {
	Name     string
	Title    string
	Preview  string
	Triggers []string
	Handle   func(ctx context.Context, userText string) (string, error)
}

// Detect scans the table in order and returns the first intent with a
// trigger phrase contained in the user text.
func Detect(intents []Intent, userText string) (Intent, bool) {
	lowered := strings.ToLower(userText)
	for _, intent := range intents {
		for _, trigger := range intent.Triggers {
			if strings.Contains(lowered, trigger) {
				return intent, true
			}
		}
	}
	return Intent{}, false
}

// DefaultIntents returns the built-in intent table. Order matters:
// mood questions outrank recap questions, so "how have I been feeling
// this week" resolves to the mood trend.
func DefaultIntents(journalDriver journal.Driver, conversations conversation.Driver) []Intent {
	return []Intent{
		{
			Name:     "mood-trend",
			Title:    "Mood trend",
			Preview:  "Analysis of recent moods",
			Triggers: []string{"feeling", "how have i been", "my mood", "emotional"},
			Handle:   moodTrend(journalDriver),
		},
		{
			Name:     "weekly-recap",
			Title:    "Weekly recap",
			Preview:  "Summary of the past week",
			Triggers: []string{"recap", "this week", "past week", "my week"},
			Handle:   weeklyRecap(journalDriver),
		},
		{
			Name:     "past-conversation",
			Title:    "Past conversations",
			Preview:  "Summary of earlier conversations",
			Triggers: []string{"we talked about", "we discussed", "last conversation", "last time"},
			Handle:   pastConversation(conversations),
		},
	}
}

func moodTrend(driver journal.Driver) func(context.Context, string) (string, error) {
	return func(ctx context.Context, _ string) (string, error) {
		entries, err := driver.Recent(ctx, 14)
		if err != nil {
			return "", fmt.Errorf("loading recent entries: %w", err)
		}

		counts := map[string]int{}
		var order []string
		for _, entry := range entries {
			if entry.Mood == "" {
				continue
			}
			if counts[entry.Mood] == 0 {
				order = append(order, entry.Mood)
			}
			counts[entry.Mood]++
		}

		if len(order) == 0 {
			return "Mood analysis: no mood has been recorded in recent journal entries, so there is no trend to report yet.", nil
		}

		descriptions := make([]string, 0, len(order))
		for _, mood := range order {
			descriptions = append(descriptions, fmt.Sprintf("%s (%d)", mood, counts[mood]))
		}

		return fmt.Sprintf(
			"Mood analysis across the last %d journal entries, most recent first: %s.",
			len(entries), strings.Join(descriptions, ", "),
		), nil
	}
}

func weeklyRecap(driver journal.Driver) func(context.Context, string) (string, error) {
	return func(ctx context.Context, _ string) (string, error) {
		entries, err := driver.Recent(ctx, 20)
		if err != nil {
			return "", fmt.Errorf("loading recent entries: %w", err)
		}

		cutoff := time.Now().AddDate(0, 0, -7)
		var lines []string
		for _, entry := range entries {
			if entry.CreatedAt.Before(cutoff) {
				continue
			}
			title := entry.Title
			if title == "" {
				title = utils.Truncate(utils.FirstLine(entry.Content), 60)
			}
			lines = append(lines, fmt.Sprintf("- %s: %s", entry.CreatedAt.Format("Mon Jan 2"), title))
		}

		if len(lines) == 0 {
			return "Weekly recap: no journal entries were written in the past seven days.", nil
		}

		return fmt.Sprintf("Weekly recap, %d entries from the past seven days:\n%s",
			len(lines), strings.Join(lines, "\n")), nil
	}
}

func pastConversation(conversations conversation.Driver) func(context.Context, string) (string, error) {
	return func(ctx context.Context, _ string) (string, error) {
		turns, err := conversations.RecentTurns(ctx, 20)
		if err != nil {
			return "", fmt.Errorf("loading recent turns: %w", err)
		}

		var topics []string
		for _, turn := range turns {
			if turn.Role != chat.RoleUser {
				continue
			}
			topics = append(topics, utils.Truncate(utils.FirstLine(turn.Text), 60))
		}

		if len(topics) == 0 {
			return "Past conversations: there are no earlier conversations on record.", nil
		}

		if len(topics) > 5 {
			topics = topics[len(topics)-5:]
		}

		return fmt.Sprintf("Past conversations: the user most recently brought up %s.",
			strings.Join(topics, "; ")), nil
	}
}
