// Package briefing assembles the prioritized task list and final
// briefing from a fetch result.
package briefing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/mailbrief/internal/model"
)

const (
	summarySubjects   = 3
	summarySubjectLen = 30
)

// Summarize builds the one-line email summary for a fetch result. A
// summary supplied by the backend (manual payload) passes through
// verbatim.
func Summarize(fr *model.FetchResult) string {
	if fr.Summary != "" {
		return fr.Summary
	}

	summary := fmt.Sprintf("%d unread emails", fr.UnreadCount)
	if len(fr.Records) == 0 {
		return summary
	}

	var subjects []string
	for _, rec := range fr.Records {
		subjects = append(subjects, clip(rec.Subject, summarySubjectLen))
		if len(subjects) == summarySubjects {
			break
		}
	}

	return summary + ": " + strings.Join(subjects, ", ")
}

// Synthesize merges user-declared tasks, email-derived tasks, and
// heuristic suggestions into one ordered list. The category order is
// fixed (user, email, heuristic) and never re-sorted.
//
// Tasks derived from emails are not deduplicated: two messages with the
// same subject each produce their own task. The heuristic keywords match
// against the already-summarized string, not original message content.
// Both behaviors are intentional.
func Synthesize(summary string, fr *model.FetchResult) []model.Task {
	var tasks []model.Task

	for _, text := range fr.UserTasks {
		tasks = append(tasks, newTask(
			text, model.PriorityHigh, model.TaskSourceUser,
		))
	}

	for _, rec := range fr.Records {
		if rec.Automated || !taskWorthy(rec) {
			continue
		}
		tasks = append(tasks, newTask(
			"Respond to: "+rec.Subject,
			model.PriorityMedium, model.TaskSourceEmail,
		))
	}

	tasks = append(tasks, suggest(summary)...)

	return tasks
}

// taskActionWords gates which emails become tasks. The list is distinct
// from the actionable-sentence keywords in classify and is matched as a
// case-insensitive substring of the subject or body excerpt, with no
// length filter.
var taskActionWords = []string{
	"meeting", "review", "feedback", "deadline", "urgent", "asap",
}

func taskWorthy(rec model.EmailRecord) bool {
	subject := strings.ToLower(rec.Subject)
	body := strings.ToLower(rec.BodyExcerpt)
	for _, word := range taskActionWords {
		if strings.Contains(subject, word) || strings.Contains(body, word) {
			return true
		}
	}
	return false
}

// maxSuggestions caps the summary-driven heuristic suggestions. The
// trailing organize-inbox task is always emitted and does not count
// against the cap.
const maxSuggestions = 2

// suggest produces the heuristic task suggestions for a summary.
func suggest(summary string) []model.Task {
	lower := strings.ToLower(summary)

	var suggestions []model.Task
	if strings.Contains(lower, "meeting") {
		suggestions = append(suggestions, newTask(
			"Review meeting agenda and prepare notes",
			model.PriorityMedium, model.TaskSourceHeuristic,
		))
	}
	if strings.Contains(lower, "feedback") || strings.Contains(lower, "response") {
		suggestions = append(suggestions, newTask(
			"Draft responses to important emails",
			model.PriorityLow, model.TaskSourceHeuristic,
		))
	}
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}

	return append(suggestions, newTask(
		"Archive or organize processed emails",
		model.PriorityLow, model.TaskSourceHeuristic,
	))
}

// Build assembles the final briefing result for a fetch result.
func Build(fr *model.FetchResult) model.BriefingResult {
	summary := Summarize(fr)
	return model.BriefingResult{
		ID:            uuid.New().String(),
		EmailSummary:  summary,
		Tasks:         Synthesize(summary, fr),
		SourceBackend: fr.SourceBackend,
		GeneratedAt:   time.Now().UTC(),
	}
}

func newTask(text, priority, source string) model.Task {
	return model.Task{
		ID:       uuid.New().String(),
		Text:     text,
		Priority: priority,
		Source:   source,
	}
}

// clip truncates s to at most max runes.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
