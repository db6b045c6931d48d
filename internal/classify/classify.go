// Package classify separates actionable human correspondence from
// automated noise and surfaces candidate action sentences. All functions
// are pure and deterministic; classification is advisory metadata, never
// a filter.
package classify

import (
	"regexp"
	"strings"

	"github.com/nhle/mailbrief/internal/normalize"
)

// automatedSenderPrefixes is the fixed denylist of sender-address
// patterns that mark a message as automated.
var automatedSenderPrefixes = []string{
	"no-reply@",
	"noreply@",
	"do-not-reply@",
	"donotreply@",
	"notifications@",
	"alert@",
	"security@accounts",
}

// securityKeywords marks informational security notices by subject, in
// the languages the mailbox is expected to receive.
var securityKeywords = []string{
	"security alert",
	"security notification",
	"安全提醒",
	"登录活动",
}

// actionKeywords is the bilingual keyword list used to surface sentences
// that likely require a reply or action.
var actionKeywords = []string{
	"please", "review", "respond", "complete", "approve", "confirm",
	"action required", "deadline", "due", "meeting", "schedule",
	"请", "需要", "完成", "审批", "确认", "会议", "截止",
}

// Automated reports whether a message is an automated notification: the
// sender matches the denylist, or the subject matches a security keyword.
func Automated(from, subject string) bool {
	lowerFrom := strings.ToLower(from)
	for _, prefix := range automatedSenderPrefixes {
		if strings.Contains(lowerFrom, prefix) {
			return true
		}
	}

	lowerSubject := strings.ToLower(subject)
	for _, kw := range securityKeywords {
		if strings.Contains(lowerSubject, kw) {
			return true
		}
	}

	return false
}

// ContainsActionKeyword reports whether s contains any action keyword.
func ContainsActionKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range actionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

const (
	minSentenceLen = 20
	maxSentenceLen = 200
	maxSentences   = 3
)

var sentenceBoundary = regexp.MustCompile(`[.!?\n]+`)

// ActionableSentences extracts up to three sentence-like units from a
// message body that contain an action keyword and fall within a sane
// length range, preserving source order. The heuristic prefers precision
// over recall: missed action items are acceptable, and the cap bounds the
// payload handed to renderers.
func ActionableSentences(body string) []string {
	text := normalize.StripTags(body)
	if text == "" {
		return nil
	}

	var actionable []string
	for _, sentence := range sentenceBoundary.Split(text, -1) {
		clean := strings.TrimSpace(sentence)
		length := len([]rune(clean))
		if length <= minSentenceLen || length >= maxSentenceLen {
			continue
		}
		if !ContainsActionKeyword(clean) {
			continue
		}
		actionable = append(actionable, clean)
		if len(actionable) == maxSentences {
			break
		}
	}

	return actionable
}
