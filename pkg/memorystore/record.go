// Package memorystore provides the durable long-term memory layer.
//
// Records are distilled facts about the user, extracted from completed
// conversation exchanges. The store is insert-only from the
// orchestrator's perspective; deletion and pinning exist only for the
// management surfaces (CLI, API).
package memorystore

import (
	"strings"
	"time"
	"unicode"
)

// DefaultImportance is assigned to facts extracted from conversations.
const DefaultImportance = 0.7

// DefaultTags are attached to facts extracted from conversations.
var DefaultTags = []string{"conversation", "fact"}

// Record is a persisted memory.
type Record struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Importance float64   `json:"importance"`
	Tags       []string  `json:"tags,omitempty"`
	Pinned     bool      `json:"pinned,omitempty"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Candidate is an extracted fact that has not yet been persisted.
// Source identifies the exchange the fact was derived from.
type Candidate struct {
	Content    string   `json:"content"`
	Importance float64  `json:"importance"`
	Tags       []string `json:"tags,omitempty"`
	Source     string   `json:"source,omitempty"`
}

// NewCandidate builds a candidate with the default importance and tags.
func NewCandidate(content, source string) Candidate {
	return Candidate{
		Content:    content,
		Importance: DefaultImportance,
		Tags:       append([]string(nil), DefaultTags...),
		Source:     source,
	}
}

// Normalize reduces content to a canonical form for duplicate detection:
// lowercase, whitespace collapsed, trailing punctuation stripped.
func Normalize(content string) string {
	lowered := strings.ToLower(strings.TrimSpace(content))
	fields := strings.Fields(lowered)
	joined := strings.Join(fields, " ")
	return strings.TrimRightFunc(joined, unicode.IsPunct)
}
