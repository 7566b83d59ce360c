package domain

import "strings"

// Priority ranks a to-do item.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DefaultAssignee is used when a task is submitted without an assignee.
const DefaultAssignee = "Me"

// Priorities lists the accepted priorities in display order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority maps user input onto a priority. Unknown values fall back to medium.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// Task represents a single entry of a visitor's to-do list.
type Task struct {
	ID        int64    `json:"id"`
	Text      string   `json:"text"`
	Completed bool     `json:"completed"`
	Priority  Priority `json:"priority"`
	Assignee  string   `json:"assignee"`
}

// Initials builds the avatar label for a name from the first letter of each
// space separated word.
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Split(name, " ") {
		for _, r := range word {
			b.WriteRune(r)
			break
		}
	}
	return strings.ToUpper(b.String())
}

// Initials is the avatar label of the task's assignee.
func (t Task) Initials() string { return Initials(t.Assignee) }
