package domain

import "strings"

// Filter selects a subset of a task list.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// Filters lists the filters in display order.
var Filters = []Filter{FilterAll, FilterActive, FilterCompleted}

// ParseFilter maps a query value onto a filter; anything unknown means all.
func ParseFilter(s string) Filter {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case FilterActive:
		return FilterActive
	case FilterCompleted:
		return FilterCompleted
	default:
		return FilterAll
	}
}

// Match reports whether t belongs to the filtered view.
func (f Filter) Match(t Task) bool {
	switch f {
	case FilterActive:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	default:
		return true
	}
}

// TaskCounts summarises a list.
type TaskCounts struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

// NewTask validates the submitted values and builds a task with the given id.
// Text is stored as submitted; only the blank check ignores surrounding space.
func NewTask(id int64, text string, priority Priority, assignee string) (Task, error) {
	if strings.TrimSpace(text) == "" {
		return Task{}, ErrEmptyText
	}
	assignee = strings.TrimSpace(assignee)
	if assignee == "" {
		assignee = DefaultAssignee
	}
	return Task{
		ID:       id,
		Text:     text,
		Priority: ParsePriority(string(priority)),
		Assignee: assignee,
	}, nil
}

// AppendTask returns a new list with t added at the end. The input is not modified.
func AppendTask(tasks []Task, t Task) []Task {
	out := make([]Task, 0, len(tasks)+1)
	out = append(out, tasks...)
	return append(out, t)
}

// ToggleTask returns a new list in which only the task with id has its
// completion flag flipped, along with the updated task.
func ToggleTask(tasks []Task, id int64) ([]Task, Task, error) {
	idx := indexOf(tasks, id)
	if idx < 0 {
		return tasks, Task{}, ErrTaskNotFound
	}
	out := make([]Task, len(tasks))
	copy(out, tasks)
	out[idx].Completed = !out[idx].Completed
	return out, out[idx], nil
}

// RemoveTask returns a new list without the task with id.
func RemoveTask(tasks []Task, id int64) ([]Task, error) {
	idx := indexOf(tasks, id)
	if idx < 0 {
		return tasks, ErrTaskNotFound
	}
	out := make([]Task, 0, len(tasks)-1)
	out = append(out, tasks[:idx]...)
	return append(out, tasks[idx+1:]...), nil
}

// ClearCompleted drops every completed task and reports how many were removed.
func ClearCompleted(tasks []Task) ([]Task, int) {
	out := FilterTasks(tasks, FilterActive)
	return out, len(tasks) - len(out)
}

// FilterTasks keeps the tasks matching f in their original order.
func FilterTasks(tasks []Task, f Filter) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// CountTasks tallies total, active and completed tasks.
func CountTasks(tasks []Task) TaskCounts {
	c := TaskCounts{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			c.Completed++
		}
	}
	c.Active = c.Total - c.Completed
	return c
}

func indexOf(tasks []Task, id int64) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
