package domain

import "errors"

var (
	// ErrEmptyText is returned when a task is submitted without any text.
	ErrEmptyText = errors.New("task text is empty")
	// ErrTaskNotFound indicates the referenced task is not part of the list.
	ErrTaskNotFound = errors.New("task not found")
)
