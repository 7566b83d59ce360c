package domain

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// TaskStorage loads and persists the full task list of a visitor.
type TaskStorage interface {
	LoadTasks(ctx context.Context, visitorID string) ([]Task, error)
	SaveTasks(ctx context.Context, visitorID string, tasks []Task) error
}

// TaskService applies list operations for a visitor and persists the whole
// list after every change. Operations on the same visitor are serialized.
type TaskService struct {
	st     TaskStorage
	nextID func() int64
	locks  keyedMutex
}

// NewTaskService creates a TaskService backed by st.
func NewTaskService(st TaskStorage) *TaskService {
	return &TaskService{st: st, nextID: NextTaskID}
}

// List returns the filtered list along with counts over the full list. Reads
// take the visitor lock too so a cached read never interleaves with a write.
func (s *TaskService) List(ctx context.Context, visitorID string, f Filter) ([]Task, TaskCounts, error) {
	unlock := s.locks.lock(visitorID)
	defer unlock()

	tasks, err := s.st.LoadTasks(ctx, visitorID)
	if err != nil {
		return nil, TaskCounts{}, err
	}
	return FilterTasks(tasks, f), CountTasks(tasks), nil
}

// Add appends a new task to the end of the visitor's list.
func (s *TaskService) Add(ctx context.Context, visitorID, text string, priority Priority, assignee string) (Task, error) {
	t, err := NewTask(0, text, priority, assignee)
	if err != nil {
		return Task{}, err
	}
	unlock := s.locks.lock(visitorID)
	defer unlock()

	tasks, err := s.st.LoadTasks(ctx, visitorID)
	if err != nil {
		return Task{}, err
	}
	t.ID = s.nextID()
	if err := s.st.SaveTasks(ctx, visitorID, AppendTask(tasks, t)); err != nil {
		return Task{}, err
	}
	log.WithFields(log.Fields{"visitor": visitorID, "task": t.ID, "priority": t.Priority}).Debug("task added")
	return t, nil
}

// Toggle flips the completion flag of one task.
func (s *TaskService) Toggle(ctx context.Context, visitorID string, id int64) (Task, error) {
	unlock := s.locks.lock(visitorID)
	defer unlock()

	tasks, err := s.st.LoadTasks(ctx, visitorID)
	if err != nil {
		return Task{}, err
	}
	updated, t, err := ToggleTask(tasks, id)
	if err != nil {
		return Task{}, err
	}
	if err := s.st.SaveTasks(ctx, visitorID, updated); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Remove deletes one task.
func (s *TaskService) Remove(ctx context.Context, visitorID string, id int64) error {
	unlock := s.locks.lock(visitorID)
	defer unlock()

	tasks, err := s.st.LoadTasks(ctx, visitorID)
	if err != nil {
		return err
	}
	updated, err := RemoveTask(tasks, id)
	if err != nil {
		return err
	}
	return s.st.SaveTasks(ctx, visitorID, updated)
}

// ClearCompleted removes all completed tasks and returns how many were dropped.
func (s *TaskService) ClearCompleted(ctx context.Context, visitorID string) (int, error) {
	unlock := s.locks.lock(visitorID)
	defer unlock()

	tasks, err := s.st.LoadTasks(ctx, visitorID)
	if err != nil {
		return 0, err
	}
	updated, removed := ClearCompleted(tasks)
	if removed == 0 {
		return 0, nil
	}
	if err := s.st.SaveTasks(ctx, visitorID, updated); err != nil {
		return 0, err
	}
	return removed, nil
}

// ClearAll empties the visitor's list and returns how many tasks were dropped.
// The empty list is persisted even when nothing was stored before.
func (s *TaskService) ClearAll(ctx context.Context, visitorID string) (int, error) {
	unlock := s.locks.lock(visitorID)
	defer unlock()

	tasks, err := s.st.LoadTasks(ctx, visitorID)
	if err != nil {
		return 0, err
	}
	if err := s.st.SaveTasks(ctx, visitorID, []Task{}); err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"visitor": visitorID, "removed": len(tasks)}).Debug("task list cleared")
	return len(tasks), nil
}

// keyedMutex hands out one mutex per key and forgets it once nobody holds it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
