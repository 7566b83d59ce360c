package storage

import (
	"context"
	"errors"
	"strconv"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"showcase-web/domain"
)

// TasksKey is the fixed key holding a visitor's serialized task list.
const TasksKey = "hackstack-tasks"

// TaskStore maps the task list onto a Backend. Absent or malformed data loads
// as an empty list.
type TaskStore struct {
	backend Backend
}

// NewTaskStore creates a TaskStore on top of backend.
func NewTaskStore(backend Backend) *TaskStore {
	return &TaskStore{backend: backend}
}

// LoadTasks returns the visitor's list, or an empty list when nothing usable is stored.
func (s *TaskStore) LoadTasks(ctx context.Context, visitorID string) ([]domain.Task, error) {
	data, err := s.backend.Get(ctx, visitorID, TasksKey)
	if errors.Is(err, ErrNotFound) {
		return []domain.Task{}, nil
	}
	if err != nil {
		return nil, err
	}
	tasks, err := DecodeTasks(data)
	if err != nil {
		log.WithError(err).WithField("visitor", visitorID).Warn("discarding malformed task list")
		return []domain.Task{}, nil
	}
	return tasks, nil
}

// SaveTasks replaces the stored list.
func (s *TaskStore) SaveTasks(ctx context.Context, visitorID string, tasks []domain.Task) error {
	data, err := EncodeTasks(tasks)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, visitorID, TasksKey, data)
}

// EncodeTasks serializes a list as a JSON array. A nil list encodes as [].
func EncodeTasks(tasks []domain.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return sonic.Marshal(tasks)
}

// DecodeTasks parses a JSON array of tasks. JSON null decodes as an empty list.
// Ids are accepted as numbers or as decimal strings.
func DecodeTasks(data []byte) ([]domain.Task, error) {
	var stored []storedTask
	if err := sonic.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, len(stored))
	for i, st := range stored {
		tasks[i] = domain.Task{
			ID:        int64(st.ID),
			Text:      st.Text,
			Completed: st.Completed,
			Priority:  st.Priority,
			Assignee:  st.Assignee,
		}
	}
	return tasks, nil
}

type storedTask struct {
	ID        taskID          `json:"id"`
	Text      string          `json:"text"`
	Completed bool            `json:"completed"`
	Priority  domain.Priority `json:"priority"`
	Assignee  string          `json:"assignee"`
}

// taskID reads an id written either as a JSON number or as a string holding
// one, which is how lists saved by the browser widget store them.
type taskID int64

func (id *taskID) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := sonic.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return err
	}
	*id = taskID(n)
	return nil
}
