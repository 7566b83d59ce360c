package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"showcase-web/domain"
)

const (
	createTaskMaxSize    = 16 << 10
	idempotencyKeyHeader = "Idempotency-Key"
)

type tasksResponse struct {
	Tasks  []domain.Task     `json:"tasks"`
	Counts domain.TaskCounts `json:"counts"`
}

type createTaskRequest struct {
	Text     string `json:"text"`
	Priority string `json:"priority"`
	Assignee string `json:"assignee"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func listTasks(svc TaskService, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newTaskRequestMetrics(c.Request().Context(), logger, "/api/tasks", "list")
		defer func() { metrics.Log(c.Response().Status, err) }()

		filter := domain.ParseFilter(c.QueryParam("filter"))
		metrics.SetFilter(filter)

		start := time.Now()
		tasks, counts, listErr := svc.List(ctx, VisitorID(c), filter)
		metrics.ObserveStorage(time.Since(start))
		if listErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(listErr)
			err = c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load tasks"})
			if err == nil {
				err = listErr
			}
			return err
		}
		metrics.SetTasksReturned(len(tasks))
		return c.JSON(http.StatusOK, tasksResponse{Tasks: tasks, Counts: counts})
	}
}

func createTask(svc TaskService, dedupe Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newTaskRequestMetrics(c.Request().Context(), logger, "/api/tasks", "create")
		defer func() { metrics.Log(c.Response().Status, err) }()

		dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, createTaskMaxSize))
		dec.DisallowUnknownFields()
		var req createTaskRequest
		if decErr := dec.Decode(&req); decErr != nil {
			metrics.SetErrorStage("invalid_body")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		visitor := VisitorID(c)
		key := c.Request().Header.Get(idempotencyKeyHeader)
		if !firstSubmit(ctx, dedupe, visitor, key) {
			metrics.SetErrorStage("duplicate")
			return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate request"})
		}

		start := time.Now()
		task, addErr := svc.Add(ctx, visitor, req.Text, domain.ParsePriority(req.Priority), req.Assignee)
		metrics.ObserveStorage(time.Since(start))
		if addErr != nil {
			forgetSubmit(ctx, dedupe, visitor, key)
			if errors.Is(addErr, domain.ErrEmptyText) {
				metrics.SetErrorStage("empty_text")
				return c.JSON(http.StatusBadRequest, errorResponse{Error: addErr.Error()})
			}
			metrics.SetErrorStage("storage")
			c.Logger().Error(addErr)
			err = c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to save task"})
			if err == nil {
				err = addErr
			}
			return err
		}
		metrics.SetTasksReturned(1)
		return c.JSON(http.StatusCreated, task)
	}
}

func toggleTask(svc TaskService, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newTaskRequestMetrics(c.Request().Context(), logger, "/api/tasks/:id/toggle", "toggle")
		defer func() { metrics.Log(c.Response().Status, err) }()

		id, idErr := taskIDParam(c)
		if idErr != nil {
			metrics.SetErrorStage("invalid_id")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid task id"})
		}
		start := time.Now()
		task, toggleErr := svc.Toggle(ctx, VisitorID(c), id)
		metrics.ObserveStorage(time.Since(start))
		if toggleErr != nil {
			return taskMutationError(c, metrics, toggleErr)
		}
		metrics.SetTasksReturned(1)
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(svc TaskService, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newTaskRequestMetrics(c.Request().Context(), logger, "/api/tasks/:id", "delete")
		defer func() { metrics.Log(c.Response().Status, err) }()

		id, idErr := taskIDParam(c)
		if idErr != nil {
			metrics.SetErrorStage("invalid_id")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid task id"})
		}
		start := time.Now()
		removeErr := svc.Remove(ctx, VisitorID(c), id)
		metrics.ObserveStorage(time.Since(start))
		if removeErr != nil {
			return taskMutationError(c, metrics, removeErr)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// clearTasks empties the list, or with completed=true drops only the
// completed tasks.
func clearTasks(svc TaskService, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		scope := c.QueryParam("completed")
		op := "clear_all"
		if scope != "" {
			op = "clear_completed"
		}
		metrics, ctx := newTaskRequestMetrics(c.Request().Context(), logger, "/api/tasks", op)
		defer func() { metrics.Log(c.Response().Status, err) }()

		if scope != "" && scope != "true" {
			metrics.SetErrorStage("invalid_query")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "completed must be true or omitted"})
		}
		drop := svc.ClearAll
		if scope == "true" {
			drop = svc.ClearCompleted
		}
		start := time.Now()
		removed, clearErr := drop(ctx, VisitorID(c))
		metrics.ObserveStorage(time.Since(start))
		if clearErr != nil {
			return taskMutationError(c, metrics, clearErr)
		}
		return c.JSON(http.StatusOK, map[string]int{"removed": removed})
	}
}

// taskMutationError maps a service error onto a JSON response. Storage
// failures are returned so they reach the request metrics as errors.
func taskMutationError(c echo.Context, metrics *taskRequestMetrics, err error) error {
	if errors.Is(err, domain.ErrTaskNotFound) {
		metrics.SetErrorStage("not_found")
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	}
	metrics.SetErrorStage("storage")
	c.Logger().Error(err)
	if jerr := c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to update tasks"}); jerr != nil {
		return jerr
	}
	return err
}
