package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"showcase-web/domain"
)

type filterLink struct {
	Filter domain.Filter
	URL    string
	Active bool
}

type todoView struct {
	Tasks           []domain.Task
	Counts          domain.TaskCounts
	Filter          domain.Filter
	Filters         []filterLink
	Priorities      []domain.Priority
	DefaultAssignee string
	Nonce           string
}

func todoURL(f domain.Filter) string {
	if f == domain.FilterAll {
		return "/todo-priority"
	}
	return "/todo-priority?" + url.Values{"filter": {string(f)}}.Encode()
}

func todoPage(svc TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		filter := domain.ParseFilter(c.QueryParam("filter"))
		tasks, counts, err := svc.List(c.Request().Context(), VisitorID(c), filter)
		if err != nil {
			c.Logger().Error(err)
			return err
		}
		view := todoView{
			Tasks:           tasks,
			Counts:          counts,
			Filter:          filter,
			Priorities:      domain.Priorities,
			DefaultAssignee: domain.DefaultAssignee,
			Nonce:           uuid.NewString(),
		}
		for _, f := range domain.Filters {
			view.Filters = append(view.Filters, filterLink{Filter: f, URL: todoURL(f), Active: f == filter})
		}
		return c.Render(http.StatusOK, "todo", newPage("Todo List", "/todo-priority", view))
	}
}

func todoAdd(svc TaskService, dedupe Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		visitor := VisitorID(c)
		redirect := todoURL(domain.ParseFilter(c.FormValue("filter")))

		nonce := c.FormValue("nonce")
		if !firstSubmit(ctx, dedupe, visitor, nonce) {
			return c.Redirect(http.StatusSeeOther, redirect)
		}
		_, err := svc.Add(ctx, visitor, c.FormValue("text"), domain.ParsePriority(c.FormValue("priority")), c.FormValue("assignee"))
		if err != nil && !errors.Is(err, domain.ErrEmptyText) {
			forgetSubmit(ctx, dedupe, visitor, nonce)
			c.Logger().Error(err)
			return err
		}
		return c.Redirect(http.StatusSeeOther, redirect)
	}
}

// firstSubmit reports whether key has not been seen for the visitor. Without
// a key or a deduper every submit counts as the first; deduper failures are
// logged and let the submit through.
func firstSubmit(ctx context.Context, dedupe Deduper, visitor, key string) bool {
	if dedupe == nil || key == "" {
		return true
	}
	added, err := dedupe.Add(ctx, visitor, key)
	if err != nil {
		log.WithError(err).Warn("dedupe unavailable, accepting submit")
		return true
	}
	if !added {
		log.WithFields(log.Fields{"visitor": visitor, "key": key}).Debug("duplicate submit ignored")
	}
	return added
}

func forgetSubmit(ctx context.Context, dedupe Deduper, visitor, key string) {
	if dedupe == nil || key == "" {
		return
	}
	if err := dedupe.Remove(ctx, visitor, key); err != nil {
		log.WithError(err).Warn("failed to release submit key")
	}
}

func todoToggle(svc TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskIDParam(c)
		if err != nil {
			return err
		}
		if _, err := svc.Toggle(c.Request().Context(), VisitorID(c), id); err != nil && !errors.Is(err, domain.ErrTaskNotFound) {
			c.Logger().Error(err)
			return err
		}
		return c.Redirect(http.StatusSeeOther, todoURL(domain.ParseFilter(c.FormValue("filter"))))
	}
}

func todoDelete(svc TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := taskIDParam(c)
		if err != nil {
			return err
		}
		if err := svc.Remove(c.Request().Context(), VisitorID(c), id); err != nil && !errors.Is(err, domain.ErrTaskNotFound) {
			c.Logger().Error(err)
			return err
		}
		return c.Redirect(http.StatusSeeOther, todoURL(domain.ParseFilter(c.FormValue("filter"))))
	}
}

func todoClearCompleted(svc TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := svc.ClearCompleted(c.Request().Context(), VisitorID(c)); err != nil {
			c.Logger().Error(err)
			return err
		}
		return c.Redirect(http.StatusSeeOther, todoURL(domain.ParseFilter(c.FormValue("filter"))))
	}
}

func todoClearAll(svc TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := svc.ClearAll(c.Request().Context(), VisitorID(c)); err != nil {
			c.Logger().Error(err)
			return err
		}
		return c.Redirect(http.StatusSeeOther, todoURL(domain.ParseFilter(c.FormValue("filter"))))
	}
}

func taskIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid task id")
	}
	return id, nil
}
