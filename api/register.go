package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Register wires the site routes, renderer and error handler onto e. A nil
// dedupe disables the repeated submit guard.
func Register(e *echo.Echo, tasks TaskService, visitors *Visitors, hub *CarouselHub, dedupe Deduper, logger *log.Logger) error {
	renderer, err := NewRenderer()
	if err != nil {
		return err
	}
	e.Renderer = renderer
	e.HTTPErrorHandler = errorHandler(e, logger)

	e.GET("/", homePage)
	e.GET("/pricing-toggle", pricingPage)
	e.GET("/testimonial-carousel", hub.page)

	vm := visitors.Middleware()
	e.GET("/todo-priority", todoPage(tasks), vm)
	e.POST("/todo-priority/tasks", todoAdd(tasks, dedupe), vm)
	e.POST("/todo-priority/tasks/:id/toggle", todoToggle(tasks), vm)
	e.POST("/todo-priority/tasks/:id/delete", todoDelete(tasks), vm)
	e.POST("/todo-priority/clear-completed", todoClearCompleted(tasks), vm)
	e.POST("/todo-priority/clear", todoClearAll(tasks), vm)

	e.GET("/api/tasks", listTasks(tasks, logger), vm)
	e.POST("/api/tasks", createTask(tasks, dedupe, logger), vm)
	e.POST("/api/tasks/:id/toggle", toggleTask(tasks, logger), vm)
	e.DELETE("/api/tasks/:id", deleteTask(tasks, logger), vm)
	e.DELETE("/api/tasks", clearTasks(tasks, logger), vm)

	e.GET("/api/carousel/stream", hub.stream)
	e.POST("/api/carousel/:session/:action", hub.control)

	e.GET("/healthz", healthz(hub))
	return nil
}

type healthResponse struct {
	Status           string `json:"status"`
	CarouselSessions int    `json:"carousel_sessions"`
}

func healthz(hub *CarouselHub) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{Status: "ok", CarouselSessions: hub.Sessions()})
	}
}
