package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// errorHandler renders the not-found page for unknown site routes and leaves
// everything else, including unknown /api routes, to echo's default handler.
func errorHandler(e *echo.Echo, logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		path := c.Request().URL.Path
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusNotFound && !strings.HasPrefix(path, "/api/") {
			logger.WithField("path", path).Warn("404: user attempted to access non-existent route")
			if rerr := c.Render(http.StatusNotFound, "notfound", newPage("Page not found", "", notFoundView{Path: path})); rerr != nil {
				e.DefaultHTTPErrorHandler(rerr, c)
			}
			return
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}
