package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/yatube/backend/internal/middleware"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// errorTemplates maps status codes to their error page.
var errorTemplates = map[int]string{
	http.StatusNotFound:            "core/404.html",
	http.StatusForbidden:           "core/403.html",
	http.StatusInternalServerError: "core/500.html",
}

// NewHTTPErrorHandler renders error pages for handler errors and unmatched routes.
// Server errors are logged with the request path.
func NewHTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}

		if code >= http.StatusInternalServerError {
			logger.Error("Request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}

		name, ok := errorTemplates[code]
		if !ok && code >= http.StatusInternalServerError {
			name, ok = errorTemplates[http.StatusInternalServerError], true
		}
		if !ok {
			_ = c.String(code, http.StatusText(code))
			return
		}

		data := echo.Map{
			"User": middleware.CurrentUser(c),
			"Path": c.Request().URL.Path,
		}
		if rerr := c.Render(code, name, data); rerr != nil {
			logger.Error("Rendering error page failed", zap.String("template", name), zap.Error(rerr))
			_ = c.String(code, http.StatusText(code))
		}
	}
}
