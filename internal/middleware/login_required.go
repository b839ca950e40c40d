package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// LoginURL is where anonymous users are sent to authenticate.
const LoginURL = "/auth/login/"

// LoginRedirectURL returns the login URL that brings the user back to next afterwards.
func LoginRedirectURL(next string) string {
	return LoginURL + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// LoginRequired redirects anonymous requests to the login page, keeping the requested URI in "next".
func LoginRequired() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				return c.Redirect(http.StatusFound, LoginRedirectURL(c.Request().URL.RequestURI()))
			}
			return next(c)
		}
	}
}

// SafeRedirect returns target when it is a local path, otherwise fallback.
func SafeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}
