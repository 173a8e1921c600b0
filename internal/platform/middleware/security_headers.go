package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	apiCSP = "default-src 'none'; frame-ancestors 'none'"
	// the Swagger UI page loads its bundle from unpkg
	uiCSP = "default-src 'self'; script-src 'self' 'unsafe-inline' https://unpkg.com; " +
		"style-src 'self' 'unsafe-inline' https://unpkg.com; img-src 'self' data:; frame-ancestors 'none'"
)

// SecurityHeaders sets the response security headers. Paths ending in /ui
// get a content policy that lets the Swagger UI page load.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")

			if strings.HasSuffix(c.Request().URL.Path, "/ui") {
				h.Set("Content-Security-Policy", uiCSP)
			} else {
				h.Set("Content-Security-Policy", apiCSP)
			}
			return next(c)
		}
	}
}
