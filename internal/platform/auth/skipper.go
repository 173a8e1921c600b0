package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are the routes served without a bearer token: the health probe
// and the Swagger UI shell page.
var publicPaths = map[string]bool{
	"/health":            true,
	"/api/docs/:name/ui": true,
}

// AuthSkipper reports whether the matched route is public.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
