package auth

import "github.com/labstack/echo/v4"

// publicPaths lists routes reachable without a token. Load balancer health
// probes carry no Authorization header, so /health must stay open.
var publicPaths = map[string]bool{
	"/health": true,
}

// AuthSkipper reports whether the current request targets a public path and
// should bypass authentication. Checked by both JWTMiddleware and
// DevAuthMiddleware before they touch the request.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given route path is exempt from auth.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
