package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/pkg/respond"
)

// Recovery converts a handler panic into the standard error envelope with an
// INTERNAL_SERVER_ERROR code. The panic value and stack are logged, never
// exposed to the client.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				var stack [4096]byte
				n := runtime.Stack(stack[:], false)

				rid, _ := c.Get("request_id").(string)
				logger.Error().
					Str("request_id", rid).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(stack[:n])).
					Msg("panic recovered")

				if !c.Response().Committed {
					err = respond.Error(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error")
				}
			}()
			return next(c)
		}
	}
}
