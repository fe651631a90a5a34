package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/platform/fhir"
)

const stackSize = 4 << 10

// Recovery turns a handler panic into a 500 OperationOutcome and logs the
// stack.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				stack := make([]byte, stackSize)
				stack = stack[:runtime.Stack(stack, false)]

				logger.Error().
					Str("request_id", fmt.Sprintf("%v", c.Get("request_id"))).
					Str("method", c.Request().Method).
					Str("path", c.Request().URL.Path).
					Str("panic", fmt.Sprintf("%v", r)).
					Bytes("stack", stack).
					Msg("panic recovered")

				if c.Response().Committed {
					err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
					return
				}
				err = c.JSON(http.StatusInternalServerError,
					fhir.NewOperationOutcome("fatal", "exception", "internal server error"))
			}()
			return next(c)
		}
	}
}
