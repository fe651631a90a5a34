package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medcalc/medcalc/internal/platform/fhir"
)

// RequestTimeout bounds each request with a context deadline. A handler
// still running at the deadline gets a 504 OperationOutcome; the FHIR
// client calls it makes observe the same deadline and return early.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 || quietPaths[c.Request().URL.Path] {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() { done <- next(c) }()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return ctx.Err()
				}
				if c.Response().Committed {
					return nil
				}
				return c.JSON(http.StatusGatewayTimeout,
					fhir.NewOperationOutcome("error", "timeout", "request processing exceeded the allowed time"))
			}
		}
	}
}
