package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medcalc/medcalc/internal/platform/fhir"
)

const defaultBodyLimit = 1 << 20

// BodyLimit caps request bodies at defaultLimit, except for POST routes
// listed in large, which accept up to largeLimit (calculator forms posted
// to /populate are whole HTML documents). Limits are sizes such as "512K",
// "1M" or "2MB"; a bare number is bytes.
func BodyLimit(defaultLimit, largeLimit string, large ...string) echo.MiddlewareFunc {
	def := parseLimit(defaultLimit)
	big := parseLimit(largeLimit)
	bigPaths := make(map[string]bool, len(large))
	for _, p := range large {
		bigPaths[p] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			limit := def
			if req.Method == http.MethodPost && bigPaths[req.URL.Path] {
				limit = big
			}
			if req.ContentLength > limit {
				return c.JSON(http.StatusRequestEntityTooLarge, fhir.NewOperationOutcome("error", "too-costly",
					fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", limit)))
			}
			req.Body = &limitedBody{ReadCloser: req.Body, remaining: limit}
			return next(c)
		}
	}
}

// limitedBody fails reads once more than the limit has been consumed, for
// bodies whose Content-Length is absent or wrong.
type limitedBody struct {
	io.ReadCloser
	remaining int64
}

func (r *limitedBody) Read(p []byte) (int, error) {
	if r.remaining < 0 {
		return 0, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}
	if int64(len(p)) > r.remaining+1 {
		p = p[:r.remaining+1]
	}
	n, err := r.ReadCloser.Read(p)
	r.remaining -= int64(n)
	if r.remaining < 0 {
		return 0, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}
	return n, err
}

func parseLimit(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(strings.TrimSuffix(strings.ToUpper(s), "B")))
	if s == "" {
		return defaultBodyLimit
	}
	mult := int64(1)
	switch s[len(s)-1] {
	case 'K':
		mult = 1 << 10
	case 'M':
		mult = 1 << 20
	case 'G':
		mult = 1 << 30
	}
	if mult > 1 {
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return defaultBodyLimit
	}
	return n * mult
}
