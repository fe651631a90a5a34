package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/platform/auth"
)

const BreakGlassHeader = "X-Break-Glass"

const breakGlassMaxPerHour = 10

type breakGlassKey struct{}

// breakGlassWindow is a per-user sliding one hour window of requests.
type breakGlassWindow struct {
	mu      sync.Mutex
	entries map[string][]time.Time
}

func (w *breakGlassWindow) allow(userID string, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := now.Add(-time.Hour)
	for id, ts := range w.entries {
		kept := ts[:0]
		for _, t := range ts {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(w.entries, id)
			continue
		}
		w.entries[id] = kept
	}
	if len(w.entries[userID]) >= breakGlassMaxPerHour {
		return false
	}
	w.entries[userID] = append(w.entries[userID], now)
	return true
}

// BreakGlass carries an emergency access reason from the X-Break-Glass header
// into the request context. It does not grant anything itself: handlers that
// hit a REQUIRE_AUTH decision pass the reason to the security label service.
// Anonymous requests are refused and each user may invoke it ten times per
// hour.
func BreakGlass(logger zerolog.Logger) echo.MiddlewareFunc {
	return breakGlass(logger, time.Now)
}

func breakGlass(logger zerolog.Logger, now func() time.Time) echo.MiddlewareFunc {
	w := &breakGlassWindow{entries: make(map[string][]time.Time)}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			reason := strings.TrimSpace(req.Header.Get(BreakGlassHeader))
			if reason == "" {
				return next(c)
			}
			ctx := req.Context()
			userID := auth.UserIDFromContext(ctx)
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "break-the-glass requires authentication")
			}
			if !w.allow(userID, now()) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "break-the-glass limit exceeded")
			}

			logger.Warn().
				Str("user_id", userID).
				Str("reason", reason).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Msg("break-the-glass requested")

			c.SetRequest(req.WithContext(WithBreakGlass(ctx, reason)))
			return next(c)
		}
	}
}

func WithBreakGlass(ctx context.Context, reason string) context.Context {
	return context.WithValue(ctx, breakGlassKey{}, reason)
}

// BreakGlassReason returns the emergency access reason of the request, or "".
func BreakGlassReason(ctx context.Context) string {
	v, _ := ctx.Value(breakGlassKey{}).(string)
	return v
}
