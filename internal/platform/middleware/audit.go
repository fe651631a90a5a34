package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/platform/auth"
)

// SecurityAlerter records security alerts. *auditevent.Service satisfies it.
type SecurityAlerter interface {
	LogSecurityAlert(ctx context.Context, alertType, description, severity string) error
}

// AccessEntry summarises one API request for the access log.
type AccessEntry struct {
	RequestID  string
	UserID     string
	Roles      []string
	Method     string
	Route      string
	Path       string
	PatientID  string
	StatusCode int
	RemoteIP   string
	BreakGlass string
}

// Audit logs every /api/v1 request as a structured access entry. Requests
// refused with 401 or 403 are also raised as ACCESS_DENIED security alerts.
// Resource reads are recorded by the services themselves.
func Audit(logger zerolog.Logger, alerter SecurityAlerter) echo.MiddlewareFunc {
	logger = logger.With().Str("component", "access").Logger()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.HasPrefix(c.Request().URL.Path, "/api/v1/") {
				return next(c)
			}
			err := next(c)

			entry := accessEntry(c, err)
			evt := logger.Info()
			if entry.BreakGlass != "" {
				evt = logger.Warn()
			}
			evt.
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("roles", entry.Roles).
				Str("method", entry.Method).
				Str("route", entry.Route).
				Str("patient_id", entry.PatientID).
				Int("status", entry.StatusCode).
				Str("remote_ip", entry.RemoteIP).
				Str("break_glass", entry.BreakGlass).
				Msg("api access")

			if alerter != nil && (entry.StatusCode == http.StatusUnauthorized || entry.StatusCode == http.StatusForbidden) {
				desc := fmt.Sprintf("%s %s refused with %d for user %q from %s",
					entry.Method, entry.Path, entry.StatusCode, entry.UserID, entry.RemoteIP)
				if aerr := alerter.LogSecurityAlert(c.Request().Context(), "ACCESS_DENIED", desc, "medium"); aerr != nil {
					logger.Warn().Err(aerr).Msg("failed to record access denied alert")
				}
			}
			return err
		}
	}
}

func accessEntry(c echo.Context, err error) AccessEntry {
	req := c.Request()
	ctx := req.Context()
	e := AccessEntry{
		UserID:     auth.UserIDFromContext(ctx),
		Roles:      auth.RolesFromContext(ctx),
		Method:     req.Method,
		Route:      c.Path(),
		Path:       req.URL.Path,
		PatientID:  c.QueryParam("patient"),
		StatusCode: statusOf(c, err),
		RemoteIP:   c.RealIP(),
		BreakGlass: BreakGlassReason(ctx),
	}
	e.RequestID, _ = c.Get("request_id").(string)
	return e
}

// statusOf is the status the client will see, including errors not yet
// written by the error handler.
func statusOf(c echo.Context, err error) int {
	if err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he.Code
		}
		if !c.Response().Committed {
			return http.StatusInternalServerError
		}
	}
	return c.Response().Status
}
