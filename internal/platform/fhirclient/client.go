// Package fhirclient talks to the EHR's FHIR server on behalf of one
// launched patient context. Requests go through a rate limiter and a
// circuit breaker.
package fhirclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/platform/telemetry"
)

var (
	ErrNotFound    = errors.New("fhir resource not found")
	ErrUnavailable = errors.New("fhir server unavailable")
	ErrNoPatient   = errors.New("no patient in context")
)

// StatusError is a non-2xx FHIR response.
type StatusError struct {
	Code    int
	Outcome *fhir.OperationOutcome
}

func (e *StatusError) Error() string {
	if e.Outcome != nil && len(e.Outcome.Issue) > 0 && e.Outcome.Issue[0].Diagnostics != "" {
		return fmt.Sprintf("fhir server returned %d: %s", e.Code, e.Outcome.Issue[0].Diagnostics)
	}
	return fmt.Sprintf("fhir server returned %d", e.Code)
}

// Config configures a Client.
type Config struct {
	BaseURL     string
	BearerToken string
	PatientID   string
	Timeout     time.Duration
	// RateLimitRPS <= 0 disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
	// BreakerFailures consecutive failures open the breaker; 0 uses 5.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	// MaxPages bounds RequestAll; 0 uses 10.
	MaxPages int
}

// Client is a FHIR REST client bound to one patient.
type Client struct {
	http      *resty.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	patientID string
	maxPages  int
	logger    zerolog.Logger
	metrics   *telemetry.Metrics
}

func New(cfg Config, logger zerolog.Logger, metrics *telemetry.Metrics) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("fhir client: base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}

	c := &Client{
		patientID: cfg.PatientID,
		maxPages:  cfg.MaxPages,
		logger:    logger.With().Str("component", "fhirclient").Logger(),
		metrics:   metrics,
	}

	c.http = resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/fhir+json").
		SetRetryCount(0)
	if cfg.BearerToken != "" {
		c.http.SetAuthToken(cfg.BearerToken)
	}

	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}

	failures := cfg.BreakerFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "fhir",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// a 404 or 4xx is an answer, not an outage
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.Code < 500
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			c.metrics.SetBreakerState(name, breakerGauge(to))
		},
	})

	return c, nil
}

func breakerGauge(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}

// PatientID returns the launched patient id.
func (c *Client) PatientID() string {
	return c.patientID
}

// WithPatient returns a client sharing transport, limiter and breaker but
// bound to another patient.
func (c *Client) WithPatient(patientID string) *Client {
	cp := *c
	cp.patientID = patientID
	return &cp
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		req := c.http.R().SetContext(ctx)
		if body != nil {
			req.SetHeader("Content-Type", "application/fhir+json").SetBody(body)
		}
		resp, err := req.Execute(method, path)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		if resp.StatusCode() >= 300 {
			se := &StatusError{Code: resp.StatusCode()}
			var oo fhir.OperationOutcome
			if json.Unmarshal(resp.Body(), &oo) == nil && oo.ResourceType == "OperationOutcome" {
				se.Outcome = &oo
			}
			return nil, se
		}
		return resp.Body(), nil
	})
	c.metrics.ObserveFHIRRequest(resourceTypeOf(path), time.Since(start), err)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

// Request runs a search such as "Observation?patient=1&code=2160-0" and
// returns the first page.
func (c *Client) Request(ctx context.Context, query string) (*fhir.Bundle, error) {
	body, err := c.do(ctx, http.MethodGet, relative(query), nil)
	if err != nil {
		return nil, err
	}
	return fhir.ParseBundle(body)
}

// RequestAll follows next links up to MaxPages and merges the entries.
func (c *Client) RequestAll(ctx context.Context, query string) (*fhir.Bundle, error) {
	first, err := c.Request(ctx, query)
	if err != nil {
		return nil, err
	}
	page := first
	for i := 1; i < c.maxPages; i++ {
		next := page.NextLink()
		if next == "" {
			break
		}
		if page, err = c.Request(ctx, next); err != nil {
			return nil, err
		}
		first.Entry = append(first.Entry, page.Entry...)
	}
	first.Link = nil
	return first, nil
}

// Read fetches one resource by reference ("Patient/123").
func (c *Client) Read(ctx context.Context, ref string) (fhir.Resource, error) {
	body, err := c.do(ctx, http.MethodGet, relative(ref), nil)
	if err != nil {
		return nil, err
	}
	return fhir.ParseResource(body)
}

// ReadPatient fetches the launched patient.
func (c *Client) ReadPatient(ctx context.Context) (fhir.Resource, error) {
	if c.patientID == "" {
		return nil, ErrNoPatient
	}
	return c.Read(ctx, fhir.FormatReference("Patient", c.patientID))
}

// Create POSTs a resource to its type endpoint and returns the server copy.
func (c *Client) Create(ctx context.Context, r fhir.Resource) (fhir.Resource, error) {
	if r.Type() == "" {
		return nil, fmt.Errorf("create: resource has no resourceType")
	}
	body, err := c.do(ctx, http.MethodPost, r.Type(), r)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return r, nil
	}
	return fhir.ParseResource(body)
}

// Transaction POSTs a bundle to the server base.
func (c *Client) Transaction(ctx context.Context, b *fhir.Bundle) (*fhir.Bundle, error) {
	body, err := c.do(ctx, http.MethodPost, "", b)
	if err != nil {
		return nil, err
	}
	return fhir.ParseBundle(body)
}

// relative keeps absolute next links and roots everything else at the base URL.
func relative(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return "/" + strings.TrimLeft(path, "/")
}

func resourceTypeOf(path string) string {
	if strings.Contains(path, "://") {
		return "page"
	}
	p := strings.TrimLeft(path, "/")
	if i := strings.IndexAny(p, "/?"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "system"
	}
	return p
}
