package fetch

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yairfalse/kartta/telemetry"
)

const (
	// DefaultMaxAttempts bounds retries of a rate-limited call.
	DefaultMaxAttempts = 4
	// DefaultChunk is how many identifiers a fan-out batches per call.
	DefaultChunk = 20

	defaultStaggerDelay = 250 * time.Millisecond
	defaultPageDelay    = 500 * time.Millisecond
)

// Request describes one logical fetch: an operation, its parameters, and
// the scan context it runs under for error attribution.
type Request struct {
	// Context names where this fetch runs, "account:region:service".
	Context   string
	Operation string
	Params    map[string]any
	// PageMarker is the response field carrying the continuation token.
	// When empty the engine falls back to NextToken, then to the legacy
	// IsTruncated/Marker pair.
	PageMarker string
	// RequestMarker is the parameter the token is sent back under when
	// it differs from PageMarker.
	RequestMarker string
}

// Engine runs provider calls with pagination, retry on rate limiting,
// and fan-out over identifier batches. The zero value is not usable;
// construct with NewEngine.
type Engine struct {
	MaxAttempts  int
	StaggerDelay time.Duration
	PageDelay    time.Duration

	log *telemetry.Logger
}

// NewEngine returns an engine with production retry parameters.
func NewEngine() *Engine {
	return &Engine{
		MaxAttempts:  DefaultMaxAttempts,
		StaggerDelay: defaultStaggerDelay,
		PageDelay:    defaultPageDelay,
		log:          telemetry.NewLogger("fetch"),
	}
}

// Paginate invokes the request and follows continuation markers until
// the provider reports no more pages. Every page is retried through the
// rate-limit policy before the whole fetch fails.
func (e *Engine) Paginate(ctx context.Context, client Client, req Request) ([]Page, error) {
	return e.paginate(ctx, client, req, 0)
}

// Invoke runs the request once, without following markers. Rate-limit
// retries still apply.
func (e *Engine) Invoke(ctx context.Context, client Client, req Request) (Page, error) {
	return e.invoke(ctx, client, req, cloneParams(req.Params), 0)
}

// FanOut re-runs the request once per batch of identifiers, binding each
// batch to idKey. Batches are at most chunk ids; chunk <= 0 uses
// DefaultChunk. Later batches back off harder when retried, so a
// rate-limited fan-out spreads instead of stampeding.
func (e *Engine) FanOut(ctx context.Context, client Client, req Request, idKey string, ids []string, chunk int) ([]Page, error) {
	if chunk <= 0 {
		chunk = DefaultChunk
	}
	var pages []Page
	for i := 0; i < len(ids); i += chunk {
		end := i + chunk
		if end > len(ids) {
			end = len(ids)
		}
		sub := req
		sub.Params = cloneParams(req.Params)
		sub.Params[idKey] = ids[i:end]

		got, err := e.paginate(ctx, client, sub, i/chunk)
		if err != nil {
			return nil, err
		}
		pages = append(pages, got...)
	}
	return pages, nil
}

func (e *Engine) paginate(ctx context.Context, client Client, req Request, item int) ([]Page, error) {
	params := cloneParams(req.Params)
	var pages []Page
	for {
		page, err := e.invoke(ctx, client, req, params, item)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
		telemetry.PagesFetched.Add(ctx, 1, metric.WithAttributes(
			attribute.String("service", client.Service()),
			attribute.String("operation", req.Operation),
		))

		key, marker := nextMarker(req, page)
		if marker == "" {
			return pages, nil
		}
		params[key] = marker
	}
}

func (e *Engine) invoke(ctx context.Context, client Client, req Request, params map[string]any, item int) (Page, error) {
	var lastErr error
	for attempt := 1; attempt <= e.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := e.backoff(ctx, attempt-1, item); err != nil {
				return nil, err
			}
		}
		page, err := client.Invoke(ctx, req.Operation, params)
		if err == nil {
			return page, nil
		}
		if !IsThrottle(err) {
			return nil, Classify(req.Operation, req.Context, err)
		}
		lastErr = err
		e.log.LogThrottle(ctx, req.Context, req.Operation, attempt)
		telemetry.ThrottleRetries.Add(ctx, 1, metric.WithAttributes(
			attribute.String("service", client.Service()),
			attribute.String("operation", req.Operation),
		))
	}
	return nil, &Error{
		Op:      req.Operation,
		Context: req.Context,
		Kind:    KindThrottled,
		Err:     fmt.Errorf("rate limit retries exhausted after %d attempts: %w", e.MaxAttempts, lastErr),
	}
}

// backoff waits between retries. The wait grows with the attempt number
// and, for fan-out batches, with the batch position.
func (e *Engine) backoff(ctx context.Context, prior, item int) error {
	delay := e.PageDelay*time.Duration(prior) + e.StaggerDelay*time.Duration(prior*item)
	if delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// nextMarker decides where the next page, if any, starts.
func nextMarker(req Request, page Page) (key, marker string) {
	if req.PageMarker != "" {
		key = req.PageMarker
		if req.RequestMarker != "" {
			key = req.RequestMarker
		}
		return key, page.Marker(req.PageMarker)
	}
	if token := page.Marker("NextToken"); token != "" {
		return "NextToken", token
	}
	if page.Truncated() {
		if m := page.Marker("Marker"); m != "" {
			return "Marker", m
		}
		return "Marker", page.Marker("NextMarker")
	}
	return "", ""
}

func cloneParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
