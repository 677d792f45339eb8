package upstream

import (
	"net/http"
	"strings"
	"time"

	"github.com/lllypuk/userdir/internal/infrastructure/metrics"
)

// Responder performs a single HTTP transaction.
type Responder func(*http.Request) (*http.Response, error)

// RoundTripperMiddleware wraps a Responder with extra behaviour.
type RoundTripperMiddleware func(next Responder) Responder

type chainTransport struct {
	base       http.RoundTripper
	middleware []RoundTripperMiddleware
}

// Chain builds a RoundTripper that runs middleware in order before base.
func Chain(base http.RoundTripper, middleware ...RoundTripperMiddleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &chainTransport{base: base, middleware: middleware}
}

func (t *chainTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	h := Responder(t.base.RoundTrip)
	for i := len(t.middleware) - 1; i >= 0; i-- {
		h = t.middleware[i](h)
	}
	return h(req)
}

// WithUserAgent sets the User-Agent header on requests that don't carry one.
func WithUserAgent(userAgent string) RoundTripperMiddleware {
	return func(next Responder) Responder {
		return func(req *http.Request) (*http.Response, error) {
			if userAgent != "" && req.Header.Get("User-Agent") == "" {
				// RoundTrippers must not modify the caller's request
				req = req.Clone(req.Context())
				req.Header.Set("User-Agent", userAgent)
			}
			return next(req)
		}
	}
}

// WithMetrics records request count and latency per endpoint.
func WithMetrics(m *metrics.UpstreamMetrics) RoundTripperMiddleware {
	return func(next Responder) Responder {
		if m == nil {
			return next
		}
		return func(req *http.Request) (*http.Response, error) {
			endpoint := endpointLabel(req)
			start := time.Now()

			resp, err := next(req)

			m.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
			m.RequestsTotal.WithLabelValues(endpoint, outcomeLabel(resp, err)).Inc()

			return resp, err
		}
	}
}

func endpointLabel(req *http.Request) string {
	if strings.HasSuffix(strings.TrimSuffix(req.URL.Path, "/"), "/users") {
		return endpointListUsers
	}
	return endpointGetUser
}

func outcomeLabel(resp *http.Response, err error) string {
	switch {
	case err != nil:
		return metrics.OutcomeNetworkError
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return metrics.OutcomeHTTPError
	default:
		return metrics.OutcomeSuccess
	}
}
