package testutil

import (
	"net/http"
	"time"

	"caseledger/pkg/requestcontext"
)

// WithSubject adds an authenticated subject to the request context,
// simulating what the auth middleware does for authenticated requests.
func WithSubject(req *http.Request, subject string) *http.Request {
	ctx := requestcontext.WithSubject(req.Context(), subject)
	return req.WithContext(ctx)
}

// WithRequestID adds a correlation id to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	return req.WithContext(ctx)
}

// WithTime pins the request-scoped clock, keeping time-dependent assertions
// deterministic.
func WithTime(req *http.Request, t time.Time) *http.Request {
	ctx := requestcontext.WithTime(req.Context(), t)
	return req.WithContext(ctx)
}
