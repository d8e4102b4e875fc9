package mt

import (
	"errors"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	maxAttempts  = 3
	backoffBase  = 1 * time.Second
	backoffCap   = 5 * time.Second
	backoffScale = 2
)

// backoffDelay returns the exponential backoff delay for a zero-based
// attempt number: 1s, 2s, 4s, capped at 5s.
func backoffDelay(attempt int) time.Duration {
	delay := backoffBase
	for i := 0; i < attempt; i++ {
		delay *= backoffScale
		if delay >= backoffCap {
			return backoffCap
		}
	}
	return delay
}

// isRetryable classifies transient MT failures: gRPC UNAVAILABLE and
// RESOURCE_EXHAUSTED, HTTP 503/429 surfaced in messages, and transport-level
// resets and timeouts.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.ResourceExhausted:
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{"503", "429", "ECONNRESET", "ETIMEDOUT", "connection reset"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// isGlossaryError detects a missing or broken glossary so the call can fall
// back to a plain translation.
func isGlossaryError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "glossary") {
		return true
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.NotFound {
		return true
	}
	return strings.Contains(msg, "not found")
}
