package rates

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/avanleeuwen/invoice-pipeline/internal/infrastructure/resilience"
)

type feedStatusError struct {
	StatusCode int
	Status     string
}

func (e *feedStatusError) Error() string {
	return fmt.Sprintf("feed status: %s", e.Status)
}

func classifyFeedError(err error) resilience.Outcome {
	if err == nil {
		return resilience.Outcome{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Outcome{}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.Outcome{Retry: true, CountAsFailure: true}
	}

	var statusErr *feedStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return resilience.Outcome{Retry: true, CountAsFailure: true}
		}
		// A 404 means the series has no observation for that date, which a
		// retry will not change.
		return resilience.Outcome{}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Outcome{Retry: true, CountAsFailure: true}
	}
	return resilience.Outcome{}
}
