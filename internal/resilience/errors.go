package resilience

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNoTiers is the configuration error raised when no advice tier at all is
// available. A missing credential on its own only disables one tier.
var ErrNoTiers = eris.New("configuration: no advice tiers configured")

// UpstreamUnavailableError reports that a generation provider could not serve
// a call: auth failure, network error, timeout or server error.
type UpstreamUnavailableError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *UpstreamUnavailableError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: upstream unavailable (status %d): %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: upstream unavailable: %v", e.Service, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

// RateLimitedError is the quota-exhausted flavour of UpstreamUnavailableError.
// errors.As matches it against both types.
type RateLimitedError struct {
	UpstreamUnavailableError
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: rate limited (status %d): %v", e.Service, e.StatusCode, e.Err)
}

func (e *RateLimitedError) Unwrap() error {
	return &e.UpstreamUnavailableError
}

// Unavailable wraps err as an UpstreamUnavailableError for service.
func Unavailable(service string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamUnavailableError{Service: service, StatusCode: statusCode, Err: err}
}

// RateLimited wraps err as a RateLimitedError for service.
func RateLimited(service string, statusCode int, retryAfter time.Duration, err error) error {
	if err == nil {
		return nil
	}
	return &RateLimitedError{
		UpstreamUnavailableError: UpstreamUnavailableError{Service: service, StatusCode: statusCode, Err: err},
		RetryAfter:               retryAfter,
	}
}

// ClassifyStatus maps an upstream HTTP failure to the error taxonomy. A 429, or
// a body that mentions RESOURCE_EXHAUSTED, is a rate limit.
func ClassifyStatus(service string, statusCode int, body string) error {
	err := eris.Errorf("unexpected status %d: %s", statusCode, truncate(body, 300))
	if statusCode == http.StatusTooManyRequests || strings.Contains(body, "RESOURCE_EXHAUSTED") {
		return RateLimited(service, statusCode, 0, err)
	}
	return Unavailable(service, statusCode, err)
}

// IsUpstreamUnavailable reports whether err is any upstream failure, rate
// limits included.
func IsUpstreamUnavailable(err error) bool {
	var ue *UpstreamUnavailableError
	return errors.As(err, &ue)
}

// IsRateLimited reports whether err is a rate-limit failure.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}

// IsTransient reports whether err is worth retrying against the same upstream:
// 5xx and 408 responses, network timeouts, connection resets and DNS failures.
// Rate limits are never transient; they are a reason to move on.
func IsTransient(err error) bool {
	if err == nil || IsRateLimited(err) {
		return false
	}

	var ue *UpstreamUnavailableError
	if errors.As(err, &ue) && ue.StatusCode > 0 {
		return IsTransientHTTPStatus(ue.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether a status code is a retryable server
// side condition. 429 is deliberately excluded.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
