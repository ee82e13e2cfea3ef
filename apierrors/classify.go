package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// providerBody is the subset of the provider's JSON error shape we read:
// a human message and an optional retry hint for throttled requests.
type providerBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
	RetryDelay *struct {
		Seconds int64 `json:"seconds"`
		Nanos   int64 `json:"nanos"`
	} `json:"retryDelay"`
}

// Classify maps an upstream HTTP status plus raw response body onto the
// closed taxonomy. The mapping is fixed; call sites cannot override it.
func Classify(status int, body []byte) *Envelope {
	parsed, ok := parseBody(body)

	message := http.StatusText(status)
	if ok && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}

	var env *Envelope
	switch status {
	case http.StatusUnauthorized:
		env = New(KindUnauthorized, status, message)
	case http.StatusForbidden:
		env = New(KindInsufficientPermissions, status, message)
	case http.StatusNotFound:
		env = New(KindNotFound, status, message)
	case http.StatusTooManyRequests:
		env = New(KindRateLimitExceeded, status, message)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		env = New(KindServiceUnavailable, status, message)
	case http.StatusGatewayTimeout:
		env = New(KindTimeout, status, message)
	case http.StatusBadRequest:
		env = New(KindInvalidRequest, status, message)
	default:
		env = New(KindUnknown, status, message)
	}

	if env.Retryable && ok && parsed.RetryDelay != nil && parsed.RetryDelay.Seconds > 0 {
		env = env.WithRetryAfter(time.Duration(parsed.RetryDelay.Seconds) * time.Second)
	}
	return env
}

// ClassifyTransport maps local transport failures (no response received).
// Timeouts and cancellations are retryable Timeout outcomes; anything else
// is Unknown and surfaces immediately rather than being trusted.
func ClassifyTransport(err error) *Envelope {
	var e *Envelope
	if errors.As(err, &e) {
		return e
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return Wrap(KindTimeout, 0, "request timed out", err)
	}
	return Wrap(KindUnknown, 0, fmt.Sprintf("transport failure: %v", err), err)
}

// ClassifyDecode marks a malformed or unexpectedly-shaped success payload.
func ClassifyDecode(err error) *Envelope {
	return Wrap(KindUnknown, 0, fmt.Sprintf("unexpected response shape: %v", err), err)
}

func parseBody(body []byte) (*providerBody, bool) {
	if len(body) == 0 {
		return nil, false
	}
	parsed := &providerBody{}
	if err := json.Unmarshal(body, parsed); err != nil {
		return nil, false
	}
	return parsed, true
}
