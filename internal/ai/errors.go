package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Reason classifies a failed collaborator call.
type Reason string

const (
	ReasonAPI           Reason = "api"
	ReasonAuth          Reason = "auth"
	ReasonRateLimited   Reason = "rate_limited"
	ReasonModelNotFound Reason = "model_not_found"
	ReasonBadRequest    Reason = "bad_request"
	ReasonQuota         Reason = "quota_exceeded"
	ReasonServer        Reason = "server"
	ReasonUnreachable   Reason = "unreachable"
)

// CallError is returned by every runtime when a call fails after retries.
// Status is zero for transport failures.
type CallError struct {
	Reason     Reason
	Status     int
	Code       string
	Message    string
	RequestID  string
	RetryAfter time.Duration
	Host       string
	Raw        map[string]any
	Err        error
}

func (e *CallError) Error() string {
	if e == nil {
		return "collaborator call failed"
	}
	var b strings.Builder
	switch e.Reason {
	case ReasonUnreachable:
		b.WriteString("endpoint unreachable")
		if e.Host != "" {
			fmt.Fprintf(&b, " at %s", e.Host)
		}
		if e.Err != nil {
			fmt.Fprintf(&b, ": %v", e.Err)
		}
		return b.String()
	case ReasonRateLimited:
		b.WriteString("rate limited")
		if e.RetryAfter > 0 {
			fmt.Fprintf(&b, " (retry after %ds)", int(e.RetryAfter.Seconds()))
		}
	case ReasonAPI, "":
		b.WriteString("api error")
	default:
		b.WriteString(strings.ReplaceAll(string(e.Reason), "_", " "))
	}
	fmt.Fprintf(&b, ": status=%d", e.Status)
	if e.Code != "" {
		fmt.Fprintf(&b, " code=%s", e.Code)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " request_id=%s", e.RequestID)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " message=%s", e.Message)
	}
	return b.String()
}

func (e *CallError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed.
func (e *CallError) Retryable() bool {
	switch e.Reason {
	case ReasonRateLimited, ReasonServer, ReasonUnreachable:
		return true
	}
	return false
}

// ReasonOf returns the Reason of the first CallError in err's chain, or "".
func ReasonOf(err error) Reason {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ""
}
