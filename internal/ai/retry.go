package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"
)

// retryPolicy bounds the attempts of one call. Delays double from base
// with +/- 20% jitter and are capped at max when max is positive; a
// server-provided Retry-After wins over the computed delay.
type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration
}

// run calls attempt until it succeeds, fails for good, or attempts run out.
// attempt reports whether its error is worth another try.
func (p retryPolicy) run(ctx context.Context, attempt func() (retry bool, err error)) error {
	delay := p.base
	var err error
	for i := 1; i <= p.attempts; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var retry bool
		retry, err = attempt()
		if err == nil || !retry || i == p.attempts {
			return err
		}
		wait := withJitter(delay)
		if p.max > 0 && wait > p.max {
			wait = p.max
		}
		var ce *CallError
		if errors.As(err, &ce) && ce.RetryAfter > 0 {
			wait = ce.RetryAfter
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		delay *= 2
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withJitter returns d with +/- 20% jitter; non-positive d means 500ms.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	out := time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
	if out <= 0 {
		return d
	}
	return out
}

// transient reports network failures worth retrying: timeouts and
// connections cut mid-response. Refused connections are final.
func transient(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// retryAfter reads a Retry-After header given in seconds or as an HTTP date.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := parseRetryAfterSeconds(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		return int(max(time.Until(t), 0).Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}
