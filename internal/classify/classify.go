package classify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.temporal.io/sdk/temporal"
)

// Category is the kind of collaborator a step talks to.
type Category string

const (
	Network           Category = "network"
	UpstreamSource    Category = "upstream-source"
	GenerationService Category = "generation-service"
	Storage           Category = "storage"
)

// StepError is a classified step failure.
type StepError struct {
	Category   Category
	Retryable  bool
	RetryAfter time.Duration
	Message    string
	Cause      error
}

func (e *StepError) Error() string { return e.Message }

func (e *StepError) Unwrap() error { return e.Cause }

// Temporal converts the error into an application error the workflow runtime
// understands. Fatal errors are non-retryable; retryable errors carry the
// backoff hint as the next retry delay.
func (e *StepError) Temporal() error {
	opts := temporal.ApplicationErrorOptions{
		NonRetryable: !e.Retryable,
		Cause:        e.Cause,
	}
	if e.Retryable {
		opts.NextRetryDelay = e.RetryAfter
	}
	return temporal.NewApplicationErrorWithOptions(e.Message, errorType(e), opts)
}

func errorType(e *StepError) string {
	if e.Retryable {
		return "Retryable:" + string(e.Category)
	}
	return "Fatal:" + string(e.Category)
}

type decision struct {
	retryable bool
	after     time.Duration
}

var fatal = decision{}

func fixed(d time.Duration) decision { return decision{true, d} }

func quadratic(attempt int, unit time.Duration) decision {
	return decision{true, time.Duration(attempt*attempt) * unit}
}

func linear(attempt int, unit time.Duration) decision {
	return decision{true, time.Duration(attempt) * unit}
}

// Classify turns err into a StepError. attempt is the 1-based attempt number
// supplied by the runtime; label is the bracketed context tag in the message.
// Structured error information is consulted first, message patterns second.
func Classify(err error, cat Category, attempt int, label string) *StepError {
	if err == nil {
		return nil
	}
	var se *StepError
	if errors.As(err, &se) {
		return se
	}
	if attempt < 1 {
		attempt = 1
	}
	d, ok := structured(err, cat, attempt)
	if !ok {
		d = bySubstring(strings.ToLower(err.Error()), cat, attempt)
	}
	return &StepError{
		Category:   cat,
		Retryable:  d.retryable,
		RetryAfter: d.after,
		Message:    fmt.Sprintf("[%s] %s", label, err.Error()),
		Cause:      err,
	}
}

// Panic classifies a recovered panic value. Non-error values are always fatal.
func Panic(v any, cat Category, attempt int, label string) *StepError {
	if err, ok := v.(error); ok {
		return Classify(err, cat, attempt, label)
	}
	return &StepError{
		Category: cat,
		Message:  fmt.Sprintf("[%s] panic: %v", label, v),
	}
}

func structured(err error, cat Category, attempt int) (decision, bool) {
	var perm interface{ Permanent() bool }
	if errors.As(err, &perm) && perm.Permanent() {
		return fatal, true
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return byPgCode(pe.Code, attempt), true
	}
	// context.DeadlineExceeded also satisfies net.Error; check it first.
	if errors.Is(err, context.DeadlineExceeded) {
		return byTimeout(cat, attempt), true
	}
	if isNetwork(err) {
		return quadratic(attempt, time.Second), true
	}
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return byStatus(sc.StatusCode(), cat, attempt), true
	}
	return decision{}, false
}

func isNetwork(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ECONNABORTED,
			syscall.ETIMEDOUT, syscall.EHOSTUNREACH, syscall.ENETUNREACH, syscall.EPIPE:
			return true
		}
	}
	return false
}

func byPgCode(code string, attempt int) decision {
	switch {
	case strings.HasPrefix(code, "08"), code == "53300", code == "57P01", code == "57P02", code == "57P03":
		return linear(attempt, 2*time.Second)
	case code == "57014":
		return linear(attempt, 3*time.Second)
	default:
		// Class 23 integrity violations and everything else.
		return fatal
	}
}

func byStatus(status int, cat Category, attempt int) decision {
	switch cat {
	case Network:
		return quadratic(attempt, time.Second)
	case UpstreamSource:
		switch {
		case status >= 500:
			return quadratic(attempt, time.Second)
		case status == 429:
			return fixed(30 * time.Second)
		case status == 408:
			return linear(attempt, 5*time.Second)
		}
		return fatal
	case GenerationService:
		switch {
		case status == 429:
			return fixed(time.Minute)
		case status >= 500:
			return quadratic(attempt, 5*time.Second)
		case status == 400, status == 401, status == 403, status == 422:
			return fatal
		}
		return linear(attempt, 10*time.Second)
	case Storage:
		switch status {
		case 502, 503:
			return linear(attempt, 2*time.Second)
		case 408, 504:
			return linear(attempt, 3*time.Second)
		}
		return fatal
	}
	return fatal
}

func byTimeout(cat Category, attempt int) decision {
	switch cat {
	case UpstreamSource:
		return linear(attempt, 5*time.Second)
	case Storage:
		return linear(attempt, 3*time.Second)
	case GenerationService:
		return linear(attempt, 10*time.Second)
	}
	return quadratic(attempt, time.Second)
}

// A bare "timeout" is not a network pattern; each category has its own rule.
var networkPatterns = []string{
	"econnrefused", "econnreset", "etimedout", "enotfound",
	"connection refused", "connection reset", "no such host",
	"fetch failed", "network", "socket", "i/o timeout",
}

var (
	status5xx = regexp.MustCompile(`\b5\d\d\b`)
	// "rate" as a word, so "generate" or "separate" do not read as rate limits.
	rateLimit = regexp.MustCompile(`\brate\b|\brate[-_]?limit`)
)

func containsAny(msg string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func bySubstring(msg string, cat Category, attempt int) decision {
	if containsAny(msg, networkPatterns...) {
		return quadratic(attempt, time.Second)
	}
	switch cat {
	case Network:
		return quadratic(attempt, time.Second)
	case UpstreamSource:
		switch {
		case status5xx.MatchString(msg):
			return quadratic(attempt, time.Second)
		case strings.Contains(msg, "429") || rateLimit.MatchString(msg):
			return fixed(30 * time.Second)
		case strings.Contains(msg, "timeout"):
			return linear(attempt, 5*time.Second)
		}
		// 401, 403 and unknown upstream failures.
		return fatal
	case GenerationService:
		switch {
		case strings.Contains(msg, "429") || rateLimit.MatchString(msg):
			return fixed(time.Minute)
		case status5xx.MatchString(msg), strings.Contains(msg, "overload"):
			return quadratic(attempt, 5*time.Second)
		case containsAny(msg, "model", "capacity"):
			return linear(attempt, 30*time.Second)
		case containsAny(msg, "invalid", "401", "403"):
			return fatal
		}
		return linear(attempt, 10*time.Second)
	case Storage:
		switch {
		case containsAny(msg, "pool", "connection"):
			return linear(attempt, 2*time.Second)
		case strings.Contains(msg, "timeout"):
			return linear(attempt, 3*time.Second)
		}
		// constraint, duplicate, unique and unknown storage failures.
		return fatal
	}
	return fatal
}
