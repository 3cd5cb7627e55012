package classify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.temporal.io/sdk/temporal"
)

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) StatusCode() int { return int(s) }

func TestSubstringRules(t *testing.T) {
	cases := []struct {
		name    string
		msg     string
		cat     Category
		attempt int
		retry   bool
		after   time.Duration
	}{
		{"upstream 429", "upstream returned 429 Too Many Requests", UpstreamSource, 2, true, 30 * time.Second},
		{"upstream rate", "rate limit exceeded", UpstreamSource, 1, true, 30 * time.Second},
		{"upstream 5xx", "bad gateway 502", UpstreamSource, 2, true, 4 * time.Second},
		{"upstream timeout", "request timeout after 30s", UpstreamSource, 3, true, 15 * time.Second},
		{"upstream auth", "401 unauthorized", UpstreamSource, 1, false, 0},
		{"upstream unknown", "unexpected EOF in archive", UpstreamSource, 1, false, 0},
		{"generation rate", "429", GenerationService, 4, true, time.Minute},
		{"generation overload", "model overloaded", GenerationService, 2, true, 20 * time.Second},
		{"generation capacity", "insufficient capacity", GenerationService, 2, true, 60 * time.Second},
		{"generation invalid", "invalid prompt", GenerationService, 1, false, 0},
		{"generation default", "something odd", GenerationService, 3, true, 30 * time.Second},
		{"generation word rate", "failed to generate summary", GenerationService, 1, true, 10 * time.Second},
		{"storage pool", "pool exhausted", Storage, 2, true, 4 * time.Second},
		{"storage timeout", "statement timeout", Storage, 2, true, 6 * time.Second},
		{"storage duplicate", "duplicate key value violates unique constraint", Storage, 1, false, 0},
		{"storage unknown", "relation does not exist", Storage, 1, false, 0},
		{"network wins", "dial tcp: connection refused", Storage, 3, true, 9 * time.Second},
		{"fetch failed", "fetch failed", UpstreamSource, 1, true, time.Second},
	}
	for _, tc := range cases {
		se := Classify(errors.New(tc.msg), tc.cat, tc.attempt, "coe")
		if se.Retryable != tc.retry || se.RetryAfter != tc.after {
			t.Fatalf("%s: got retry=%v after=%v want retry=%v after=%v", tc.name, se.Retryable, se.RetryAfter, tc.retry, tc.after)
		}
		if se.Category != tc.cat {
			t.Fatalf("%s: category %s", tc.name, se.Category)
		}
	}
}

func TestNetworkBackoffMonotonic(t *testing.T) {
	err := errors.New("socket hang up")
	b1 := Classify(err, UpstreamSource, 1, "x").RetryAfter
	b3 := Classify(err, UpstreamSource, 3, "x").RetryAfter
	if b1 != time.Second || b3 != 9*time.Second || b3 <= b1 {
		t.Fatalf("b1=%v b3=%v", b1, b3)
	}
}

func TestDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		a := Classify(errors.New("HTTP 429"), UpstreamSource, 1, "x")
		if !a.Retryable || a.RetryAfter != 30*time.Second {
			t.Fatalf("429: %+v", a)
		}
		b := Classify(errors.New("duplicate key"), Storage, 1, "x")
		if b.Retryable {
			t.Fatalf("duplicate: %+v", b)
		}
	}
}

func TestStructuredStatusBeforeSubstring(t *testing.T) {
	// The message says "rate" but the status says auth failure.
	err := fmt.Errorf("rate endpoint: %w", statusErr(403))
	if se := Classify(err, UpstreamSource, 1, "x"); se.Retryable {
		t.Fatalf("403 must be fatal: %+v", se)
	}
	if se := Classify(statusErr(503), GenerationService, 2, "x"); !se.Retryable || se.RetryAfter != 20*time.Second {
		t.Fatalf("503 generation: %+v", se)
	}
	if se := Classify(statusErr(404), GenerationService, 2, "x"); !se.Retryable || se.RetryAfter != 20*time.Second {
		t.Fatalf("404 generation default: %+v", se)
	}
}

type permanentErr struct{ msg string }

func (p permanentErr) Error() string   { return p.msg }
func (p permanentErr) Permanent() bool { return true }

func TestPermanentErrorsAreFatal(t *testing.T) {
	// Line numbers in the message would otherwise read as 5xx or 429.
	for _, msg := range []string{"parse M03.csv: line 1429: make: empty", "parse M03.csv: line 512: bad"} {
		err := fmt.Errorf("process: %w", permanentErr{msg})
		if se := Classify(err, UpstreamSource, 1, "registrations"); se.Retryable {
			t.Fatalf("%q must be fatal: %+v", msg, se)
		}
		if se := Classify(errors.New(msg), UpstreamSource, 1, "registrations"); !se.Retryable {
			t.Fatalf("plain %q follows the message rules: %+v", msg, se)
		}
	}
}

func TestPgCodes(t *testing.T) {
	cases := []struct {
		code  string
		retry bool
		after time.Duration
	}{
		{"08006", true, 2 * time.Second},
		{"53300", true, 2 * time.Second},
		{"57014", true, 3 * time.Second},
		{"23505", false, 0},
		{"42P01", false, 0},
	}
	for _, tc := range cases {
		err := fmt.Errorf("insert cars: %w", &pgconn.PgError{Code: tc.code, Message: "x"})
		se := Classify(err, Storage, 1, "registrations")
		if se.Retryable != tc.retry || se.RetryAfter != tc.after {
			t.Fatalf("%s: %+v", tc.code, se)
		}
	}
}

func TestNetworkStructured(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	if se := Classify(opErr, Storage, 2, "x"); !se.Retryable || se.RetryAfter != 4*time.Second {
		t.Fatalf("op error: %+v", se)
	}
	if se := Classify(fmt.Errorf("read: %w", syscall.ECONNRESET), GenerationService, 1, "x"); !se.Retryable || se.RetryAfter != time.Second {
		t.Fatalf("errno: %+v", se)
	}
	if se := Classify(context.DeadlineExceeded, Storage, 2, "x"); !se.Retryable || se.RetryAfter != 6*time.Second {
		t.Fatalf("deadline: %+v", se)
	}
}

func TestMessagePrefixAndIdempotence(t *testing.T) {
	se := Classify(errors.New("boom"), Storage, 1, "deregistrations")
	if se.Error() != "[deregistrations] boom" {
		t.Fatalf("message %q", se.Error())
	}
	if again := Classify(fmt.Errorf("wrapped: %w", se), Network, 5, "other"); again != se {
		t.Fatalf("already classified errors must pass through")
	}
	if Classify(nil, Storage, 1, "x") != nil {
		t.Fatalf("nil in, nil out")
	}
}

func TestPanicValues(t *testing.T) {
	se := Panic("kaboom", GenerationService, 1, "coe")
	if se.Retryable || !strings.Contains(se.Message, "kaboom") {
		t.Fatalf("string panic must be fatal: %+v", se)
	}
	se = Panic(errors.New("socket closed"), Storage, 1, "coe")
	if !se.Retryable {
		t.Fatalf("error panic classified by rules: %+v", se)
	}
}

func TestTemporalConversion(t *testing.T) {
	fatal := (&StepError{Category: Storage, Message: "[x] dup"}).Temporal()
	var ae *temporal.ApplicationError
	if !errors.As(fatal, &ae) || !ae.NonRetryable() {
		t.Fatalf("fatal conversion: %v", fatal)
	}
	retry := (&StepError{Category: Network, Retryable: true, RetryAfter: 4 * time.Second, Message: "[x] reset"}).Temporal()
	if !errors.As(retry, &ae) || ae.NonRetryable() {
		t.Fatalf("retryable conversion: %v", retry)
	}
	if ae.Type() != "Retryable:network" {
		t.Fatalf("type %q", ae.Type())
	}
}
