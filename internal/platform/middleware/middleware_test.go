package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func newContext(e *echo.Echo) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRateLimitExhaustsBurst(t *testing.T) {
	e := echo.New()
	h := RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 2})(okHandler)

	for i := 0; i < 2; i++ {
		c, _ := newContext(e)
		if err := h(c); err != nil {
			t.Fatalf("request %d within burst rejected: %v", i+1, err)
		}
	}

	c, rec := newContext(e)
	err := h(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response missing Retry-After")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Error("429 response missing X-RateLimit-Remaining: 0")
	}
}

func TestRateLimitKeysByAuthSubject(t *testing.T) {
	e := echo.New()
	h := RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})(okHandler)

	c, _ := newContext(e)
	c.Set("auth_subject", "clinician-a")
	if err := h(c); err != nil {
		t.Fatalf("first request rejected: %v", err)
	}

	c, _ = newContext(e)
	c.Set("auth_subject", "clinician-a")
	if err := h(c); err == nil {
		t.Fatal("expected same subject to be throttled")
	}

	// Same IP, different subject: separate bucket.
	c, _ = newContext(e)
	c.Set("auth_subject", "clinician-b")
	if err := h(c); err != nil {
		t.Errorf("different subject throttled: %v", err)
	}
}

func TestRecoveryConvertsPanic(t *testing.T) {
	e := echo.New()
	h := Recovery(zerolog.Nop())(func(c echo.Context) error {
		panic("boom")
	})

	c, _ := newContext(e)
	err := h(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from recovered panic, got %v", err)
	}
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	e := echo.New()
	h := RequestID()(okHandler)

	c, rec := newContext(e)
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rid, _ := c.Get("request_id").(string)
	if rid == "" {
		t.Fatal("no request id generated")
	}
	if rec.Header().Get("X-Request-ID") != rid {
		t.Error("request id not echoed in response header")
	}
}

func TestRequestIDTrustsIncoming(t *testing.T) {
	e := echo.New()
	h := RequestID()(okHandler)

	c, _ := newContext(e)
	c.Request().Header.Set("X-Request-ID", "upstream-42")
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rid, _ := c.Get("request_id").(string); rid != "upstream-42" {
		t.Errorf("request id = %q, want the incoming header value", rid)
	}
}

func TestLoggerLevelFollowsOutcome(t *testing.T) {
	e := echo.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	h := Logger(logger)(okHandler)
	c, _ := newContext(e)
	c.Set("request_id", "req-1")
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	line := buf.String()
	if !strings.Contains(line, `"level":"info"`) || !strings.Contains(line, `"request_id":"req-1"`) {
		t.Errorf("success log line missing info level or request id: %s", line)
	}

	buf.Reset()
	wantErr := errors.New("exploded")
	h = Logger(logger)(func(c echo.Context) error { return wantErr })
	c, _ = newContext(e)
	if err := h(c); !errors.Is(err, wantErr) {
		t.Fatalf("handler error not propagated: %v", err)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("failure log line not at error level: %s", buf.String())
	}
}
