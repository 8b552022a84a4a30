package evaluation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v4"

	"github.com/google/uuid"

	"github.com/vaxcast/vaxcast/internal/domain/dose"
)

func TestParseAsOf(t *testing.T) {
	e := echo.New()

	cases := []struct {
		name    string
		query   string
		want    time.Time
		wantErr bool
	}{
		{"absent means zero", "", time.Time{}, false},
		{"date override", "asOf=2024-06-01", date(2024, time.June, 1), false},
		{"bad format", "asOf=06/01/2024", time.Time{}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
			c := e.NewContext(req, httptest.NewRecorder())

			got, err := parseAsOf(c)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEvaluateHandler_AsOfOverride(t *testing.T) {
	patients, id := seedPatient()
	svc := testService(patients, &mockDoses{history: map[uuid.UUID][]*dose.Dose{}})
	h := NewHandler(svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?asOf=2024-06-01", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	if err := h.Evaluate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.EvaluatedAt.Equal(date(2024, time.June, 1)) {
		t.Errorf("evaluated_at = %v, want the asOf override", result.EvaluatedAt)
	}
}

func TestEvaluateHandler_RejectsBadAsOf(t *testing.T) {
	patients, id := seedPatient()
	svc := testService(patients, &mockDoses{history: map[uuid.UUID][]*dose.Dose{}})
	h := NewHandler(svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?asOf=yesterday", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	err := h.Evaluate(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed asOf, got %v", err)
	}
	if msg, _ := he.Message.(string); !strings.Contains(msg, "asOf") {
		t.Errorf("error message %q does not name the asOf parameter", msg)
	}
}
