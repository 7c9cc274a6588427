package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/ecoseed"
	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/id"
	"github.com/xraph/ecoseed/store/memory"
)

func setupServer(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := ecoseed.New(memory.New(),
		ecoseed.WithLogger(logger),
		ecoseed.WithClock(func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }),
	)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = l.Stop() })
	return NewServer(l, append([]Option{WithLogger(logger)}, opts...)...).Handler()
}

func do(t *testing.T, h http.Handler, method, path, member, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if member != "" {
		req.Header.Set(DefaultMemberHeader, member)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestUnauthenticatedRejected(t *testing.T) {
	h := setupServer(t)
	for _, path := range []string{"/", "/profile", "/transactions"} {
		w := do(t, h, http.MethodGet, path, "", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", path, w.Code)
		}
	}
	if w := do(t, h, http.MethodPost, "/earn", "", `{"category":"WALKING","amount":5}`); w.Code != http.StatusUnauthorized {
		t.Errorf("POST /earn = %d, want 401", w.Code)
	}
}

func TestEarnConvertFlow(t *testing.T) {
	h := setupServer(t)

	w := do(t, h, http.MethodPost, "/earn", "alice", `{"category":"walking","amount":50}`)
	if w.Code != http.StatusOK {
		t.Fatalf("earn = %d %s", w.Code, w.Body.String())
	}
	sum := decodeBody[ecoseed.Summary](t, w)
	if sum.CurrentBalance != 50 || sum.TotalEarned != 50 {
		t.Errorf("summary = %+v, want balance 50 earned 50", sum)
	}

	w = do(t, h, http.MethodPost, "/convert", "alice", `{"amount":30}`)
	if w.Code != http.StatusOK {
		t.Fatalf("convert = %d %s", w.Code, w.Body.String())
	}
	sum = decodeBody[ecoseed.Summary](t, w)
	if sum.CurrentBalance != 20 || sum.TotalConverted != 30 || sum.SecondaryBalance != 30 {
		t.Errorf("summary = %+v, want balance 20 converted 30 secondary 30", sum)
	}

	w = do(t, h, http.MethodGet, "/transactions?page=0&size=1", "alice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("history = %d", w.Code)
	}
	page := decodeBody[ecoseed.HistoryPage](t, w)
	if page.TotalElements != 2 || page.TotalPages != 2 || len(page.Entries) != 1 {
		t.Errorf("page = %+v, want 2 elements over 2 pages", page)
	}
	if page.Entries[0].Category != "HANA_MONEY_CONVERSION" {
		t.Errorf("newest category = %s, want HANA_MONEY_CONVERSION", page.Entries[0].Category)
	}

	w = do(t, h, http.MethodGet, "/verify", "alice", "")
	if w.Code != http.StatusOK {
		t.Errorf("verify = %d %s", w.Code, w.Body.String())
	}
}

func TestErrorStatuses(t *testing.T) {
	h := setupServer(t)
	do(t, h, http.MethodPost, "/earn", "bob", `{"category":"WALKING","amount":10}`)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"zero amount", http.MethodPost, "/earn", `{"category":"WALKING","amount":0}`, http.StatusBadRequest},
		{"unknown category", http.MethodPost, "/earn", `{"category":"LOTTERY","amount":1}`, http.StatusBadRequest},
		{"wrong side", http.MethodPost, "/earn", `{"category":"ENVIRONMENT_DONATION","amount":1}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/earn", `{"amount":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/convert", `{"amount":1,"x":2}`, http.StatusBadRequest},
		{"overdraw", http.MethodPost, "/convert", `{"amount":11}`, http.StatusConflict},
		{"bad page", http.MethodGet, "/transactions?page=x", ``, http.StatusBadRequest},
		{"negative page", http.MethodGet, "/transactions?page=-1", ``, http.StatusBadRequest},
		{"bad history category", http.MethodGet, "/transactions/category/NOPE", ``, http.StatusBadRequest},
		{"zero steps", http.MethodPost, "/earn/walking", `{"steps":0}`, http.StatusBadRequest},
		{"empty challenge", http.MethodPost, "/earn/challenge", `{"name":""}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, "bob", tt.body)
			if w.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (%s)", tt.method, tt.path, w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestConvenienceEarns(t *testing.T) {
	h := setupServer(t)

	tests := []struct {
		path string
		body string
		want int64
	}{
		{"/earn/walking", `{"steps":4500}`, 4},
		{"/earn/quiz", `{"quiz_type":"daily"}`, ecoseed.QuizReward},
		{"/earn/challenge", `{"name":"Plogging"}`, ecoseed.ChallengeReward},
	}
	var balance int64
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(t, h, http.MethodPost, tt.path, "cara", tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("%s = %d %s", tt.path, w.Code, w.Body.String())
			}
			balance += tt.want
			if got := decodeBody[ecoseed.Summary](t, w).CurrentBalance; got != balance {
				t.Errorf("balance = %d, want %d", got, balance)
			}
		})
	}
}

func TestHistoryByCategoryRoute(t *testing.T) {
	h := setupServer(t)
	do(t, h, http.MethodPost, "/earn", "dan", `{"category":"WALKING","amount":3}`)
	do(t, h, http.MethodPost, "/earn", "dan", `{"category":"ECO_CHALLENGE","amount":4}`)

	w := do(t, h, http.MethodGet, "/transactions/category/walking", "dan", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	entries := decodeBody[[]map[string]any](t, w)
	if len(entries) != 1 || entries[0]["category"] != "WALKING" {
		t.Errorf("entries = %v, want one WALKING entry", entries)
	}
}

func TestCategoriesPublic(t *testing.T) {
	h := setupServer(t)
	w := do(t, h, http.MethodGet, "/categories", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decodeBody[[]map[string]any](t, w); len(got) == 0 {
		t.Error("categories empty")
	}
}

func TestCustomIdentity(t *testing.T) {
	h := setupServer(t, WithIdentity(IdentityFunc(func(r *http.Request) (string, error) {
		if r.Header.Get("Authorization") != "Bearer ok" {
			return "", errors.New("bad token")
		}
		return "erin", nil
	})))

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer ok")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("good token = %d", w.Code)
	}
	if got := decodeBody[map[string]any](t, w)["member_ref"]; got != "erin" {
		t.Errorf("member_ref = %v, want erin", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", ecoseed.ValidationError{Field: "amount"}, http.StatusBadRequest},
		{"insufficient", ecoseed.ErrInsufficientBalance, http.StatusConflict},
		{"overflow", ecoseed.ErrBalanceOverflow, http.StatusConflict},
		{"committed", &ecoseed.CommittedError{Entry: &entry.Entry{}, Err: ecoseed.ErrProfileNotFound}, http.StatusInternalServerError},
		{"not found", ecoseed.ErrProfileNotFound, http.StatusNotFound},
		{"member not found", ecoseed.ErrMemberNotFound, http.StatusNotFound},
		{"unauthenticated", ecoseed.ErrUnauthenticated, http.StatusUnauthorized},
		{"persistence", &ecoseed.PersistenceError{Op: "x", Err: errors.New("io")}, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCommittedErrorIsNotRetryable(t *testing.T) {
	s := NewServer(ecoseed.New(memory.New()), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	e := &entry.Entry{ID: id.NewEntryID(), Sequence: 3, BalanceAfter: 40}
	err := &ecoseed.CommittedError{Entry: e, Err: &ecoseed.PersistenceError{Op: "sum EARN", Err: errors.New("connection reset")}}

	w := httptest.NewRecorder()
	s.writeErr(w, httptest.NewRequest(http.MethodPost, "/earn", nil), err)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "" {
		t.Errorf("Retry-After = %q, want none", got)
	}
	body := decodeBody[map[string]map[string]any](t, w)["error"]
	if body["type"] != "committed" {
		t.Errorf("type = %v, want committed", body["type"])
	}
	if body["entry_id"] != e.ID.String() || body["balance_after"] != float64(40) {
		t.Errorf("body = %v, want entry %s with balance_after 40", body, e.ID)
	}
}

func TestRequestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := setupServer(t, WithMetrics(reg))
	do(t, h, http.MethodGet, "/categories", "", "")
	do(t, h, http.MethodGet, "/transactions/category/walking", "fay", "")

	n, err := testutil.GatherAndCount(reg, "ecoseed_http_requests_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("series = %d, want 2", n)
	}
}
