package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// helper: new Echo with the middleware and a simple route
func setupEcho(rdb *redis.Client, ttl time.Duration, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(IdempotencyMiddleware(rdb, ttl))
	e.POST("/loans/:loan_id/investments", handler)
	e.GET("/loans/:loan_id/schedule", handler) // for non-mutating bypass test
	return e
}

func mkJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func doReq(t *testing.T, e *echo.Echo, method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, rdb
}

const investURL = "/loans/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa/investments"

func validHeaders() map[string]string {
	return map[string]string{
		"Ax-Request-Id": "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"Ax-Request-At": time.Now().UTC().Format(time.RFC3339),
		"Ax-Actor-Id":   "1111111111111111111111111111111b",
	}
}

// simple handler to exercise respRecorder capture & saveFinal
func okCreatedHandler(c echo.Context) error {
	return c.JSON(http.StatusCreated, map[string]any{"ok": true})
}

func Test_BypassOnGET_NoHeadersRequired(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	e := setupEcho(rdb, 30*time.Second, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "get ok"})
	})
	rec := doReq(t, e, http.MethodGet, "/loans/aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa/schedule", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func Test_ValidationFailures(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	e := setupEcho(rdb, 30*time.Second, okCreatedHandler)

	body := map[string]int{"x": 1}

	cases := []struct {
		name   string
		mutate func(h map[string]string)
	}{
		{"missing Ax-Request-Id", func(h map[string]string) { delete(h, "Ax-Request-Id") }},
		{"invalid Ax-Request-Id", func(h map[string]string) { h["Ax-Request-Id"] = "NOT-VALID" }},
		{"invalid Ax-Request-At", func(h map[string]string) { h["Ax-Request-At"] = "not-a-time" }},
		{"skewed Ax-Request-At", func(h map[string]string) {
			h["Ax-Request-At"] = time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
		}},
		{"missing Ax-Actor-Id", func(h map[string]string) { delete(h, "Ax-Actor-Id") }},
		{"invalid Ax-Actor-Id", func(h map[string]string) { h["Ax-Actor-Id"] = "SHOUTING" }},
	}
	for _, tc := range cases {
		h := validHeaders()
		tc.mutate(h)
		rec := doReq(t, e, http.MethodPost, investURL, mkJSONBody(t, body), h)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s => want 400, got %d", tc.name, rec.Code)
		}
	}
}

func Test_FirstCallRunsHandler_SecondReplays(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()

	calls := 0
	e := setupEcho(rdb, 30*time.Second, func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusCreated, map[string]any{"ok": true, "call": calls})
	})

	h := validHeaders()
	body := map[string]any{"investor_id": h["Ax-Actor-Id"], "amount": 100000}

	rec1 := doReq(t, e, http.MethodPost, investURL, mkJSONBody(t, body), h)
	if rec1.Code != http.StatusCreated {
		t.Fatalf("first call: want 201, got %d", rec1.Code)
	}
	rec2 := doReq(t, e, http.MethodPost, investURL, mkJSONBody(t, body), h)
	if rec2.Code != http.StatusCreated {
		t.Fatalf("replay: want 201, got %d", rec2.Code)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if !bytes.Equal(rec1.Body.Bytes(), rec2.Body.Bytes()) {
		t.Fatalf("replay body differs:\n%s\n%s", rec1.Body.String(), rec2.Body.String())
	}
}

func Test_SameRequestIDDifferentBodyConflicts(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	e := setupEcho(rdb, 30*time.Second, okCreatedHandler)

	h := validHeaders()
	if rec := doReq(t, e, http.MethodPost, investURL, mkJSONBody(t, map[string]int{"amount": 1}), h); rec.Code != http.StatusCreated {
		t.Fatalf("first call: want 201, got %d", rec.Code)
	}
	rec := doReq(t, e, http.MethodPost, investURL, mkJSONBody(t, map[string]int{"amount": 2}), h)
	if rec.Code != http.StatusConflict {
		t.Fatalf("reused id with new body: want 409, got %d", rec.Code)
	}
}

func Test_InProgressConflicts(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	e := setupEcho(rdb, 30*time.Second, okCreatedHandler)

	h := validHeaders()
	body := map[string]int{"amount": 1}

	// Seed a provisional (in-progress) entry by hand.
	entry := idempEntry{InProgress: true, RequestID: h["Ax-Request-Id"], CreatedAt: nowUTC()}
	b, _ := json.Marshal(map[string]int{"amount": 1})
	entry.BodySHA256 = bodyHash(b)
	key := buildKey(http.MethodPost, "/loans/:loan_id/investments", h["Ax-Actor-Id"], h["Ax-Request-Id"])
	payload, _ := json.Marshal(entry)
	if err := rdb.Set(context.Background(), key, payload, provisionalLockTTL).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := doReq(t, e, http.MethodPost, investURL, mkJSONBody(t, body), h)
	if rec.Code != http.StatusConflict {
		t.Fatalf("in-progress: want 409, got %d", rec.Code)
	}
}

func Test_ReplayExpiresWithTTL(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()

	calls := 0
	e := setupEcho(rdb, 5*time.Second, func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusCreated, map[string]any{"call": calls})
	})

	h := validHeaders()
	body := map[string]int{"amount": 1}

	if rec := doReq(t, e, http.MethodPost, investURL, mkJSONBody(t, body), h); rec.Code != http.StatusCreated {
		t.Fatalf("first call failed: %d", rec.Code)
	}
	mr.FastForward(6 * time.Second)

	h["Ax-Request-At"] = time.Now().UTC().Format(time.RFC3339)
	if rec := doReq(t, e, http.MethodPost, investURL, mkJSONBody(t, body), h); rec.Code != http.StatusCreated {
		t.Fatalf("post-TTL call failed: %d", rec.Code)
	}
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2 after TTL expiry", calls)
	}
}
