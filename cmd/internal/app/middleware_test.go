package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithRequestLogging_SetsRequestID(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := WithRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), log)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	id := rec.Header().Get("X-Request-Id")
	if len(id) != 26 {
		t.Fatalf("X-Request-Id=%q, want a 26-char ULID", id)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestWithRequestLogging_UniqueIDs(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := WithRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), log)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		id := rec.Header().Get("X-Request-Id")
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}

func TestLoggingResponseWriter_CapturesStatusAndBytes(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	lrw := &loggingResponseWriter{ResponseWriter: rec, status: http.StatusOK}

	lrw.WriteHeader(http.StatusTeapot)
	n, err := lrw.Write([]byte("short and stout"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	if lrw.status != http.StatusTeapot {
		t.Fatalf("status=%d want 418", lrw.status)
	}
	if lrw.bytes != int64(n) || lrw.bytes != 15 {
		t.Fatalf("bytes=%d want 15", lrw.bytes)
	}
}
