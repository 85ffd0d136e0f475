package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeDocServer implements the document store wire protocol in memory.
type fakeDocServer struct {
	mu   sync.Mutex
	docs map[string]string

	failPut bool
	failGet bool
}

func newFakeDocServer() *fakeDocServer {
	return &fakeDocServer{docs: make(map[string]string)}
}

func (f *fakeDocServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /documents", func(w http.ResponseWriter, r *http.Request) {
		if f.failPut {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var doc struct {
			ID   string `json:"id"`
			Data string `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.docs[doc.ID] = doc.Data
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})

	mux.HandleFunc("GET /documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		if f.failGet {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		f.mu.Lock()
		data, ok := f.docs[r.PathValue("id")]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": r.PathValue("id"), "data": data})
	})

	return mux
}

func TestHTTPClient_RoundTrip(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newFakeDocServer().handler())
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx := context.Background()
	if err := c.Put(ctx, "DOC-1", "payload bytes"); err != nil {
		t.Fatalf("put: %v", err)
	}

	data, err := c.Get(ctx, "DOC-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if data != "payload bytes" {
		t.Fatalf("data=%q want %q", data, "payload bytes")
	}
}

func TestHTTPClient_PutFailureStatus(t *testing.T) {
	t.Parallel()

	f := newFakeDocServer()
	f.failPut = true
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	err = c.Put(context.Background(), "DOC-1", "x")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Op != "put" || se.StatusCode != http.StatusInternalServerError {
		t.Fatalf("got %+v", se)
	}
}

func TestHTTPClient_GetMissing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newFakeDocServer().handler())
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = c.Get(context.Background(), "MISSING")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d want 404", se.StatusCode)
	}
}

func TestNewHTTPClient_TrimsTrailingSlash(t *testing.T) {
	t.Parallel()

	c, err := NewHTTPClient("http://docstore.local/")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.addr != "http://docstore.local" {
		t.Fatalf("addr=%q", c.addr)
	}
}

func TestNewHTTPClient_EmptyAddr(t *testing.T) {
	t.Parallel()

	if _, err := NewHTTPClient("   "); err == nil {
		t.Fatalf("expected error for empty address")
	}
}

func TestInMemory_RoundTrip(t *testing.T) {
	t.Parallel()

	s := NewInMemory()
	ctx := context.Background()

	if err := s.Put(ctx, "A", "alpha"); err != nil {
		t.Fatalf("put: %v", err)
	}
	data, err := s.Get(ctx, "A")
	if err != nil || data != "alpha" {
		t.Fatalf("get: %q %v", data, err)
	}
	if _, err := s.Get(ctx, "B"); err == nil {
		t.Fatalf("expected error for unknown id")
	}
}
