package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls int
	handler := Idempotency(store, "Idempotency-Key")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"booking":%d}`, calls)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/doctors/id/abc/book", strings.NewReader("{}"))
		req.Header.Set("Idempotency-Key", "retry-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := do()
	second := do()

	if calls != 1 {
		t.Fatalf("handler must run once for a repeated key, ran %d times", calls)
	}
	if second.Code != http.StatusCreated {
		t.Errorf("replay status = %d, want %d", second.Code, http.StatusCreated)
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("replay body %q differs from original %q", second.Body.String(), first.Body.String())
	}
	if second.Header().Get("X-Idempotency-Replay") != "true" {
		t.Error("replay must carry the X-Idempotency-Replay header")
	}
}

func TestIdempotencyIgnoresGetRequests(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls int
	handler := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/doctors", nil)
		req.Header.Set("Idempotency-Key", "same-key")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if calls != 2 {
		t.Errorf("GET requests must not be deduplicated, handler ran %d times", calls)
	}
}

func TestIdempotencyDoesNotCacheFailures(t *testing.T) {
	// A booking that loses the slot race returns 409; if the slot later
	// reopens, a retry with the same key must reach the handler instead
	// of replaying the stale conflict.
	tests := []struct {
		name        string
		firstStatus int
	}{
		{"slot conflict", http.StatusConflict},
		{"validation failure", http.StatusUnprocessableEntity},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewInMemoryIdempotencyStore(time.Minute)
			defer store.Stop()

			var calls int
			handler := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				if calls == 1 {
					w.WriteHeader(tt.firstStatus)
					return
				}
				w.WriteHeader(http.StatusCreated)
			}))

			do := func() *httptest.ResponseRecorder {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/doctors/id/abc/book", strings.NewReader("{}"))
				req.Header.Set("Idempotency-Key", "retry-after-failure")
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				return rec
			}

			do()
			second := do()

			if calls != 2 {
				t.Errorf("a %d must be retryable, handler ran %d times", tt.firstStatus, calls)
			}
			if second.Code != http.StatusCreated {
				t.Errorf("retry after %d got status %d, want %d", tt.firstStatus, second.Code, http.StatusCreated)
			}
		})
	}
}

func TestIdempotencyStoreExpiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore(10 * time.Millisecond)
	defer store.Stop()

	store.Set("key", &CachedResponse{StatusCode: http.StatusOK})
	if _, ok := store.Get("key"); !ok {
		t.Fatal("expected fresh entry to be present")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := store.Get("key"); ok {
		t.Error("expected entry to expire after TTL")
	}
}
