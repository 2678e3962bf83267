package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/freightdesk/freightdesk-backend/pkg/config"
	pkgerrors "github.com/freightdesk/freightdesk-backend/pkg/errors"
)

type fakeWindowStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeWindowStore() *fakeWindowStore {
	return &fakeWindowStore{counts: map[string]int64{}}
}

func (f *fakeWindowStore) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func loginRequest(email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = remote
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestLoginRateLimitPassesBodyThrough(t *testing.T) {
	cfg := config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 2, LoginEmailLimit: 2}
	handler := LoginRateLimit(cfg, newFakeWindowStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !strings.Contains(string(body), `"email":"dispatch@freightdesk.in"`) {
			t.Fatalf("unexpected body: %s", body)
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("dispatch@freightdesk.in", "10.0.0.1:5000"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestLoginRateLimitScopesByIPAndEmailHash(t *testing.T) {
	store := newFakeWindowStore()
	cfg := config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 5, LoginEmailLimit: 5}
	handler := LoginRateLimit(cfg, store, nil)(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), loginRequest(" Ops@FreightDesk.in ", "10.0.0.1:5000"))

	ipScope := "login:ip:10.0.0.1"
	emailScope := "login:email:" + hashValue("ops@freightdesk.in")
	if store.counts[ipScope] != 1 || store.counts[emailScope] != 1 {
		t.Fatalf("unexpected scopes %v", store.counts)
	}
	for scope := range store.counts {
		if strings.Contains(scope, "@") {
			t.Fatalf("raw email leaked into scope %q", scope)
		}
	}
}

func TestLoginRateLimitEmailLimitAnswers429(t *testing.T) {
	cfg := config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginEmailLimit: 2}
	handler := LoginRateLimit(cfg, newFakeWindowStore(), nil)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		// a fresh IP each time: only the email counter can trip
		handler.ServeHTTP(rec, loginRequest("blocked@freightdesk.in", fmt.Sprintf("10.0.0.%d:5000", i+1)))

		if i < 2 {
			if rec.Code != http.StatusOK {
				t.Fatalf("attempt %d: expected 200, got %d", i, rec.Code)
			}
			continue
		}
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") != "60" {
			t.Fatalf("expected Retry-After 60, got %q", rec.Header().Get("Retry-After"))
		}
		var payload struct {
			Error struct {
				Code    string            `json:"code"`
				Details map[string]string `json:"details"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if payload.Error.Code != string(pkgerrors.CodeRateLimit) || payload.Error.Details["scope"] != "email" {
			t.Fatalf("unexpected error body %+v", payload.Error)
		}
	}
}

func TestLoginRateLimitIPLimitUsesForwardedFor(t *testing.T) {
	cfg := config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 1}
	handler := LoginRateLimit(cfg, newFakeWindowStore(), nil)(okHandler())

	for i, email := range []string{"a@freightdesk.in", "b@freightdesk.in"} {
		req := loginRequest(email, "172.16.0.9:443")
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 172.16.0.9")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		want := http.StatusOK
		if i == 1 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Fatalf("attempt %d: expected %d, got %d", i, want, rec.Code)
		}
	}
}

func TestLoginRateLimitStoreFailureIs503(t *testing.T) {
	store := newFakeWindowStore()
	store.err = errors.New("redis down")
	cfg := config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 1}
	handler := LoginRateLimit(cfg, store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("ops@freightdesk.in", "10.0.0.1:5000"))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestLoginRateLimitDisabledWithoutWindow(t *testing.T) {
	store := newFakeWindowStore()
	handler := LoginRateLimit(config.AuthRateLimitConfig{LoginIPLimit: 1}, store, nil)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("ops@freightdesk.in", "10.0.0.1:5000"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected pass-through, got %d", rec.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("store should not be touched, got %v", store.counts)
	}
}
