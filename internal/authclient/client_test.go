package authclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// authServer is a minimal stand-in for the real API: it rejects any bearer
// token other than the current one with the expired signal, and rotates the
// current token on each refresh call.
type authServer struct {
	mu       sync.Mutex
	current  string
	refreshN atomic.Int64
	apiN     atomic.Int64
}

func (s *authServer) currentToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *authServer) rotate(next string) {
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
}

func newAuthServer(t *testing.T, refreshOK bool) (*authServer, *httptest.Server) {
	t.Helper()
	s := &authServer{current: "tok-1"}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "rt-1", Path: "/api/auth", HttpOnly: true})
		json.NewEncoder(w).Encode(map[string]any{"accessToken": s.currentToken()})
	})
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		n := s.refreshN.Add(1)
		if !refreshOK {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"error": "invalid refresh token", "code": "UNAUTHORIZED"})
			return
		}
		if _, err := r.Cookie("refresh_token"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next := "tok-" + string(rune('1'+n))
		s.rotate(next)
		json.NewEncoder(w).Encode(map[string]any{"accessToken": next})
	})
	mux.HandleFunc("GET /api/users", func(w http.ResponseWriter, r *http.Request) {
		s.apiN.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+s.currentToken() {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"error": "access token expired", "code": "TOKEN_EXPIRED", "expired": true})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"items": []string{"u1"}})
	})
	mux.HandleFunc("GET /api/plain401", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"error": "invalid token", "code": "UNAUTHORIZED"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return s, srv
}

func TestRetriesOnceAfterExpiredSignal(t *testing.T) {
	state, srv := newAuthServer(t, true)
	c, err := New(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Login(t.Context(), "a@b.c", "password123"); err != nil {
		t.Fatal(err)
	}

	// Invalidate the client's token server-side so the next call expires.
	state.rotate("tok-rotated")

	var out struct {
		Items []string `json:"items"`
	}
	if err := c.GetJSON(t.Context(), "/api/users", &out); err != nil {
		t.Fatalf("GetJSON after expiry: %v", err)
	}
	if got := state.refreshN.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	if c.AccessToken() != state.currentToken() {
		t.Fatalf("token cell not updated after refresh")
	}
}

func TestConcurrentExpiriesCoalesceIntoOneRefresh(t *testing.T) {
	state, srv := newAuthServer(t, true)
	c, err := New(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Login(t.Context(), "a@b.c", "password123"); err != nil {
		t.Fatal(err)
	}
	state.rotate("tok-rotated")

	const parallel = 5
	errs := make(chan error, parallel)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for range parallel {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			var out struct {
				Items []string `json:"items"`
			}
			errs <- c.GetJSON(t.Context(), "/api/users", &out)
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent request failed: %v", err)
		}
	}
	if got := state.refreshN.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want exactly 1", got)
	}
}

func TestPlain401IsNotRetried(t *testing.T) {
	state, srv := newAuthServer(t, true)
	c, err := New(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	c.SetAccessToken("whatever")

	resp, err := c.Do(t.Context(), http.MethodGet, "/api/plain401", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if got := state.refreshN.Load(); got != 0 {
		t.Fatalf("refresh calls = %d, want 0 for a non-expired 401", got)
	}
	// The body must still be readable by the caller.
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("replayed body unreadable: %v", err)
	}
	if payload.Code != "UNAUTHORIZED" {
		t.Fatalf("code = %q", payload.Code)
	}
}

func TestRefreshFailureEndsSession(t *testing.T) {
	state, srv := newAuthServer(t, false)
	c, err := New(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Login(t.Context(), "a@b.c", "password123"); err != nil {
		t.Fatal(err)
	}
	state.rotate("tok-rotated")

	_, err = c.Do(t.Context(), http.MethodGet, "/api/users", nil)
	var expired *SessionExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("err = %v, want SessionExpiredError", err)
	}
	if expired.IntendedPath != "/api/users" {
		t.Fatalf("IntendedPath = %q", expired.IntendedPath)
	}
	if c.AccessToken() != "" {
		t.Fatalf("token cell should be cleared after failed refresh")
	}
}

func TestLogoutClearsTokenCell(t *testing.T) {
	_, srv := newAuthServer(t, true)
	c, err := New(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	// The stub has no logout route; 404 is still an error but the cell
	// must be cleared regardless.
	c.SetAccessToken("tok-1")
	_ = c.Logout(t.Context())
	if c.AccessToken() != "" {
		t.Fatalf("token cell not cleared on logout")
	}
}
