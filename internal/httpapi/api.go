package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"bloodbridge.org/internal/auth"
	"bloodbridge.org/internal/obs"
	"bloodbridge.org/internal/rbac"
	"bloodbridge.org/internal/revoke"
	"bloodbridge.org/internal/store"
)

const maxBodyBytes = 1 << 20

// Pinger is anything whose liveness the readiness probe should confirm.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks downstream dependencies for /readyz.
type ReadyProbe struct {
	DB    *sql.DB
	Redis Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	if rp.Redis != nil {
		return rp.Redis.Ping(ctx)
	}
	return nil
}

// API is the HTTP layer. Every protected route passes the Authenticate and
// RequirePermission gate layers before its handler runs.
type API struct {
	tokens   *auth.Service
	cookies  auth.CookiePolicy
	records  store.Store
	denylist revoke.Denylist

	ready      ReadyProbe
	version    string
	production bool

	// Login rate limiting knobs, overridable in tests.
	loginBurst  int
	loginPerSec int
}

// Options carries optional API collaborators.
type Options struct {
	Denylist revoke.Denylist
	Ready    ReadyProbe
	Version  string
}

// New wires the API. The denylist may be nil, in which case rotation and
// natural expiry remain the only refresh token invalidation.
func New(tokens *auth.Service, cookies auth.CookiePolicy, records store.Store, opts Options) *API {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &API{
		tokens:      tokens,
		cookies:     cookies,
		records:     records,
		denylist:    opts.Denylist,
		ready:       opts.Ready,
		version:     version,
		production:  cookies.Production,
		loginBurst:  10,
		loginPerSec: 5,
	}
}

// Handler builds the routed, instrumented handler.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /healthz", a.handleHealthz)
	mux.HandleFunc("GET /readyz", a.handleReadyz)
	mux.Handle("GET /metrics", obs.Handler())

	// Auth endpoints live under the refresh cookie's path scope.
	mux.Handle("POST /api/auth/login", RateLimit(http.HandlerFunc(a.handleLogin), a.loginBurst, a.loginPerSec))
	mux.HandleFunc("POST /api/auth/signup", a.handleSignup)
	mux.HandleFunc("POST /api/auth/refresh", a.handleRefresh)
	mux.HandleFunc("POST /api/auth/logout", a.handleLogout)
	mux.Handle("GET /api/auth/me", a.authenticated(http.HandlerFunc(a.handleMe)))

	// Permission-gated domain endpoints.
	mux.Handle("POST /api/blood-requests",
		a.protected(rbac.PermCreate, "blood-requests", a.handleCreateBloodRequest))
	mux.Handle("GET /api/blood-requests",
		a.protected(rbac.PermRead, "blood-requests", a.handleListBloodRequests))
	mux.Handle("DELETE /api/blood-requests/{id}",
		a.protected(rbac.PermDelete, "blood-requests", a.handleDeleteBloodRequest))
	mux.Handle("GET /api/users",
		a.protected(rbac.PermManageUsers, "users", a.handleListUsers))
	mux.Handle("GET /api/reports/summary",
		a.protected(rbac.PermViewReports, "reports", a.handleReportSummary))

	var handler http.Handler = mux
	handler = MaxBodyBytes(handler, maxBodyBytes)
	handler = CORS(handler)
	handler = SecurityHeaders(a.production)(handler)
	handler = LoggingJSON(handler)
	handler = RequestID(handler)
	return obs.Instrument(handler)
}

// authenticated applies only the token verification layer.
func (a *API) authenticated(next http.Handler) http.Handler {
	return Authenticate(a.tokens)(next)
}

// protected composes both gate layers in order: authentication, then the
// permission check, then the handler.
func (a *API) protected(perm rbac.Permission, resource string, handler http.HandlerFunc) http.Handler {
	return Authenticate(a.tokens)(RequirePermission(perm, resource)(handler))
}

func (a *API) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "bloodbridge-api",
		"version": a.version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.ready.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
