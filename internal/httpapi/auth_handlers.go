package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"bloodbridge.org/internal/audit"
	"bloodbridge.org/internal/auth"
	"bloodbridge.org/internal/obs"
	"bloodbridge.org/internal/rbac"
	"bloodbridge.org/internal/store"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginResponse struct {
	AccessToken string      `json:"accessToken"`
	ExpiresIn   int         `json:"expiresIn"`
	User        userPayload `json:"user"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

// rejectLogin sends the one generic credential failure. Unknown email and
// wrong password must produce byte-identical responses so the endpoint cannot
// be used to enumerate accounts.
func rejectLogin(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid email or password")
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "email and password are required")
		return
	}

	user, err := a.records.Users().FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			audit.Denied(r.Context(), "", "login", "auth", "", "unknown email")
			rejectLogin(w)
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternal, "login failed")
		return
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		audit.Denied(r.Context(), string(user.Role), "login", "auth", user.ID, "wrong password")
		rejectLogin(w)
		return
	}

	accessToken, err := a.tokens.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "login failed")
		return
	}
	refreshToken, err := a.tokens.IssueRefreshToken(user.ID, user.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "login failed")
		return
	}

	audit.Allowed(r.Context(), string(user.Role), "login", "auth", user.ID)
	http.SetCookie(w, a.cookies.RefreshCookie(refreshToken))
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(a.tokens.AccessTTL().Seconds()),
		User:        userPayload{ID: user.ID, Email: user.Email, Role: string(user.Role)},
	})
}

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	BloodType string `json:"bloodType"`
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, codeBadRequest, "valid email is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "password must be at least 8 characters")
		return
	}
	role, ok := rbac.ParseRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, codeBadRequest, "unknown role")
		return
	}
	// Nobody signs themselves up as an administrator.
	if role == rbac.RoleAdmin {
		writeError(w, http.StatusBadRequest, codeBadRequest, "unknown role")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "signup failed")
		return
	}
	user := &store.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		BloodType:    strings.TrimSpace(req.BloodType),
	}
	if err := a.records.Users().Create(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, codeConflict, "email is already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternal, "signup failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user": userPayload{ID: user.ID, Email: user.Email, Role: string(user.Role)},
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		obs.CountTokenRefresh("rejected")
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "refresh token missing")
		return
	}

	claims, err := a.tokens.VerifyRefreshToken(cookie.Value)
	if err != nil {
		obs.CountTokenRefresh("rejected")
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid refresh token")
		return
	}

	if a.denylist != nil {
		revoked, err := a.denylist.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternal, "refresh failed")
			return
		}
		if revoked {
			obs.CountTokenRefresh("rejected")
			audit.Denied(r.Context(), string(claims.Role), "refresh", "auth", claims.Subject, "refresh token revoked")
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid refresh token")
			return
		}
	}

	accessToken, err := a.tokens.IssueAccessToken(claims.Subject, claims.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "refresh failed")
		return
	}
	refreshToken, err := a.tokens.IssueRefreshToken(claims.Subject, claims.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "refresh failed")
		return
	}

	// Rotation: the presented token is never reissued. With a denylist the
	// old jti is also retired until its natural expiry.
	if a.denylist != nil {
		if err := a.denylist.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			writeError(w, http.StatusInternalServerError, codeInternal, "refresh failed")
			return
		}
	}

	obs.CountTokenRefresh("rotated")
	http.SetCookie(w, a.cookies.RefreshCookie(refreshToken))
	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(a.tokens.AccessTTL().Seconds()),
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Best effort: retire the presented refresh token if there is one and a
	// denylist is configured. Logout always succeeds regardless.
	if a.denylist != nil {
		if cookie, err := r.Cookie(auth.RefreshCookieName); err == nil && cookie.Value != "" {
			if claims, err := a.tokens.VerifyRefreshToken(cookie.Value); err == nil {
				_ = a.denylist.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time)
			}
		}
	}

	http.SetCookie(w, a.cookies.ClearRefreshCookie())
	writeJSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId": identity.UserID,
		"role":   string(identity.Role),
	})
}
