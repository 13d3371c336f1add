package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bloodbridge.org/internal/rbac"
)

const (
	defaultIssuer     = "bloodbridge"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenKind tags a claim with the verification path it is valid for. An access
// token must never validate as a refresh token: a leaked short-lived credential
// would otherwise be replayable as a 7-day one.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims is the signed identity embedded in both token kinds.
type Claims struct {
	Role rbac.Role `json:"role"`
	Kind TokenKind `json:"token_kind"`
	jwt.RegisteredClaims
}

// Service signs and verifies access and refresh tokens. It is pure: no
// storage, no revocation list. Rotation plus natural expiry is the only
// invalidation mechanism, so every refresh must mint fresh token strings.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) {
		if v := strings.TrimSpace(issuer); v != "" {
			s.issuer = v
		}
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for expiry boundary tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service. The two secrets must be set and must
// differ: a compromised access-signing key must not be able to mint
// long-lived refresh tokens.
func NewService(accessSecret, refreshSecret string, opts ...ServiceOption) (*Service, error) {
	accessSecret = strings.TrimSpace(accessSecret)
	refreshSecret = strings.TrimSpace(refreshSecret)
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: access and refresh secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	svc := &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        defaultIssuer,
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccessToken signs a short-lived access token for the subject.
func (s *Service) IssueAccessToken(subjectID string, role rbac.Role) (string, error) {
	return s.issue(subjectID, role, KindAccess, s.accessSecret, s.accessTTL)
}

// IssueRefreshToken signs a long-lived refresh token for the subject. Each
// call embeds a fresh jti, so two issued tokens are never byte-identical.
func (s *Service) IssueRefreshToken(subjectID string, role rbac.Role) (string, error) {
	return s.issue(subjectID, role, KindRefresh, s.refreshSecret, s.refreshTTL)
}

func (s *Service) issue(subjectID string, role rbac.Role, kind TokenKind, secret []byte, ttl time.Duration) (string, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return "", errors.New("auth: subject id is required")
	}
	if !role.Valid() {
		return "", errors.New("auth: unknown role")
	}

	now := s.now().UTC()
	claims := Claims{
		Role: role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccessToken validates signature, expiry and kind for an access token.
func (s *Service) VerifyAccessToken(token string) (*Claims, error) {
	return s.verify(token, KindAccess, s.accessSecret)
}

// VerifyRefreshToken validates signature, expiry and kind for a refresh token.
func (s *Service) VerifyRefreshToken(token string) (*Claims, error) {
	return s.verify(token, KindRefresh, s.refreshSecret)
}

func (s *Service) verify(token string, kind TokenKind, secret []byte) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, ErrWrongTokenKind
	}
	if strings.TrimSpace(claims.Subject) == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
