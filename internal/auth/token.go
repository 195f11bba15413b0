package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

const (
	defaultAccessTTL  = 24 * time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	// ErrWrongTokenType is returned when an access token is presented where a
	// refresh token is expected, or the other way round.
	ErrWrongTokenType = errors.New("wrong token type")
	errInvalidClaims  = errors.New("invalid token claims")
)

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager builds a new manager. Non-positive TTLs fall back to 24h/7d.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &TokenManager{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

// WithClock swaps the time source; used by tests.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

// AccessTTL returns the access token lifetime.
func (tm *TokenManager) AccessTTL() time.Duration {
	return tm.accessTTL
}

// Claims describes the JWT payload shared by access and refresh tokens.
// Access tokens carry email and role; refresh tokens carry type=refresh.
type Claims struct {
	UserID string           `json:"userId"`
	Email  string           `json:"email,omitempty"`
	Role   domain.UserRole  `json:"role,omitempty"`
	Type   domain.TokenType `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Token converts the claims into token metadata.
func (c *Claims) Token() domain.Token {
	tokenType := c.Type
	if tokenType == "" {
		tokenType = domain.TokenTypeAccess
	}
	token := domain.Token{ID: c.ID, UserID: c.UserID, Type: tokenType}
	if c.ExpiresAt != nil {
		token.ExpiresAt = c.ExpiresAt.Time
	}
	if c.IssuedAt != nil {
		token.IssuedAt = c.IssuedAt.Time
	}
	return token
}

// TokenPair is the result of every successful authentication.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	IssuedAt         time.Time
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// ExpiresIn returns the access token lifetime in seconds.
func (p TokenPair) ExpiresIn() int64 {
	return int64(p.AccessExpiresAt.Sub(p.IssuedAt) / time.Second)
}

// IssuePair signs an access and a refresh token for the user.
func (tm *TokenManager) IssuePair(user *domain.User) (*TokenPair, error) {
	issuedAt := tm.now().Truncate(time.Second)
	accessExp := issuedAt.Add(tm.accessTTL)
	refreshExp := issuedAt.Add(tm.refreshTTL)

	access, err := tm.sign(&Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	})
	if err != nil {
		return nil, err
	}

	refresh, err := tm.sign(&Claims{
		UserID: user.ID,
		Type:   domain.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		IssuedAt:         issuedAt,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (tm *TokenManager) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
}

// ParseAccessToken validates an access token and returns its claims.
func (tm *TokenManager) ParseAccessToken(tokenStr string) (*Claims, error) {
	claims, err := tm.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Type != "" && claims.Type != domain.TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ParseRefreshToken validates a refresh token and returns its claims.
func (tm *TokenManager) ParseRefreshToken(tokenStr string) (*Claims, error) {
	claims, err := tm.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Type != domain.TokenTypeRefresh {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func (tm *TokenManager) parse(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, errInvalidClaims
	}
	return claims, nil
}
