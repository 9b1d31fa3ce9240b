package fakeapi

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"safeshift/internal/platform/middleware"
	dErrors "safeshift/pkg/domain-errors"
)

// Claims are the access token claims.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues HS256 access tokens and tracks which are still live,
// so logout and RevokeUser take effect before expiry.
type TokenService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time

	mu   sync.Mutex
	live map[string]string // jti -> user id
}

func NewTokenService(signingKey, issuer string, ttl time.Duration) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
		now:        time.Now,
		live:       make(map[string]string),
	}
}

func (s *TokenService) Issue(userID, role string) (string, error) {
	now := s.now()
	jti := uuid.NewString()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        jti,
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.live[jti] = userID
	s.mu.Unlock()
	return signed, nil
}

// ValidateToken implements middleware.TokenValidator.
func (s *TokenService) ValidateToken(tokenString string) (*middleware.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	s.mu.Lock()
	_, live := s.live[claims.ID]
	s.mu.Unlock()
	if !live {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked")
	}
	return &middleware.Claims{UserID: claims.UserID, Role: claims.Role, TokenID: claims.ID}, nil
}

// Revoke invalidates one token by its jti.
func (s *TokenService) Revoke(jti string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, jti)
}

// RevokeUser invalidates every token issued to userID and reports how many.
func (s *TokenService) RevokeUser(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for jti, owner := range s.live {
		if owner == userID {
			delete(s.live, jti)
			n++
		}
	}
	return n
}
