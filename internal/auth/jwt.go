// Package auth issues and verifies the session tokens that gate every
// bucketlist endpoint, hashes passwords, and provides the HTTP middleware
// that turns a token header into an authenticated user id.
//
// TOKEN FORMAT:
// Tokens are HS256-signed JWTs:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"iss":"bucketlist","sub":"42","iat":...,"exp":...,"jti":"..."}
//
// The subject is the decimal user id. Nothing about a token is stored on the
// server, so a token stays usable until it expires. There is no revocation list.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

// Issuer is written into every token and required on validation.
const Issuer = "bucketlist"

// Validation outcomes other than "valid". Expired is reported only for tokens
// whose signature checks out; anything forged or corrupt is ErrTokenInvalid.
var (
	ErrTokenMissing = errors.New("auth: token missing")
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// TokenService handles JWT creation and validation.
//
// The secret never leaves this struct. The clock is injectable so expiry can
// be tested without sleeping.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customises a TokenService.
type Option func(*TokenService)

// WithClock replaces time.Now as the source of issue and validation times.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a TokenService with the given secret and token lifetime.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration, opts ...Option) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token lifetime must be positive")
	}

	s := &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL is the lifetime given to newly issued tokens.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// IssuedToken is a signed token plus the times baked into it.
type IssuedToken struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims is what a valid token proves about its bearer.
type Claims struct {
	UserID    int64
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issue creates and signs a token for userID that expires after the
// service's TTL. Signing errors are returned wrapped; nothing is retried.
func (s *TokenService) Issue(userID int64) (*IssuedToken, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("auth: cannot issue token for user id %d", userID)
	}

	now := s.now()
	rc := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		Issuer:    Issuer,
		ID:        xid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, rc)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("auth: signing token: %w", err)
	}

	return &IssuedToken{
		Token:     signed,
		IssuedAt:  rc.IssuedAt.Time,
		ExpiresAt: rc.ExpiresAt.Time,
	}, nil
}

// Validate parses and verifies a token string.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (checked before any claim)
//   - Algorithm is HS256, which rules out "none" and algorithm confusion
//   - Issuer matches and an expiry is present
//   - Expiry is in the future according to the service clock
//
// The subject must then parse as a positive user id.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrTokenMissing
	}

	var rc jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&rc,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(rc.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("%w: bad subject %q", ErrTokenInvalid, rc.Subject)
	}

	claims := &Claims{UserID: userID, TokenID: rc.ID}
	if rc.IssuedAt != nil {
		claims.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Time
	}
	return claims, nil
}
