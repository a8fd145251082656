package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/operate360/operate360/internal/shared"
)

// DefaultTokenTTL is the lifetime of an issued token.
const DefaultTokenTTL = time.Hour

// Claims is the payload bound into every signed token.
type Claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	RoleID   int64  `json:"roleId"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into the request identity.
func (c *Claims) Principal() shared.Principal {
	return shared.Principal{UserID: c.UserID, Username: c.Username, RoleID: c.RoleID}
}

// TokenCodec signs and verifies HS256 tokens with a process-wide secret.
//
// Expiry is exclusive: a token is accepted while now < exp and rejected from
// the exp instant onwards. exp has one-second precision.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// CodecOption customises a TokenCodec.
type CodecOption func(*TokenCodec)

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) CodecOption {
	return func(c *TokenCodec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTokenCodec constructs a codec. The secret is required.
func NewTokenCodec(secret string, opts ...CodecOption) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("auth: token secret must be provided")
	}
	c := &TokenCodec{secret: []byte(secret), ttl: DefaultTokenTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for the identity and returns it with its expiry.
func (c *TokenCodec) Issue(id Identity) (string, time.Time, error) {
	jti, err := uuid.NewRandom()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: token id: %w", err)
	}
	now := c.now()
	claims := Claims{
		UserID:   id.UserID,
		Username: id.Username,
		RoleID:   id.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks structure, algorithm, signature and expiry. Every failure
// yields shared.ErrInvalidToken.
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return nil, shared.ErrInvalidToken
	}
	return claims, nil
}

// ExpiresAt reads exp without verifying the signature, capped at now+TTL.
// It only sizes revocation entries; never use it for admission.
func (c *TokenCodec) ExpiresAt(token string) time.Time {
	limit := c.now().Add(c.ttl)
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return limit
	}
	if exp := claims.ExpiresAt.Time; exp.Before(limit) {
		return exp
	}
	return limit
}

func (c *TokenCodec) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("auth: unexpected signing method %s", token.Method.Alg())
	}
	return c.secret, nil
}
