package auth

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/JonMunkholm/disha/internal/core"
	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer is the iss claim of every session token.
const TokenIssuer = "disha"

type sessionClaims struct {
	Username string    `json:"username"`
	Role     core.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec signs principals into the value kept in the session slot.
// Tokens carry only id, username and role.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec creates an HS256 codec. An empty secret is replaced by 32
// random bytes, so tokens from a previous process never verify.
func NewTokenCodec(secret []byte) (*TokenCodec, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
	}
	return &TokenCodec{secret: secret, now: time.Now}, nil
}

// Encode signs p. The token expires after the codec's TTL, if one is set.
func (c *TokenCodec) Encode(p core.Principal) (string, error) {
	now := c.now()
	claims := sessionClaims{
		Username: p.Username,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  p.ID,
			Issuer:   TokenIssuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if c.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Decode verifies token and returns the principal it carries. Any failure
// is reported as core.ErrMalformedSession.
func (c *TokenCodec) Decode(token string) (core.Principal, error) {
	claims, err := c.decodeClaims(token)
	if err != nil {
		return core.Principal{}, err
	}
	return core.Principal{
		ID:       claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

func (c *TokenCodec) decodeClaims(token string) (sessionClaims, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return sessionClaims{}, fmt.Errorf("%w: %v", core.ErrMalformedSession, err)
	}

	if claims.Subject == "" || claims.Username == "" || !claims.Role.Valid() {
		return sessionClaims{}, fmt.Errorf("%w: incomplete claims", core.ErrMalformedSession)
	}
	return claims, nil
}
