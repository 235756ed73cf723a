// Package auth resolves bearer tokens into editorial identities.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/models"
)

var (
	ErrMissingToken = errors.New("token is required")
	ErrInvalidRole  = errors.New("token carries an unknown role")
)

// Claims is the JWT payload; the subject identifies the editor
type Claims struct {
	Role models.Role `json:"role"`
	jwtlib.RegisteredClaims
}

// Resolver signs and verifies HS256 identity tokens
type Resolver struct {
	secret []byte
	issuer string
}

func NewResolver(secret, issuer string) *Resolver {
	return &Resolver{secret: []byte(secret), issuer: issuer}
}

// Sign issues a token for subject with role, valid for ttl
func (r *Resolver) Sign(subject string, role models.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   subject,
			Issuer:    r.issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(r.secret)
}

// Resolve validates a raw Authorization value (with or without the Bearer prefix)
func (r *Resolver) Resolve(raw string) (*models.Identity, error) {
	token := NormalizeToken(raw)
	if token == "" {
		return nil, ErrMissingToken
	}

	opts := []jwtlib.ParserOption{jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()})}
	if r.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(r.issuer))
	}

	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token")
	}
	if !models.ValidRoles[claims.Role] {
		return nil, ErrInvalidRole
	}
	return &models.Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

// NormalizeToken trims spaces and strips an optional Bearer prefix
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
