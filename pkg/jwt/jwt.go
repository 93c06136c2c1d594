package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrEmptySecret = errors.New("jwt: secret vacío")

// Identity quién opera sobre el ledger. BranchID vacío = sin restricción de sucursal.
type Identity struct {
	UserID   string
	BranchID string
	Role     string
}

// claims formato en el token; el user id viaja en sub.
type claims struct {
	jwt.RegisteredClaims
	BranchID string `json:"branch_id,omitempty"`
	Role     string `json:"role"`
}

// Generate firma (HS256) un token para id válido durante ttl.
func Generate(secret, issuer string, id Identity, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		BranchID: id.BranchID,
		Role:     id.Role,
	})
	return token.SignedString([]byte(secret))
}

// Parse valida firma, expiración y, si issuer no está vacío, el emisor.
func Parse(secret, issuer, tokenString string) (Identity, error) {
	if secret == "" {
		return Identity{}, ErrEmptySecret
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	var c claims
	if _, err := jwt.ParseWithClaims(tokenString, &c, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...); err != nil {
		return Identity{}, fmt.Errorf("jwt: %w", err)
	}
	if c.Subject == "" {
		return Identity{}, errors.New("jwt: token sin sub")
	}
	return Identity{UserID: c.Subject, BranchID: c.BranchID, Role: c.Role}, nil
}
