// Package auth implements the bearer-token and password-reset credential
// lifecycle.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenClaims bind a user id to an issuance time and expiry horizon.
type TokenClaims struct {
	jwt.RegisteredClaims
}

// SignToken issues an HS256 token for the given user id.
func SignToken(userID string, secret []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
	})
	return token.SignedString(secret)
}

// VerifyToken checks signature and expiry and returns the subject user id
// along with the issuance time, which the caller compares against the
// user's credential-changed timestamp.
func VerifyToken(tokenString string, secret []byte) (userID string, issuedAt time.Time, err error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		return "", time.Time{}, err
	}
	if !token.Valid || claims.Subject == "" {
		return "", time.Time{}, ErrInvalidToken
	}

	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	return claims.Subject, issuedAt, nil
}
