package signer

import (
	"time"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// CheckSecret compares the client-supplied bucket secret against the
// configured bcrypt hash.
func CheckSecret(hash, secret string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return common.ErrorUnauthorized
	}
	return nil
}

// HashSecret produces a bcrypt hash suitable for MEDIAVAULT_SECRET_HASH.
func HashSecret(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type claims struct {
	jwt.RegisteredClaims
	Subject string
}

// GenerateToken issues an HS256 bearer token for subject.
func GenerateToken(subject string, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		Subject: subject,
	})
	return token.SignedString(secretKey)
}

// SubjectFromToken validates tokenString and returns its subject.
func SubjectFromToken(tokenString string, secretKey []byte) (string, error) {
	c := &claims{}

	token, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", common.ErrInvalidToken
	}
	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return c.Subject, nil
}
