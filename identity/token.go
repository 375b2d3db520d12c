package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// TokenClaims are the access-token claims the client core cares about.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// ParseAccessToken extracts the subject and expiry from a JWT access token
// without verifying its signature. Verification is the data service's job;
// the client only needs the claims to know who the session belongs to and
// when to expect a refresh.
func ParseAccessToken(raw string) (*TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, errors.Wrap(err, "[ParseAccessToken] not a JWT")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("[ParseAccessToken] token has no subject")
	}

	tc := &TokenClaims{Subject: sub}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tc.ExpiresAt = exp.Time
	}
	return tc, nil
}
