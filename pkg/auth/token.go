package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/julienlmr/gameshelf-backend/pkg/config"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
)

// MintAccessToken issues a signed HS256 JWT for the given payload.
func MintAccessToken(cfg config.JWTConfig, payload AccessTokenPayload) (string, error) {
	now := time.Now().UTC()
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute
	claims := AccessTokenClaims{
		UserID:      payload.UserID,
		DisplayName: payload.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        payload.JTI,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to sign access token")
	}
	return signed, nil
}

// ParseAccessToken verifies the signature and standard claims of a token
// and returns its typed claims.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	return parseAccessToken(cfg, raw, true)
}

// ParseAccessTokenAllowExpired verifies everything except expiry. It is
// used on the refresh path, where the access token may already be stale.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	return parseAccessToken(cfg, raw, false)
}

func parseAccessToken(cfg config.JWTConfig, raw string, requireFresh bool) (*AccessTokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	}
	if !requireFresh {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &AccessTokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}
	if !token.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	// WithoutClaimsValidation skips everything, so re-check the issuer
	// on the refresh path.
	if !requireFresh && claims.Issuer != cfg.Issuer {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token issuer")
	}

	return claims, nil
}
