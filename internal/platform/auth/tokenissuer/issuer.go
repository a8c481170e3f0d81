// Package tokenissuer signs and verifies applicant access tokens.
//
// Tokens are HS256 JWTs carrying {id, name, photo} plus exp, iss and aud. The secret, lifetime,
// issuer and audience come from the runtime configuration map on every call.
package tokenissuer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/movement-pass/public-api/internal/domain"
	"github.com/movement-pass/public-api/internal/platform/configcache"
	"github.com/movement-pass/public-api/internal/ports/out/clock"
)

// ErrUnauthorized is the single failure Verify reports for a bad, expired or foreign token.
var ErrUnauthorized = errors.New("unauthorized")

// Claims is the minimal claim set embedded in every token.
type Claims struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Photo string `json:"photo"`
	jwt.RegisteredClaims
}

// Identity is what a verified token proves.
type Identity struct {
	ApplicantID domain.ApplicantID
	Name        string
	Photo       string
	ExpiresAt   time.Time
}

type settings struct {
	secret   []byte
	expire   time.Duration
	issuer   string
	audience string
}

type Issuer struct {
	config *configcache.Cache
	clock  clock.Clock
}

func New(config *configcache.Cache, clk clock.Clock) *Issuer {
	return &Issuer{config: config, clock: clk}
}

func (i *Issuer) settings(ctx context.Context) (settings, error) {
	values, err := i.config.Get(ctx)
	if err != nil {
		return settings{}, err
	}
	secret, err := values.String(configcache.KeyJWTSecret)
	if err != nil {
		return settings{}, err
	}
	expire, err := values.Duration(configcache.KeyJWTExpire)
	if err != nil {
		return settings{}, err
	}
	issuer, err := values.String(configcache.KeyJWTIssuer)
	if err != nil {
		return settings{}, err
	}
	audience, err := values.String(configcache.KeyJWTAudience)
	if err != nil {
		return settings{}, err
	}
	return settings{secret: []byte(secret), expire: expire, issuer: issuer, audience: audience}, nil
}

// Sign issues a token for the applicant.
func (i *Issuer) Sign(ctx context.Context, a domain.Applicant) (string, error) {
	s, err := i.settings(ctx)
	if err != nil {
		return "", err
	}
	now := i.clock.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:    string(a.ID),
		Name:  a.Name,
		Photo: a.Photo,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expire)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates signature, issuer, audience and expiry. Any token problem is reported as
// ErrUnauthorized; configuration failures are returned as-is.
func (i *Issuer) Verify(ctx context.Context, tokenString string) (Identity, error) {
	s, err := i.settings(ctx)
	if err != nil {
		return Identity{}, err
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil || !parsed.Valid || claims.ID == "" {
		return Identity{}, ErrUnauthorized
	}

	out := Identity{
		ApplicantID: domain.ApplicantID(claims.ID),
		Name:        claims.Name,
		Photo:       claims.Photo,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
