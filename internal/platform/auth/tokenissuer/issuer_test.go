package tokenissuer_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memclock "github.com/movement-pass/public-api/internal/adapters/memory/clock"
	memparams "github.com/movement-pass/public-api/internal/adapters/memory/paramsource"
	"github.com/movement-pass/public-api/internal/domain"
	"github.com/movement-pass/public-api/internal/platform/auth/tokenissuer"
	"github.com/movement-pass/public-api/internal/platform/configcache"
)

const root = "/movement-pass/v1"

func newIssuer(t *testing.T, values map[string]string) (*tokenissuer.Issuer, *memclock.ManualClock) {
	t.Helper()
	base := map[string]string{
		configcache.KeyJWTSecret:   "0123456789abcdef0123456789abcdef",
		configcache.KeyJWTExpire:   "3600",
		configcache.KeyJWTIssuer:   "movement-pass",
		configcache.KeyJWTAudience: "public",
	}
	for k, v := range values {
		base[k] = v
	}
	clk := memclock.NewManualClock(time.Date(2021, time.May, 1, 8, 0, 0, 0, time.UTC))
	cache := configcache.New(memparams.NewUnderRoot(root, base), root)
	return tokenissuer.New(cache, clk), clk
}

func applicant() domain.Applicant {
	return domain.Applicant{ID: "01712345678", Name: "Rahima Khatun", Photo: "https://p.example.com/a.png"}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	iss, _ := newIssuer(t, nil)
	token, err := iss.Sign(context.Background(), applicant())
	require.NoError(t, err)

	id, err := iss.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicantID("01712345678"), id.ApplicantID)
	assert.Equal(t, "Rahima Khatun", id.Name)
	assert.Equal(t, "https://p.example.com/a.png", id.Photo)
	assert.Equal(t, time.Date(2021, time.May, 1, 9, 0, 0, 0, time.UTC), id.ExpiresAt.UTC())
}

func TestSign_EmbedsMinimalClaims(t *testing.T) {
	t.Parallel()

	iss, _ := newIssuer(t, nil)
	token, err := iss.Sign(context.Background(), applicant())
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)

	for _, k := range []string{"id", "name", "photo", "exp", "iss", "aud"} {
		assert.Contains(t, claims, k)
	}
	assert.NotContains(t, claims, "dateOfBirth")
	assert.NotContains(t, claims, "idNumber")
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	iss, clk := newIssuer(t, nil)
	token, err := iss.Sign(context.Background(), applicant())
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	_, err = iss.Verify(context.Background(), token)
	assert.ErrorIs(t, err, tokenissuer.ErrUnauthorized)
}

func TestVerify_RejectsForeignTokens(t *testing.T) {
	t.Parallel()

	iss, _ := newIssuer(t, nil)
	otherAudience, _ := newIssuer(t, map[string]string{configcache.KeyJWTAudience: "admin"})
	otherSecret, _ := newIssuer(t, map[string]string{configcache.KeyJWTSecret: "ffffffffffffffffffffffffffffffff"})

	for name, signer := range map[string]*tokenissuer.Issuer{"audience": otherAudience, "secret": otherSecret} {
		token, err := signer.Sign(context.Background(), applicant())
		require.NoError(t, err, name)
		_, err = iss.Verify(context.Background(), token)
		assert.ErrorIs(t, err, tokenissuer.ErrUnauthorized, name)
	}

	_, err := iss.Verify(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, tokenissuer.ErrUnauthorized)
}

func TestSign_MissingConfig(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(time.Now())
	cache := configcache.New(memparams.NewUnderRoot(root, map[string]string{}), root)
	_, err := tokenissuer.New(cache, clk).Sign(context.Background(), applicant())
	assert.ErrorIs(t, err, configcache.ErrMissingKey)
}
