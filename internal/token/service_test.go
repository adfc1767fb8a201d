package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		AccessSecret:            "access-secret",
		AccessTTL:               15 * time.Minute,
		RefreshSecret:           "refresh-secret",
		RefreshTTL:              7 * 24 * time.Hour,
		EmailVerificationSecret: "verify-secret",
		EmailVerificationTTL:    24 * time.Hour,
		PasswordResetSecret:     "reset-secret",
		PasswordResetTTL:        time.Hour,
	}
}

func testSubject() Subject {
	return Subject{ID: "f1f9c704-7f2e-4d55-9f35-8f2d62c39f41", Email: "ana@x.com", Name: "Ana"}
}

func TestMintVerifyRoundTrip(t *testing.T) {
	svc, err := NewService(testConfig())
	require.NoError(t, err)

	for _, kind := range []Kind{Access, Refresh, EmailVerification, PasswordReset} {
		signed, err := svc.Mint(kind, testSubject())
		require.NoError(t, err, kind)

		claims, err := svc.Verify(kind, signed)
		require.NoError(t, err, kind)
		assert.Equal(t, testSubject().ID, claims.AccountID)
	}
}

func TestClaimSetsPerKind(t *testing.T) {
	svc, err := NewService(testConfig())
	require.NoError(t, err)

	access, err := svc.Mint(Access, testSubject())
	require.NoError(t, err)
	claims, err := svc.Verify(Access, access)
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", claims.Email)
	assert.Equal(t, "Ana", claims.Name)

	refresh, err := svc.Mint(Refresh, testSubject())
	require.NoError(t, err)
	claims, err = svc.Verify(Refresh, refresh)
	require.NoError(t, err)
	assert.Empty(t, claims.Email, "refresh tokens carry only the account id")
	assert.Empty(t, claims.Name)

	verification, err := svc.Mint(EmailVerification, testSubject())
	require.NoError(t, err)
	claims, err = svc.Verify(EmailVerification, verification)
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", claims.Email)
	assert.Empty(t, claims.Name)
}

func TestVerifyRejectsWrongKind(t *testing.T) {
	svc, err := NewService(testConfig())
	require.NoError(t, err)

	access, err := svc.Mint(Access, testSubject())
	require.NoError(t, err)

	_, err = svc.Verify(Refresh, access)
	assert.ErrorIs(t, err, ErrSignature)
}

func TestVerifyRejectsExpired(t *testing.T) {
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewService(testConfig())
	require.NoError(t, err)
	svc.WithNow(func() time.Time { return base })

	access, err := svc.Mint(Access, testSubject())
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return base.Add(16 * time.Minute) })
	_, err = svc.Verify(Access, access)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsMalformedWithoutPanicking(t *testing.T) {
	svc, err := NewService(testConfig())
	require.NoError(t, err)

	for _, input := range []string{"", "garbage", "a.b", "a.b.c", "....."} {
		_, err := svc.Verify(Access, input)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", input)
	}
}

func TestNewServiceRequiresSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshSecret = ""
	_, err := NewService(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.PasswordResetTTL = 0
	_, err = NewService(cfg)
	assert.Error(t, err)
}
