package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{ID: "user-1", Email: "a@b.com", Role: domain.UserRoleEndUser}
}

func TestIssuePair_ClaimsAndExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tm := NewTokenManager("secret", 0, 0).WithClock(func() time.Time { return now })

	pair, err := tm.IssuePair(testUser())
	require.NoError(t, err)
	assert.Equal(t, int64(86400), pair.ExpiresIn())
	assert.Equal(t, now.Add(24*time.Hour), pair.AccessExpiresAt)
	assert.Equal(t, now.Add(7*24*time.Hour), pair.RefreshExpiresAt)

	access, err := tm.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", access.UserID)
	assert.Equal(t, "a@b.com", access.Email)
	assert.Equal(t, domain.UserRoleEndUser, access.Role)
	assert.Empty(t, access.Type)
	assert.NotEmpty(t, access.ID)

	refresh, err := tm.ParseRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refresh.UserID)
	assert.Equal(t, domain.TokenTypeRefresh, refresh.Type)
	assert.Empty(t, refresh.Email)
	assert.NotEqual(t, access.ID, refresh.ID)
}

func TestParse_RejectsWrongType(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour, 2*time.Hour)
	pair, err := tm.IssuePair(testUser())
	require.NoError(t, err)

	_, err = tm.ParseRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = tm.ParseAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestParse_RejectsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	tm := NewTokenManager("secret", time.Hour, 2*time.Hour).WithClock(func() time.Time { return clock })

	pair, err := tm.IssuePair(testUser())
	require.NoError(t, err)

	clock = now.Add(90 * time.Minute)
	_, err = tm.ParseAccessToken(pair.AccessToken)
	assert.Error(t, err)
	_, err = tm.ParseRefreshToken(pair.RefreshToken)
	assert.NoError(t, err)
}

func TestParse_RejectsForeignSecret(t *testing.T) {
	pair, err := NewTokenManager("one", 0, 0).IssuePair(testUser())
	require.NoError(t, err)

	_, err = NewTokenManager("two", 0, 0).ParseAccessToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestParse_RejectsGarbage(t *testing.T) {
	_, err := NewTokenManager("secret", 0, 0).ParseAccessToken("not-a-jwt")
	assert.Error(t, err)
}

func TestClaimsToken_DefaultsToAccess(t *testing.T) {
	tm := NewTokenManager("secret", 0, 0)
	pair, err := tm.IssuePair(testUser())
	require.NoError(t, err)

	claims, err := tm.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	token := claims.Token()
	assert.Equal(t, domain.TokenTypeAccess, token.Type)
	assert.True(t, pair.AccessExpiresAt.Equal(token.ExpiresAt))
	assert.Equal(t, "user-1", token.UserID)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("password1", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "password1"))
	assert.Error(t, ComparePassword(hash, "password2"))
}
