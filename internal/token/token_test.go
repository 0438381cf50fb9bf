package token_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolgaturan/authgate/internal/token"
)

func newTestManager(t *testing.T) *token.Manager {
	t.Helper()
	return token.NewManager("access-secret", "refresh-secret", 15*time.Minute, 30*24*time.Hour)
}

func TestManager_AccessRoundTrip(t *testing.T) {
	m := newTestManager(t)
	userID := uuid.New()

	signed, err := m.SignAccess(userID, "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := m.VerifyAccess(signed)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestManager_RefreshRoundTrip(t *testing.T) {
	m := newTestManager(t)
	userID := uuid.New()

	signed, err := m.SignRefresh(userID, "alice@example.com")
	require.NoError(t, err)

	claims, err := m.VerifyRefresh(signed)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
}

// Tokens minted back-to-back for the same identity must still differ, or
// rotation within one second would hand out a replacement that hashes to the
// digest of the record just revoked.
func TestManager_SameSecondTokensDiffer(t *testing.T) {
	m := newTestManager(t)
	userID := uuid.New()

	first, err := m.SignRefresh(userID, "alice@example.com")
	require.NoError(t, err)
	second, err := m.SignRefresh(userID, "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	firstAccess, err := m.SignAccess(userID, "alice@example.com")
	require.NoError(t, err)
	secondAccess, err := m.SignAccess(userID, "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, firstAccess, secondAccess)

	claims, err := m.VerifyRefresh(first)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
}

func TestManager_KeyIsolation(t *testing.T) {
	m := newTestManager(t)
	userID := uuid.New()

	accessToken, err := m.SignAccess(userID, "alice@example.com")
	require.NoError(t, err)
	refreshToken, err := m.SignRefresh(userID, "alice@example.com")
	require.NoError(t, err)

	// A token signed with one key must never verify under the other.
	_, err = m.VerifyRefresh(accessToken)
	assert.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = m.VerifyAccess(refreshToken)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestManager_Expired(t *testing.T) {
	m := token.NewManager("access-secret", "refresh-secret", -time.Minute, -time.Minute)
	userID := uuid.New()

	signed, err := m.SignAccess(userID, "alice@example.com")
	require.NoError(t, err)

	_, err = m.VerifyAccess(signed)
	assert.ErrorIs(t, err, token.ErrTokenExpired)
}

func TestManager_BearerPrefix(t *testing.T) {
	m := newTestManager(t)
	userID := uuid.New()

	signed, err := m.SignAccess(userID, "alice@example.com")
	require.NoError(t, err)

	claims, err := m.VerifyAccess("Bearer " + signed)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
}

func TestManager_Garbage(t *testing.T) {
	m := newTestManager(t)

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not a jwt", "not-a-token"},
		{"tampered", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ4In0.invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.VerifyAccess(tt.input)
			assert.ErrorIs(t, err, token.ErrInvalidToken)
		})
	}
}

func TestStripBearer(t *testing.T) {
	assert.Equal(t, "abc", token.StripBearer("Bearer abc"))
	assert.Equal(t, "abc", token.StripBearer("abc"))
	assert.Equal(t, "bearer abc", token.StripBearer("bearer abc"))
}
