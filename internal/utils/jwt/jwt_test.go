package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyPair(t *testing.T) {
	id := uuid.New()
	pair, err := IssuePair(id, TokenConfig{
		AccessSecret:  "a",
		RefreshSecret: "r",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	claims, err := VerifyPurpose(pair.AccessToken, "a", PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)

	_, err = VerifyPurpose(pair.RefreshToken, "r", PurposeAccess)
	assert.ErrorIs(t, err, ErrWrongPurpose)

	_, err = VerifyToken(pair.AccessToken, "wrong")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	token, err := GenerateAccessToken(uuid.New(), "s", -time.Minute)
	require.NoError(t, err)

	_, err = VerifyToken(token, "s")
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestPurposeToken(t *testing.T) {
	id := uuid.New()
	token, err := GeneratePurposeToken(id, PurposePasswordReset, "s", time.Minute)
	require.NoError(t, err)

	claims, err := VerifyPurpose(token, "s", PurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)

	_, err = VerifyPurpose(token, "s", PurposeAccess)
	assert.ErrorIs(t, err, ErrWrongPurpose)
}
