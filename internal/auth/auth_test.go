package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	a := New("test-secret")
	userID := uuid.New()

	token, err := a.GenerateToken(userID, RoleAdmin)
	require.NoError(t, err)

	claims, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestParseRejectsForeignSecret(t *testing.T) {
	token, err := New("one").GenerateToken(uuid.New(), "")
	require.NoError(t, err)

	_, err = New("two").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	a := New("test-secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
		UserID:           uuid.New(),
	})
	signed, err := token.SignedString(a.secret)
	require.NoError(t, err)

	_, err = a.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsMissingUser(t *testing.T) {
	a := New("test-secret")
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString(a.secret)
	require.NoError(t, err)

	_, err = a.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
