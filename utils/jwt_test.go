package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumate-ai/tutor-be/types"
)

func TestAdminTokenRoundTrip(t *testing.T) {
	user := &types.User{
		ID:       "admin-1",
		Username: "admin",
		Role:     types.USER_ROLE_ADMIN,
	}
	token, err := GenerateAdminToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseAdminToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.ID)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, types.USER_ROLE_ADMIN, claims.Role)
	assert.Equal(t, "admin-1", claims.Subject)
}

func TestParseAdminTokenRejectsGarbage(t *testing.T) {
	_, err := ParseAdminToken("not.a.token")
	assert.Error(t, err)
}

func TestGetIdWithoutCheck(t *testing.T) {
	user := &types.User{ID: "u-9", Username: "x", Role: types.USER_ROLE_ADMIN}
	token, err := GenerateAdminToken(user)
	require.NoError(t, err)

	id, err := GetIdWithoutCheck(token)
	require.NoError(t, err)
	assert.Equal(t, "u-9", id)
}
