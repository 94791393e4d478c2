package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseJWT(t *testing.T) {
	token, err := GenerateJWT("profile-1", "secret")
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	require.Equal(t, "profile-1", claims.UserID)
	require.NotEmpty(t, claims.ID)
	require.True(t, claims.ExpiresAt.After(time.Now()))

	_, err = ParseJWT(token, "other-secret")
	require.Error(t, err)

	_, err = ParseJWT("not-a-token", "secret")
	require.Error(t, err)
}

func TestCacheHelpersWithoutRedis(t *testing.T) {
	ctx := context.Background()
	var dest map[string]int

	found, err := GetCache(ctx, nil, "k", &dest)
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, SetCache(ctx, nil, "k", map[string]int{"a": 1}, time.Minute))
	require.NoError(t, DeleteCache(ctx, nil, "k"))

	require.NoError(t, RevokeToken(ctx, nil, "id", time.Now().Add(time.Hour)))
	revoked, err := IsTokenRevoked(ctx, nil, "id")
	require.NoError(t, err)
	require.False(t, revoked)
}
