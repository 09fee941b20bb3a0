package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_GenerateToken(t *testing.T) {
	svc := NewTokenService()

	plain, hash, err := svc.GenerateToken()
	require.NoError(t, err)
	assert.NotEmpty(t, plain)
	assert.Len(t, hash, 64)
	assert.Equal(t, svc.HashToken(plain), hash)

	plain2, hash2, err := svc.GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, plain, plain2)
	assert.NotEqual(t, hash, hash2)
}

func TestTokenService_HashToken(t *testing.T) {
	svc := NewTokenService()

	assert.Equal(t, svc.HashToken("token"), svc.HashToken("token"))
	assert.NotEqual(t, svc.HashToken("token"), svc.HashToken("token2"))
}
