package utils

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name string
		want error
	}{
		{"al", ErrUsernameLength},
		{"abcdefghijklmnopqrstu", ErrUsernameLength},
		{"has space", ErrUsernameCharset},
		{"emoji♞", ErrUsernameCharset},
		{"alice", nil},
		{"bob_the-2nd", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateUsername(tt.name))
		})
	}
}

func TestSanitizeUsername(t *testing.T) {
	assert.Equal(t, "alicesmith", SanitizeUsername("alice.smith@example.com"))
	assert.Equal(t, "bob_1", SanitizeUsername("bob_1"))
	assert.Len(t, SanitizeUsername("averyveryverylongemailaddress@example.com"), MaxUsernameLength-4)
}

func TestGenerateUniqueUsername(t *testing.T) {
	ctx := context.Background()
	taken := map[string]bool{"alice": true}
	lookup := func(_ context.Context, name string) (bool, error) { return taken[name], nil }

	name, err := GenerateUniqueUsername(ctx, "carol", lookup)
	require.NoError(t, err)
	assert.Equal(t, "carol", name)

	name, err = GenerateUniqueUsername(ctx, "alice", lookup)
	require.NoError(t, err)
	assert.NotEqual(t, "alice", name)
	assert.NoError(t, ValidateUsername(name))

	name, err = GenerateUniqueUsername(ctx, "", lookup)
	require.NoError(t, err)
	assert.NoError(t, ValidateUsername(name))

	boom := errors.New("boom")
	_, err = GenerateUniqueUsername(ctx, "dave", func(context.Context, string) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)

	_, err = GenerateUniqueUsername(ctx, "erin", func(context.Context, string) (bool, error) { return true, nil })
	assert.Error(t, err)
}
