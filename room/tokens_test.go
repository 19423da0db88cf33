package room

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DragonWolfLeo/paint-and-chat-server/domain"
)

func TestTokenRegistry_Issue(t *testing.T) {
	tests := []struct {
		name      string
		userName  string
		userColor string
		wantName  string
		wantErr   error
	}{
		{
			name:      "valid profile",
			userName:  "Leo",
			userColor: "#ff0000",
			wantName:  "Leo",
		},
		{
			name:      "name is trimmed",
			userName:  "  Luka  ",
			userColor: "#00ff00",
			wantName:  "Luka",
		},
		{
			name:      "long name is capped",
			userName:  strings.Repeat("a", 30),
			userColor: "#0000ff",
			wantName:  strings.Repeat("a", 20),
		},
		{
			name:      "empty name rejected",
			userName:  "",
			userColor: "#ff0000",
			wantErr:   domain.ErrEmptyName,
		},
		{
			name:      "whitespace-only name rejected",
			userName:  "   ",
			userColor: "#ff0000",
			wantErr:   domain.ErrEmptyName,
		},
		{
			name:     "empty color rejected",
			userName: "Leo",
			wantErr:  domain.ErrEmptyColor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newTokenRegistry()

			token, err := reg.Issue(tt.userName, tt.userColor)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, token)

			assert.True(t, reg.Has(token))
			profile, ok := reg.Resolve(token)
			require.True(t, ok)
			assert.Equal(t, tt.wantName, profile.Name)
			assert.Equal(t, tt.userColor, profile.Color)
		})
	}
}

func TestTokenRegistry_UnknownToken(t *testing.T) {
	reg := newTokenRegistry()

	assert.False(t, reg.Has("nope"))
	_, ok := reg.Resolve("nope")
	assert.False(t, ok)
}

func TestTokenRegistry_TokensAreUnique(t *testing.T) {
	reg := newTokenRegistry()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := reg.Issue("Leo", "#ff0000")
		require.NoError(t, err)
		require.False(t, seen[token])
		seen[token] = true
	}
}

func TestTokenRegistry_ResolveDoesNotConsume(t *testing.T) {
	reg := newTokenRegistry()
	token, err := reg.Issue("Leo", "#ff0000")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		profile, ok := reg.Resolve(token)
		require.True(t, ok)
		assert.Equal(t, "Leo", profile.Name)
	}
	assert.True(t, reg.Has(token))
}
