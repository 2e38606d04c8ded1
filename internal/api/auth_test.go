package api

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_tokenRoundTrip(t *testing.T) {
	s := newTestApp(t)

	tokenString, err := s.generateToken("conn-1")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	connectionId, err := s.extractConnectionIdFromToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "conn-1", connectionId)
}

func Test_extractConnectionIdFromToken_invalid(t *testing.T) {
	s := newTestApp(t)

	t.Run("garbage token", func(t *testing.T) {
		_, err := s.extractConnectionIdFromToken("not-a-token")
		assert.Error(t, err)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			connectionIdClaim: "conn-1",
		})
		tokenString, err := token.SignedString([]byte("some-other-key"))
		require.NoError(t, err)

		_, err = s.extractConnectionIdFromToken(tokenString)
		assert.Error(t, err)
	})

	t.Run("missing connection id claim", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{})
		tokenString, err := token.SignedString(s.signingKey)
		require.NoError(t, err)

		_, err = s.extractConnectionIdFromToken(tokenString)
		assert.Error(t, err)
	})
}

func Test_connectionIdContext(t *testing.T) {
	ctx := WithConnectionId(context.Background(), "conn-1")

	id, ok := ConnectionId(ctx)
	assert.True(t, ok)
	assert.Equal(t, "conn-1", id)

	_, ok = ConnectionId(context.Background())
	assert.False(t, ok, "expected missing connection id to report false")
}
