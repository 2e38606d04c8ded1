package api

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// Guest sessions: there are no accounts, but the websocket endpoint
// only accepts connections that hold a signed session cookie minted by
// POST /api/session. The token carries nothing but an opaque
// connection id and an expiry.

var (
	defaultExp     = time.Hour * 24
	tokenCookieKey = "token"
)

const connectionIdClaim = "connection-id"

type contextKey string

const connectionIdKey contextKey = "connection-id"

func WithConnectionId(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connectionIdKey, id)
}

func ConnectionId(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(connectionIdKey).(string)
	return id, ok
}

func (s *ChatBrokerApp) generateToken(connectionId string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		connectionIdClaim: connectionId,
		"exp":             time.Now().Add(defaultExp).Unix(),
	})

	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenString, nil
}

func (s *ChatBrokerApp) extractConnectionIdFromToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}

	connectionId, ok := claims[connectionIdClaim].(string)
	if !ok || connectionId == "" {
		return "", fmt.Errorf("invalid connection id claim")
	}

	return connectionId, nil
}
