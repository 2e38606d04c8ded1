package config

import (
	"encoding/base64"
	"fmt"
)

type Config struct {
	ServerAddr     string
	AllowedOrigins []string
	SigningKey     []byte
	// EventRateLimit is the number of inbound events a single
	// connection may send per second.
	EventRateLimit int
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, base64Secret string, allowedOrigins []string, eventRateLimit int) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	if eventRateLimit <= 0 {
		return nil, fmt.Errorf("event rate limit must be positive")
	}

	// Decode the base64 encoded signing secret
	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:     serverAddr,
		AllowedOrigins: allowedOrigins,
		SigningKey:     signingKey,
		EventRateLimit: eventRateLimit,
	}, nil
}
