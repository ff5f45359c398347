package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateLockToken returns a random token identifying the holder of a
// table advisory lock for the duration of one request.
func GenerateLockToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate lock token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
