package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// inviteCodeBytes gives 192 bits of entropy, enough to treat codes as
// unguessable capabilities.
const inviteCodeBytes = 24

// generateInviteCode returns a random URL-safe invite code.
func generateInviteCode() (string, error) {
	buf := make([]byte, inviteCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
