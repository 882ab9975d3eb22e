package alerts

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewToken returns a 32-byte random token as hex. Used for both the
// verification and management tokens; each subscription gets two distinct
// tokens because they are single-purpose credentials.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
