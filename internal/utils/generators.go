package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// GenerateOrderID returns a short human-readable order code: "ORDER-" followed
// by 10 uppercase hex characters from 5 cryptographically random bytes.
// Uniqueness is enforced by the payments table constraint, not here.
func GenerateOrderID() string {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// timestamp-derived code rather than panic in the request path.
		return fmt.Sprintf("ORDER-%010X", time.Now().UnixNano()&0xFFFFFFFFFF)
	}
	return "ORDER-" + strings.ToUpper(fmt.Sprintf("%x", buf))
}
