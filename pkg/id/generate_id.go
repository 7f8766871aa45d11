package id

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

var reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)

// NewID32 returns 32 lowercase hex characters. Used as the public id of
// projects, agencies and outbox events.
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// IsID32 reports whether s has the shape NewID32 produces.
func IsID32(s string) bool { return reHex32.MatchString(s) }
