package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashPassword returns the SHA-256 digest of the UTF-8 password as 64 uppercase hex characters.
//
// The digest is unsalted and unkeyed. Stored hashes depend on this exact
// encoding, so changing it requires a data migration.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
