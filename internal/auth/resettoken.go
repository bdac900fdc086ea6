package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ResetTokenTTL is the validity window of a password-reset token.
const ResetTokenTTL = 10 * time.Minute

// NewResetToken mints a password-reset credential. The plain token is handed
// to the user exactly once (in the emailed link); only its hash and expiry
// are ever persisted.
func NewResetToken() (plain, hashed string, expiresAt time.Time, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", time.Time{}, err
	}
	plain = hex.EncodeToString(buf)
	return plain, HashResetToken(plain), time.Now().Add(ResetTokenTTL), nil
}

// HashResetToken is the one-way transform applied before storage and lookup.
func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
