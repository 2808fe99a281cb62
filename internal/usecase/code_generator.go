package usecase

import (
	"crypto/rand"
	"io"
)

// CodeGenerator produces candidate redemption tokens. Collisions are expected
// to be negligible but are tolerated: the store's unique constraint is the
// actual uniqueness guarantee.
type CodeGenerator func() (string, error)

// RandomCode creates a secure, random, and human-readable reward code.
// Format: XXXX-XXXX-XXXX
func RandomCode() (string, error) {
	// A character set that avoids ambiguous characters like O/0, I/1, l.
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLength = 12

	buffer := make([]byte, codeLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}

	for i := 0; i < codeLength; i++ {
		buffer[i] = chars[int(buffer[i])%len(chars)]
	}

	return string(buffer[0:4]) + "-" + string(buffer[4:8]) + "-" + string(buffer[8:12]), nil
}
