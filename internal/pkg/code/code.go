package code

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Length is the fixed number of digits in a code.
const Length = 6

// New generates a uniformly distributed 6-digit code in 100000..999999.
// The additive floor rules out leading zeros, so the string form always has
// exactly Length digits.
func New() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%d", 100000+n.Int64()), nil
}

// Valid reports whether s is syntactically a code: exactly Length digits.
// Called before any store lookup so malformed input never touches a backend.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
