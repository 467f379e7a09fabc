// Package identifier normalizes the contact identifiers codes are issued
// against. Issuance and verification must normalize identically or a code
// stored under one form can never be consumed under the other.
package identifier

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/qwiksale/verify-api/internal/domain"
)

// Normalize canonicalizes a raw identifier and reports its channel.
// Emails are trimmed and lowercased; phone numbers are canonicalized to
// Kenyan international digits (2547XXXXXXXX, no plus sign).
func Normalize(raw string) (string, domain.Channel, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("empty identifier: %w", domain.ErrBadRequest)
	}
	if strings.ContainsRune(raw, '@') {
		id, err := NormalizeEmail(raw)
		return id, domain.ChannelEmail, err
	}
	id, err := NormalizePhone(raw)
	return id, domain.ChannelPhone, err
}

// NormalizeEmail lowercases and trims, then checks the address parses.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("invalid email address: %w", domain.ErrBadRequest)
	}
	return email, nil
}

// NormalizePhone strips formatting characters and canonicalizes the common
// Kenyan forms (+2547..., 07..., 7...) to a single 254-prefixed digit string.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r != '+' && r != ' ' && r != '-' && r != '(' && r != ')' {
			return "", fmt.Errorf("invalid phone number: %w", domain.ErrBadRequest)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "254"):
		// already international
	case len(digits) == 10 && digits[0] == '0':
		digits = "254" + digits[1:]
	case len(digits) == 9 && (digits[0] == '7' || digits[0] == '1'):
		digits = "254" + digits
	default:
		return "", fmt.Errorf("invalid phone number: %w", domain.ErrBadRequest)
	}
	return digits, nil
}
