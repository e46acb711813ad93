package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	icNumberRegex = regexp.MustCompile(`^\d{6}-?\d{2}-?\d{4}$`)
	phoneRegex    = regexp.MustCompile(`^\+?[0-9][0-9 \-]{6,18}$`)
	controlRegex  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateICNumber validates a 12-digit identity card number, with or without dashes (800101-14-5555)
func ValidateICNumber(ic string) error {
	if !icNumberRegex.MatchString(ic) {
		return fmt.Errorf("invalid IC number: %s", ic)
	}
	return nil
}

// NormalizeICNumber strips dashes and spaces so IC numbers compare equal regardless of formatting
func NormalizeICNumber(ic string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(ic))
}

// ValidatePhone validates a phone number
func ValidatePhone(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("invalid phone number: %s", phone)
	}
	return nil
}

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlRegex.ReplaceAllString(s, ""))
}
