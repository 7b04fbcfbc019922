package utils

import (
	"errors"
	"strings"
)

// ErrLicenseTooShort is returned when a licence id has fewer than four
// characters after normalization.
var ErrLicenseTooShort = errors.New("license id must be at least 4 characters")

// NormalizeLicenseID trims surrounding whitespace and upper-cases a rider's
// licence id.  Normalization is idempotent: feeding a normalized value back
// in yields the same string.
func NormalizeLicenseID(raw string) (string, error) {
	lic := strings.ToUpper(strings.TrimSpace(raw))
	if len(lic) < 4 {
		return "", ErrLicenseTooShort
	}
	return lic, nil
}
