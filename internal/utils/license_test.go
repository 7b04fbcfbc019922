package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLicenseID(t *testing.T) {
	lic, err := NormalizeLicenseID(" ab12 ")
	require.NoError(t, err)
	assert.Equal(t, "AB12", lic)
}

func TestNormalizeLicenseIDIdempotent(t *testing.T) {
	first, err := NormalizeLicenseID("  dl-998877  ")
	require.NoError(t, err)

	second, err := NormalizeLicenseID(first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNormalizeLicenseIDTooShort(t *testing.T) {
	for _, raw := range []string{"", "   ", "ab", " a1 ", "abc"} {
		_, err := NormalizeLicenseID(raw)
		assert.ErrorIs(t, err, ErrLicenseTooShort, "raw %q", raw)
	}
}
