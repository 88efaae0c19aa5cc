package receipt

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNumberFormat(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	number := NewNumber(now)

	pattern := regexp.MustCompile(`^RCT-20260314092653-[0-9A-F]{6}$`)
	assert.Regexp(t, pattern, number)
}

func TestNewNumberVariesWithinSameSecond(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		seen[NewNumber(now)] = struct{}{}
	}
	// Random suffixes should make same-second collisions rare.
	assert.Greater(t, len(seen), 1)
}

func TestVerificationPayload(t *testing.T) {
	payload := VerificationPayload("RCT-20260314092653-1A2B3C", "ADM-100")
	assert.Equal(t, "RCT-20260314092653-1A2B3C-ADM-100", payload)
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{950, "950"},
		{1000, "1,000"},
		{70000, "70,000"},
		{1234567, "1,234,567"},
		{-15000, "-15,000"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, FormatAmount(tc.in), "amount %d", tc.in)
	}
}
