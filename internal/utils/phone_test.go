package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsE164(t *testing.T) {
	valid := []string{"+254712345678", "+12025550143", "+4915112345678"}
	for _, n := range valid {
		require.True(t, IsE164(n), n)
	}

	invalid := []string{"", "0712345678", "+0712345678", "254712345678", "+254 712 345 678", "+1234"}
	for _, n := range invalid {
		require.False(t, IsE164(n), n)
	}
}

func TestHasIntlPrefix(t *testing.T) {
	require.True(t, HasIntlPrefix("+254712345678"))
	require.False(t, HasIntlPrefix("0712345678"))
	require.False(t, HasIntlPrefix("+"))
	require.False(t, HasIntlPrefix(""))
}
