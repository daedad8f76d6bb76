package validators

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStringCutsOnRuneBoundary(t *testing.T) {
	input := strings.Repeat("a", 4999) + "₹ refund"

	got := SanitizeString(input, 5000)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 5000, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "a₹"))

	assert.Equal(t, "kurta", SanitizeString("  kurta  ", 100))
	assert.Equal(t, "सूती", SanitizeString("सूती कुर्ता", 4))
}

func TestSanitizeStringDropsInvalidBytes(t *testing.T) {
	assert.Equal(t, "tea", SanitizeString("te\xe2a", 10))
}

func TestCleanTextKeepsLength(t *testing.T) {
	long := strings.Repeat("x", 6000)
	assert.Equal(t, long, CleanText(long))

	assert.Equal(t, "line one\nline two", CleanText(" line one\nline\x00 two\x07 "))
	assert.Equal(t, "₹500 refund", CleanText("₹500 refund\xe2"))
}
