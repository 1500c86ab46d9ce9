package order

import (
	"crypto/rand"
	"regexp"
	"time"
)

// Order numbers look like ORD-20250901-7KQ3XF: a date bucket plus a random
// suffix, 19 characters total, matching the documented [A-Z0-9-]+ pattern.
const numberSuffixLen = 6

// Crockford-style alphabet without the ambiguous 0/O and 1/I/L.
const numberAlphabet = "23456789ABCDEFGHJKMNPQRSTVWXYZ"

var numberPattern = regexp.MustCompile(`^[A-Z0-9-]{1,20}$`)

// NewNumber generates a human-readable order number for the given day.
func NewNumber(now time.Time) string {
	buf := make([]byte, numberSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return "ORD-" + now.UTC().Format("20060102") + "-" + string(buf)
}

// ValidNumber reports whether s is a well-formed order number.
func ValidNumber(s string) bool {
	return numberPattern.MatchString(s)
}
