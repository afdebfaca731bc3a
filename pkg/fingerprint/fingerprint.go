// Package fingerprint produces short deterministic digests of strings.
//
// The digest is a 32-bit rolling hash (h = h*31 + c) over UTF-16 code units,
// reduced to its absolute value and rendered in base 36. It is illustrative
// and collision tolerant, not a cryptographic hash. Every component that
// derives digests must go through Hash so outputs stay comparable.
package fingerprint

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

// Hash returns the base-36 digest of input. Hash("") is "0".
func Hash(input string) string {
	var h int32
	for _, r := range input {
		if utf16.RuneLen(r) == 2 {
			r1, r2 := utf16.EncodeRune(r)
			h = h*31 + int32(r1)
			h = h*31 + int32(r2)
			continue
		}
		h = h*31 + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}

// Prefix returns the first n characters of the digest of input, left padded
// with '0' when the digest is shorter than n.
func Prefix(input string, n int) string {
	return Pad(Hash(input), n)
}

// Pad truncates or left-pads digest to exactly n characters.
func Pad(digest string, n int) string {
	if len(digest) >= n {
		return digest[:n]
	}
	return strings.Repeat("0", n-len(digest)) + digest
}
