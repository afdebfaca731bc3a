// Package email canonicalizes addresses used as login subjects.
package email

import (
	"strings"
)

// Normalize trims whitespace and lowercases the address. Addresses compare
// equal after normalization regardless of how the client cased them.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Domain returns the part after the last '@', or "" when there is none.
func Domain(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return Normalize(address[at+1:])
}

// Mask hides the local part for log lines that are not forensic records,
// keeping the first character: "ana@example.com" becomes "a***@example.com".
func Mask(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at <= 0 {
		return "***"
	}
	return address[:1] + "***" + address[at:]
}
