// Package device parses user agents into display names and stable device
// fingerprints used by contextual analysis.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

// Service computes device fingerprints. A disabled service returns empty
// fingerprints so drift checks are skipped.
type Service struct {
	enabled bool
}

func NewService(enabled bool) *Service {
	return &Service{enabled: enabled}
}

// Enabled reports whether fingerprinting is active.
func (s *Service) Enabled() bool {
	return s != nil && s.enabled
}

// ParseUserAgent returns a "<browser> on <os>" display name.
func ParseUserAgent(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "Unknown Device"
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	return strings.TrimSpace(browser) + " on " + osName(ua)
}

// IsBot reports whether the user agent identifies as an automated client.
func IsBot(userAgent string) bool {
	if strings.TrimSpace(userAgent) == "" {
		return false
	}
	return useragent.New(userAgent).Bot()
}

// ComputeFingerprint hashes browser name, browser major version and OS so
// the fingerprint survives patch updates but changes on major upgrades.
func (s *Service) ComputeFingerprint(userAgent string) string {
	if !s.Enabled() || strings.TrimSpace(userAgent) == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	browser, version := ua.Browser()
	major, _, _ := strings.Cut(version, ".")

	sum := sha256.Sum256([]byte(strings.Join([]string{browser, major, osName(ua), ua.Platform()}, "|")))
	return hex.EncodeToString(sum[:])
}

// CompareFingerprints reports whether two fingerprints match and whether the
// device drifted. Empty fingerprints are treated as unknown, not drift.
func (s *Service) CompareFingerprints(stored, current string) (matched, drift bool) {
	if stored == "" || current == "" {
		return false, false
	}
	if stored == current {
		return true, false
	}
	return false, true
}

func osName(ua *useragent.UserAgent) string {
	if name := strings.TrimSpace(ua.OSInfo().Name); name != "" {
		return name
	}
	if p := strings.TrimSpace(ua.Platform()); p != "" {
		return p
	}
	return "Unknown OS"
}
