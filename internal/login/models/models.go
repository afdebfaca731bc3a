package models

import (
	"encoding/json"
	"net/mail"
	"strings"
	"time"

	dErrors "dcaf/pkg/domain-errors"
	"dcaf/pkg/fingerprint"
)

// ContextualData describes the environment of a login attempt.
type ContextualData struct {
	IPAddress  string            `json:"ip_address,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
	Locale     string            `json:"locale,omitempty"`
	Timezone   string            `json:"timezone,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Digest is a stable fingerprint of the contextual data. Map keys are
// encoded in sorted order so equal data yields equal digests.
func (c ContextualData) Digest() string {
	raw, err := json.Marshal(c)
	if err != nil {
		return fingerprint.Hash(c.IPAddress + "|" + c.UserAgent)
	}
	return fingerprint.Hash(string(raw))
}

// LoginRequest is a human login attempt.
type LoginRequest struct {
	Email           string
	Credentials     string
	DeviceSignature string
	Context         ContextualData
}

// Validate checks required fields and email syntax.
func (r LoginRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Email) == "":
		return dErrors.New(dErrors.CodeValidation, "email is required")
	case r.Credentials == "":
		return dErrors.New(dErrors.CodeValidation, "credentials are required")
	case strings.TrimSpace(r.DeviceSignature) == "":
		return dErrors.New(dErrors.CodeValidation, "device signature is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return dErrors.New(dErrors.CodeValidation, "email is malformed")
	}
	return nil
}

// EmailVerification is the verifier's confidence that the credentials belong
// to the email owner, in [0,1].
type EmailVerification struct {
	Confidence float64
}

// ContextualAnalysis scores how consistent the attempt is with what is
// known about the user.
type ContextualAnalysis struct {
	ConsistencyScore float64
	HasAnomalies     bool
	// Signals names the heuristics that fired, for logs only.
	Signals []string
}

// ChallengeTypeBiometric is the only challenge type issued.
const ChallengeTypeBiometric = "biometric"

// BiometricChallenge is a single-use challenge bound to an email and device.
type BiometricChallenge struct {
	ID        string
	Type      string
	Signature string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the challenge is past its expiry at now.
func (c *BiometricChallenge) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// RiskAssessment is the weighted composite of the three login signals.
type RiskAssessment struct {
	EmailVerificationConfidence float64
	ContextualConsistencyScore  float64
	HasChallengeSignature       bool
	RiskScore                   float64
	AnomalyDetected             bool
}

type ChallengeSummary struct {
	ID   string
	Type string
}

type RiskSummary struct {
	Score           float64
	AnomalyDetected bool
}

// LoginResult is the outcome of SecureLogin. Token and ExpiresAt are set
// only for APPROVED and CHALLENGED.
type LoginResult struct {
	Status    Status
	Token     string
	ExpiresAt *time.Time
	Challenge ChallengeSummary
	Risk      RiskSummary
	DecidedAt time.Time
}
