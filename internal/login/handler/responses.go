package handler

import (
	"time"

	jwttoken "dcaf/internal/jwt_token"
	"dcaf/internal/login/models"
	authmw "dcaf/pkg/platform/middleware/auth"
)

// SecureLoginResponse is the HTTP response for POST /auth/secure-login.
type SecureLoginResponse struct {
	Status    string            `json:"status"`
	Token     string            `json:"token,omitempty"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
	Challenge ChallengeResponse `json:"challenge"`
	Risk      RiskResponse      `json:"risk"`
	DecidedAt time.Time         `json:"decided_at"`
}

type ChallengeResponse struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type RiskResponse struct {
	Score           float64 `json:"score"`
	AnomalyDetected bool    `json:"anomaly_detected"`
}

func FromResult(result *models.LoginResult) *SecureLoginResponse {
	return &SecureLoginResponse{
		Status:    string(result.Status),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Challenge: ChallengeResponse{ID: result.Challenge.ID, Type: result.Challenge.Type},
		Risk: RiskResponse{
			Score:           result.Risk.Score,
			AnomalyDetected: result.Risk.AnomalyDetected,
		},
		DecidedAt: result.DecidedAt,
	}
}

// IntrospectResponse reports whether a token is active and, if so, what it
// binds. Inactive tokens carry no other fields.
type IntrospectResponse struct {
	Active             bool       `json:"active"`
	Email              string     `json:"email,omitempty"`
	Status             string     `json:"status,omitempty"`
	ContextDigest      string     `json:"context_digest,omitempty"`
	ChallengeSignature string     `json:"challenge_signature,omitempty"`
	JTI                string     `json:"jti,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
}

func fromClaims(c *jwttoken.LoginClaims) *IntrospectResponse {
	resp := &IntrospectResponse{
		Active:             true,
		Email:              c.Email,
		Status:             c.Status,
		ContextDigest:      c.ContextDigest,
		ChallengeSignature: c.ChallengeSignature,
		JTI:                c.ID,
	}
	if c.ExpiresAt != nil {
		exp := c.ExpiresAt.Time
		resp.ExpiresAt = &exp
	}
	return resp
}

// SessionResponse is the HTTP response for GET /auth/session.
type SessionResponse struct {
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	JTI       string    `json:"jti"`
	ExpiresAt time.Time `json:"expires_at"`
}

func fromMiddlewareClaims(c *authmw.JWTClaims) *SessionResponse {
	return &SessionResponse{Email: c.Email, Status: c.Status, JTI: c.JTI, ExpiresAt: c.ExpiresAt}
}
