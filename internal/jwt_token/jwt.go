// Package jwttoken mints and verifies the HS256 login tokens handed out for
// APPROVED and CHALLENGED logins.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"dcaf/internal/login/models"
	"dcaf/internal/login/ports"
	dErrors "dcaf/pkg/domain-errors"
	authmw "dcaf/pkg/platform/middleware/auth"
)

var (
	errExpired       = dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	errInvalid       = dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	errInvalidClaims = dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
)

// LoginClaims bind the token to the login context digest and the biometric
// challenge signature it was decided with.
type LoginClaims struct {
	Email              string `json:"email"`
	ContextDigest      string `json:"ctx"`
	ChallengeSignature string `json:"chs"`
	Status             string `json:"status"`
	jwt.RegisteredClaims
}

type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	parser     *jwt.Parser
}

func NewJWTService(signingKey, issuer, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		parser: jwt.NewParser(
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		),
	}
}

// GenerateLoginToken signs a token for req. Statuses that do not issue
// tokens are an invariant violation.
func (s *JWTService) GenerateLoginToken(req ports.LoginTokenRequest) (string, time.Time, error) {
	if !req.Status.IssuesToken() {
		return "", time.Time{}, dErrors.New(dErrors.CodeInvariantViolation, "status does not issue a token")
	}
	issuedAt := req.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	expiresAt := issuedAt.Add(req.TTL)

	claims := LoginClaims{
		Email:              req.Email,
		ContextDigest:      req.ContextDigest,
		ChallengeSignature: req.ChallengeSignature,
		Status:             string(req.Status),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   req.Email,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, expiresAt, nil
}

// ValidateToken verifies signature, issuer, audience and expiry, and that
// the token carries a status that issues tokens.
func (s *JWTService) ValidateToken(tokenString string) (*LoginClaims, error) {
	var claims LoginClaims
	parsed, err := s.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, errExpired
	case err != nil, !parsed.Valid:
		return nil, errInvalid
	case !models.Status(claims.Status).IssuesToken():
		return nil, errInvalidClaims
	}
	return &claims, nil
}

// Middleware exposes the service as the validator the auth middleware uses.
func (s *JWTService) Middleware() authmw.ValidatorFunc {
	return func(tokenString string) (*authmw.JWTClaims, error) {
		c, err := s.ValidateToken(tokenString)
		if err != nil {
			return nil, err
		}
		return &authmw.JWTClaims{
			Email:     c.Email,
			Status:    c.Status,
			JTI:       c.ID,
			ExpiresAt: c.ExpiresAt.Time,
		}, nil
	}
}
