package security

import (
	"crypto/rand"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"dcaf/internal/login/models"
	dErrors "dcaf/pkg/domain-errors"
	"dcaf/pkg/fingerprint"
)

// DefaultChallengeTTL bounds how long an issued challenge may be consumed.
const DefaultChallengeTTL = 5 * time.Minute

// ChallengeIssuer mints single-use biometric challenges.
type ChallengeIssuer struct {
	ttl    time.Duration
	now    func() time.Time
	random io.Reader
}

type IssuerOption func(*ChallengeIssuer)

func WithChallengeTTL(d time.Duration) IssuerOption {
	return func(i *ChallengeIssuer) {
		if d > 0 {
			i.ttl = d
		}
	}
}

func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *ChallengeIssuer) { i.now = now }
}

func WithEntropy(r io.Reader) IssuerOption {
	return func(i *ChallengeIssuer) { i.random = r }
}

func NewChallengeIssuer(opts ...IssuerOption) *ChallengeIssuer {
	i := &ChallengeIssuer{
		ttl:    DefaultChallengeTTL,
		now:    time.Now,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// TTL returns the configured challenge lifetime.
func (i *ChallengeIssuer) TTL() time.Duration { return i.ttl }

// Issue mints a challenge whose signature binds email, device and issue time.
// Entropy failure is fatal for the attempt.
func (i *ChallengeIssuer) Issue(email, deviceSignature string) (*models.BiometricChallenge, error) {
	id, err := uuid.NewRandomFromReader(i.random)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate challenge id")
	}
	issuedAt := i.now()
	return &models.BiometricChallenge{
		ID:        id.String(),
		Type:      models.ChallengeTypeBiometric,
		Signature: ChallengeSignature(email, deviceSignature, issuedAt),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(i.ttl),
	}, nil
}

// ChallengeSignature hashes email, device signature and issue time in
// milliseconds, separated by "|".
func ChallengeSignature(email, deviceSignature string, issuedAt time.Time) string {
	return fingerprint.Hash(email + "|" + deviceSignature + "|" + strconv.FormatInt(issuedAt.UnixMilli(), 10))
}
