package scoring

import (
	"crypto/rand"
	"encoding/json"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"dcaf/internal/identity/models"
	dErrors "dcaf/pkg/domain-errors"
	"dcaf/pkg/fingerprint"
)

const (
	IdentifierNamespace = "dcaf"
	IdentifierVersion   = "10"
	digestWidth         = 8
	randomWidth         = 6
	base36Alphabet      = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// IDGenerator mints identifiers from the aggregated profile and its
// confidence scores. The content fingerprint depends only on content; the
// instance id adds a time and random salt.
type IDGenerator struct {
	now    func() time.Time
	random io.Reader
}

type IDOption func(*IDGenerator)

func WithIDClock(now func() time.Time) IDOption {
	return func(g *IDGenerator) { g.now = now }
}

func WithIDRandom(r io.Reader) IDOption {
	return func(g *IDGenerator) { g.random = r }
}

func NewIDGenerator(opts ...IDOption) *IDGenerator {
	g := &IDGenerator{
		now:    time.Now,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type profileProjection struct {
	UserID   string   `json:"userId"`
	Name     string   `json:"name"`
	Headline string   `json:"headline"`
	Skills   []string `json:"skills"`
}

type matchProjection struct {
	UserID          string  `json:"userId"`
	FullName        string  `json:"fullName"`
	CareerLevel     string  `json:"careerLevel"`
	DomainAlignment float64 `json:"domainAlignment"`
}

type confidenceProjection struct {
	Overall      int `json:"overall"`
	Domain       int `json:"domain"`
	Authenticity int `json:"authenticity"`
}

// Generate builds a UniqueIdentifier shaped
// dcaf-10-<profile>-<match>-<confidence>-<time>-<random>.
func (g *IDGenerator) Generate(profile *models.ProfileRecord, match *models.MatchInsightRecord, scores models.ConfidenceSummary) (models.UniqueIdentifier, error) {
	p, err := digest(projectProfile(profile))
	if err != nil {
		return models.UniqueIdentifier{}, err
	}
	m, err := digest(projectMatch(match))
	if err != nil {
		return models.UniqueIdentifier{}, err
	}
	c, err := digest(confidenceProjection{
		Overall:      percent(scores.Overall),
		Domain:       percent(scores.Domain),
		Authenticity: percent(scores.Authenticity),
	})
	if err != nil {
		return models.UniqueIdentifier{}, err
	}

	suffix, err := g.randomSuffix()
	if err != nil {
		return models.UniqueIdentifier{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read identifier salt")
	}

	content := strings.Join([]string{IdentifierNamespace, IdentifierVersion, p, m, c}, "-")
	instance := strings.Join([]string{
		content,
		strconv.FormatInt(g.now().UnixMilli(), 36),
		suffix,
	}, "-")

	return models.UniqueIdentifier{
		InstanceID:         instance,
		ContentFingerprint: content,
		ProfileDigest:      p,
		MatchDigest:        m,
		ConfidenceDigest:   c,
	}, nil
}

func projectProfile(profile *models.ProfileRecord) profileProjection {
	if profile == nil {
		return profileProjection{}
	}
	skills := slices.Clone(profile.Skills)
	slices.Sort(skills)
	return profileProjection{
		UserID:   profile.UserID,
		Name:     profile.Name,
		Headline: profile.Headline,
		Skills:   skills,
	}
}

func projectMatch(match *models.MatchInsightRecord) matchProjection {
	if match == nil {
		return matchProjection{}
	}
	proj := matchProjection{
		UserID:      match.UserID,
		FullName:    match.FullName,
		CareerLevel: match.CareerLevel,
	}
	if match.CompatibilityData != nil {
		proj.DomainAlignment = math.Round(match.CompatibilityData.DomainAlignmentScore*100) / 100
	}
	return proj
}

func digest(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode identifier projection")
	}
	return fingerprint.Prefix(string(raw), digestWidth), nil
}

func percent(v float64) int {
	return int(math.Round(clamp01(v) * 100))
}

func (g *IDGenerator) randomSuffix() (string, error) {
	buf := make([]byte, randomWidth)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return string(buf), nil
}
