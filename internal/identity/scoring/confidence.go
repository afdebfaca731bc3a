package scoring

import (
	"math"
	"strings"

	"dcaf/internal/identity/models"
	dstrings "dcaf/pkg/platform/strings"
)

// Profile completeness thresholds that raise authenticity.
const (
	authenticityBase          = 0.5
	connectionsThreshold      = 500
	connectionsBonus          = 0.2
	engagementsThreshold      = 3
	engagementsBonus          = 0.15
	skillsThreshold           = 5
	skillsBonus               = 0.15
	overallAuthenticityWeight = 0.4
	overallDomainWeight       = 0.35
	overallNetworkWeight      = 0.25
)

// ConfidenceCalculator derives confidence scores from an aggregated profile
// and a declared agent specialization.
type ConfidenceCalculator struct {
	rater *Rater
}

type ConfidenceOption func(*ConfidenceCalculator)

// WithSubScores fills the advisory fields of the score set from r.
func WithSubScores(r *Rater) ConfidenceOption {
	return func(c *ConfidenceCalculator) { c.rater = r }
}

func NewConfidenceCalculator(opts ...ConfidenceOption) *ConfidenceCalculator {
	c := &ConfidenceCalculator{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate returns the score set or a CodeIncompleteConfidenceInput error
// when any required score cannot be computed. The error is not retryable.
func (c *ConfidenceCalculator) Calculate(profile *models.ProfileRecord, match *models.MatchInsightRecord, specialization string) (*models.ConfidenceScoreSet, error) {
	set := &models.ConfidenceScoreSet{}

	auth, authOK := Authenticity(profile)
	if authOK {
		set.Authenticity = &auth
	}
	domain, domainOK := DomainConfidence(profile, match, specialization)
	if domainOK {
		set.Domain = &domain
	}
	if balance, ok := networkBalance(profile); ok && authOK && domainOK {
		overall := clamp01(overallAuthenticityWeight*auth +
			overallDomainWeight*domain +
			overallNetworkWeight*balance)
		set.Overall = &overall
	}

	if err := set.Validate(); err != nil {
		return nil, err
	}

	if c.rater != nil {
		sub := c.rater.SubScores(profile, match)
		set.ProfessionalAlignment = ptr(sub.ProfessionalAlignment)
		set.NetworkDiversity = ptr(sub.NetworkDiversity)
		set.CollaborativeCapacity = ptr(sub.CollaborativeCapacity)
		set.AdaptabilityIndex = ptr(sub.Adaptability)
	}
	return set, nil
}

// Authenticity scores profile completeness. It is not computable without a profile.
func Authenticity(profile *models.ProfileRecord) (float64, bool) {
	if profile == nil {
		return 0, false
	}
	score := authenticityBase
	if profile.Connections >= connectionsThreshold {
		score += connectionsBonus
	}
	if len(profile.Experience) >= engagementsThreshold {
		score += engagementsBonus
	}
	if len(profile.Skills) >= skillsThreshold {
		score += skillsBonus
	}
	return math.Min(score, 1), true
}

// DomainConfidence averages the match record's domain alignment with how well
// the profile covers the specialization. It needs match compatibility data.
func DomainConfidence(profile *models.ProfileRecord, match *models.MatchInsightRecord, specialization string) (float64, bool) {
	if match == nil || match.CompatibilityData == nil {
		return 0, false
	}
	alignment := clamp01(match.CompatibilityData.DomainAlignmentScore)
	return (alignment + SpecializationRelevance(profile, match, specialization)) / 2, true
}

// SpecializationRelevance is the fraction of specialization keywords found in
// the owner's skills, headline, industry experience and growth areas.
func SpecializationRelevance(profile *models.ProfileRecord, match *models.MatchInsightRecord, specialization string) float64 {
	keywords := keywordsOf(specialization)
	if len(keywords) == 0 {
		return 0
	}

	var corpus []string
	if profile != nil {
		corpus = append(corpus, profile.Headline)
		corpus = append(corpus, profile.Skills...)
	}
	if match != nil {
		corpus = append(corpus, match.IndustryExperience...)
		if match.GrowthMetrics != nil {
			corpus = append(corpus, match.GrowthMetrics.SkillDevelopmentAreas...)
		}
	}
	text := dstrings.CollapseLower(strings.Join(corpus, " "))

	hits := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

// networkBalance rewards networks that mix same-industry and cross-industry ties.
func networkBalance(profile *models.ProfileRecord) (float64, bool) {
	if profile == nil || profile.Network == nil {
		return 0, false
	}
	n := profile.Network
	return clamp01(1 - math.Abs(clamp01(n.SameIndustryRatio)-clamp01(n.CrossIndustryRatio))), true
}

func keywordsOf(s string) []string {
	return dstrings.Keywords(s, 3)
}

func ptr(v float64) *float64 { return &v }
