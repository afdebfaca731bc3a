package scoring

import (
	"dcaf/internal/identity/models"
)

// Compatibility weights. They sum to 1.0 and are part of the rating contract.
const (
	WeightProfessionalAlignment = 0.35
	WeightNetworkDiversity      = 0.25
	WeightCollaborativeCapacity = 0.25
	WeightAdaptability          = 0.15
)

// SubScores are the four inputs to a compatibility rating, each in [0,1].
type SubScores struct {
	ProfessionalAlignment float64
	NetworkDiversity      float64
	CollaborativeCapacity float64
	Adaptability          float64
}

// Combine applies the fixed weights. Inputs are clamped to [0,1] first.
func Combine(s SubScores) float64 {
	return clamp01(s.ProfessionalAlignment)*WeightProfessionalAlignment +
		clamp01(s.NetworkDiversity)*WeightNetworkDiversity +
		clamp01(s.CollaborativeCapacity)*WeightCollaborativeCapacity +
		clamp01(s.Adaptability)*WeightAdaptability
}

// Estimator derives one sub-score from the aggregated records. Either record
// may be nil; estimators return 0 for missing inputs rather than failing.
type Estimator interface {
	Estimate(profile *models.ProfileRecord, match *models.MatchInsightRecord) float64
}

// EstimatorFunc adapts a function to Estimator.
type EstimatorFunc func(profile *models.ProfileRecord, match *models.MatchInsightRecord) float64

func (f EstimatorFunc) Estimate(profile *models.ProfileRecord, match *models.MatchInsightRecord) float64 {
	return f(profile, match)
}

// Rater produces advisory compatibility ratings. It has no error path.
type Rater struct {
	professional  Estimator
	network       Estimator
	collaborative Estimator
	adaptability  Estimator
}

type RaterOption func(*Rater)

func WithProfessionalAlignment(e Estimator) RaterOption {
	return func(r *Rater) { r.professional = e }
}

func WithNetworkDiversity(e Estimator) RaterOption {
	return func(r *Rater) { r.network = e }
}

func WithCollaborativeCapacity(e Estimator) RaterOption {
	return func(r *Rater) { r.collaborative = e }
}

func WithAdaptability(e Estimator) RaterOption {
	return func(r *Rater) { r.adaptability = e }
}

// NewRater builds a Rater with the default estimators, overridable per sub-score.
func NewRater(opts ...RaterOption) *Rater {
	r := &Rater{
		professional:  EstimatorFunc(professionalAlignment),
		network:       EstimatorFunc(networkDiversity),
		collaborative: EstimatorFunc(collaborativeCapacity),
		adaptability:  EstimatorFunc(adaptability),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SubScores runs every estimator.
func (r *Rater) SubScores(profile *models.ProfileRecord, match *models.MatchInsightRecord) SubScores {
	return SubScores{
		ProfessionalAlignment: estimate(r.professional, profile, match),
		NetworkDiversity:      estimate(r.network, profile, match),
		CollaborativeCapacity: estimate(r.collaborative, profile, match),
		Adaptability:          estimate(r.adaptability, profile, match),
	}
}

// Rate returns the weighted compatibility rating in [0,1].
func (r *Rater) Rate(profile *models.ProfileRecord, match *models.MatchInsightRecord) float64 {
	return Combine(r.SubScores(profile, match))
}

func estimate(e Estimator, profile *models.ProfileRecord, match *models.MatchInsightRecord) float64 {
	if e == nil {
		return 0
	}
	return clamp01(e.Estimate(profile, match))
}

func professionalAlignment(_ *models.ProfileRecord, match *models.MatchInsightRecord) float64 {
	if match == nil || match.CompatibilityData == nil {
		return 0
	}
	return match.CompatibilityData.DomainAlignmentScore
}

func networkDiversity(profile *models.ProfileRecord, match *models.MatchInsightRecord) float64 {
	if match != nil && match.NetworkInsights != nil {
		return match.NetworkInsights.ConnectionDiversity
	}
	if profile != nil && profile.Network != nil {
		return profile.Network.CrossIndustryRatio
	}
	return 0
}

func collaborativeCapacity(_ *models.ProfileRecord, match *models.MatchInsightRecord) float64 {
	if match == nil || match.CollaborationMetrics == nil {
		return 0
	}
	m := match.CollaborationMetrics
	return (clamp01(m.TeamworkScore) + clamp01(m.LeadershipCapability)) / 2
}

// adaptability blends breadth of growth areas with breadth of industry exposure.
func adaptability(_ *models.ProfileRecord, match *models.MatchInsightRecord) float64 {
	if match == nil {
		return 0
	}
	var growth float64
	if match.GrowthMetrics != nil {
		growth = min(float64(len(match.GrowthMetrics.SkillDevelopmentAreas))/4, 1)
	}
	industries := min(float64(len(match.IndustryExperience))/3, 1)
	return 0.5*growth + 0.5*industries
}

func clamp01(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
