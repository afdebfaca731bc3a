package models

import (
	"time"

	dErrors "dcaf/pkg/domain-errors"
)

// NetworkProfile describes how a professional network splits across industries.
type NetworkProfile struct {
	SameIndustryRatio  float64 `json:"sameIndustryRatio" yaml:"same_industry_ratio"`
	CrossIndustryRatio float64 `json:"crossIndustryRatio" yaml:"cross_industry_ratio"`
}

// ProfileRecord is the owner's professional profile as returned by the
// profile source. It is read-only for the duration of one pipeline run.
type ProfileRecord struct {
	UserID          string          `json:"userId" yaml:"user_id"`
	Name            string          `json:"name" yaml:"name"`
	Headline        string          `json:"headline" yaml:"headline"`
	Skills          []string        `json:"skills" yaml:"skills"`
	Experience      []string        `json:"experience" yaml:"experience"`
	Connections     int             `json:"connections" yaml:"connections"`
	Recommendations int             `json:"recommendations" yaml:"recommendations"`
	Network         *NetworkProfile `json:"network,omitempty" yaml:"network"`
}

type CollaborationMetrics struct {
	TeamworkScore        float64 `json:"teamworkScore" yaml:"teamwork_score"`
	LeadershipCapability float64 `json:"leadershipCapability" yaml:"leadership_capability"`
}

type GrowthMetrics struct {
	SkillDevelopmentAreas []string `json:"skillDevelopmentAreas" yaml:"skill_development_areas"`
}

type NetworkInsights struct {
	ConnectionDiversity float64 `json:"connectionDiversity" yaml:"connection_diversity"`
}

type CompatibilityData struct {
	DomainAlignmentScore float64 `json:"domainAlignmentScore" yaml:"domain_alignment_score"`
}

// MatchInsightRecord is the owner's record from the match insight source.
// Optional sections are pointers so absence is distinguishable from zero.
type MatchInsightRecord struct {
	UserID               string                `json:"userId" yaml:"user_id"`
	FullName             string                `json:"fullName" yaml:"full_name"`
	CareerLevel          string                `json:"careerLevel" yaml:"career_level"`
	CollaborationMetrics *CollaborationMetrics `json:"collaborationMetrics,omitempty" yaml:"collaboration_metrics"`
	GrowthMetrics        *GrowthMetrics        `json:"growthMetrics,omitempty" yaml:"growth_metrics"`
	IndustryExperience   []string              `json:"industryExperience" yaml:"industry_experience"`
	NetworkInsights      *NetworkInsights      `json:"networkInsights,omitempty" yaml:"network_insights"`
	CompatibilityData    *CompatibilityData    `json:"compatibilityData,omitempty" yaml:"compatibility_data"`
}

// ConfidenceScoreSet holds confidence values in [0,1]. Overall, Domain and
// Authenticity are required; the rest are advisory.
type ConfidenceScoreSet struct {
	Overall               *float64 `json:"overallConfidence"`
	Domain                *float64 `json:"domainConfidence"`
	Authenticity          *float64 `json:"profileAuthenticity"`
	ProfessionalAlignment *float64 `json:"professionalAlignment,omitempty"`
	NetworkDiversity      *float64 `json:"networkDiversity,omitempty"`
	CollaborativeCapacity *float64 `json:"collaborativeCapacity,omitempty"`
	AdaptabilityIndex     *float64 `json:"adaptabilityIndex,omitempty"`
}

// Validate fails closed when a required score is missing.
func (c *ConfidenceScoreSet) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeIncompleteConfidenceInput, "confidence scores are missing")
	}
	switch {
	case c.Overall == nil:
		return dErrors.New(dErrors.CodeIncompleteConfidenceInput, "overall confidence is missing")
	case c.Domain == nil:
		return dErrors.New(dErrors.CodeIncompleteConfidenceInput, "domain confidence is missing")
	case c.Authenticity == nil:
		return dErrors.New(dErrors.CodeIncompleteConfidenceInput, "profile authenticity is missing")
	}
	return nil
}

// Summary returns the three required scores. Call only after Validate.
func (c *ConfidenceScoreSet) Summary() ConfidenceSummary {
	return ConfidenceSummary{
		Overall:      *c.Overall,
		Domain:       *c.Domain,
		Authenticity: *c.Authenticity,
	}
}

// ConfidenceSummary is the caller-facing subset of a ConfidenceScoreSet.
type ConfidenceSummary struct {
	Overall      float64
	Domain       float64
	Authenticity float64
}

// UniqueIdentifier separates the stable content fingerprint from the salted
// instance id. Only ContentFingerprint may be used for deduplication.
type UniqueIdentifier struct {
	InstanceID         string
	ContentFingerprint string
	ProfileDigest      string
	MatchDigest        string
	ConfidenceDigest   string
}

func (u UniqueIdentifier) String() string {
	return u.InstanceID
}

// AuthorizeRequest carries an owner's identity claim and the agent pairing.
type AuthorizeRequest struct {
	OwnerName           string
	OwnerProfileRef     string
	AgentSpecialization string
}

// Validate checks required fields.
func (r AuthorizeRequest) Validate() error {
	switch {
	case r.OwnerName == "":
		return dErrors.New(dErrors.CodeValidation, "owner name is required")
	case r.OwnerProfileRef == "":
		return dErrors.New(dErrors.CodeValidation, "owner profile reference is required")
	case r.AgentSpecialization == "":
		return dErrors.New(dErrors.CodeValidation, "agent specialization is required")
	}
	return nil
}

// AuthenticationResult is the outcome of a successful identity authorization.
type AuthenticationResult struct {
	UniqueID            string
	ContentFingerprint  string
	ConfidenceScores    ConfidenceSummary
	CompatibilityRating float64
	Timestamp           time.Time
}
