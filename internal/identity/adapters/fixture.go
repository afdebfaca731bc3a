package adapters

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v2"

	"dcaf/internal/identity/models"
	"dcaf/pkg/platform/sentinel"
	dstrings "dcaf/pkg/platform/strings"
)

// Fixtures holds profile and match insight records loaded from YAML. It
// backs the default server wiring and end-to-end tests.
//
//	profiles:
//	  phillipcorey:
//	    user_id: phillipcorey
//	    ...
//	insights:
//	  phillip corey roark:
//	    full_name: Phillip Corey Roark
//	    ...
//
// Insight keys are matched case-insensitively.
type Fixtures struct {
	mu       sync.RWMutex
	profiles map[string]models.ProfileRecord
	insights map[string]models.MatchInsightRecord
}

type fixtureFile struct {
	Profiles map[string]models.ProfileRecord      `yaml:"profiles"`
	Insights map[string]models.MatchInsightRecord `yaml:"insights"`
}

func NewFixtures() *Fixtures {
	return &Fixtures{
		profiles: make(map[string]models.ProfileRecord),
		insights: make(map[string]models.MatchInsightRecord),
	}
}

// LoadFixtures reads a YAML fixture file.
func LoadFixtures(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(raw)
}

// ParseFixtures decodes YAML fixture content.
func ParseFixtures(raw []byte) (*Fixtures, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	f := NewFixtures()
	for ref, p := range file.Profiles {
		f.PutProfile(ref, p)
	}
	for name, m := range file.Insights {
		f.PutInsight(name, m)
	}
	return f, nil
}

func (f *Fixtures) PutProfile(ref string, p models.ProfileRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[ref] = p
}

func (f *Fixtures) PutInsight(name string, m models.MatchInsightRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insights[insightKey(name)] = m
}

// Profiles returns a ProfileSource view.
func (f *Fixtures) Profiles() *FixtureProfileSource {
	return &FixtureProfileSource{fixtures: f}
}

// Insights returns a MatchInsightSource view.
func (f *Fixtures) Insights() *FixtureInsightSource {
	return &FixtureInsightSource{fixtures: f}
}

type FixtureProfileSource struct {
	fixtures *Fixtures
}

func (s *FixtureProfileSource) Fetch(ctx context.Context, ref string) (*models.ProfileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.fixtures.mu.RLock()
	defer s.fixtures.mu.RUnlock()
	p, ok := s.fixtures.profiles[ref]
	if !ok {
		return nil, fmt.Errorf("profile %q: %w", ref, sentinel.ErrNotFound)
	}
	return &p, nil
}

type FixtureInsightSource struct {
	fixtures *Fixtures
}

func (s *FixtureInsightSource) Fetch(ctx context.Context, name string) (*models.MatchInsightRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.fixtures.mu.RLock()
	defer s.fixtures.mu.RUnlock()
	m, ok := s.fixtures.insights[insightKey(name)]
	if !ok {
		return nil, fmt.Errorf("match insight %q: %w", name, sentinel.ErrNotFound)
	}
	return &m, nil
}

func insightKey(name string) string {
	return dstrings.CollapseLower(name)
}

// DefaultFixtures seeds the sample owner used when no fixture file is configured.
func DefaultFixtures() *Fixtures {
	f := NewFixtures()
	f.PutProfile("phillipcorey", models.ProfileRecord{
		UserID:          "phillipcorey",
		Name:            "Phillip Corey Roark",
		Headline:        "Strategic Intelligence Lead",
		Skills:          []string{"analysis", "forecasting", "negotiation", "research", "strategy", "writing"},
		Experience:      []string{"Atlas Analytics", "Northwind", "Meridian Group"},
		Connections:     650,
		Recommendations: 12,
		Network:         &models.NetworkProfile{SameIndustryRatio: 0.6, CrossIndustryRatio: 0.4},
	})
	f.PutInsight("Phillip Corey Roark", models.MatchInsightRecord{
		UserID:               "phillipcorey",
		FullName:             "Phillip Corey Roark",
		CareerLevel:          "senior",
		CollaborationMetrics: &models.CollaborationMetrics{TeamworkScore: 0.9, LeadershipCapability: 0.7},
		GrowthMetrics:        &models.GrowthMetrics{SkillDevelopmentAreas: []string{"machine learning", "public speaking"}},
		IndustryExperience:   []string{"consulting", "finance", "defense"},
		NetworkInsights:      &models.NetworkInsights{ConnectionDiversity: 0.7},
		CompatibilityData:    &models.CompatibilityData{DomainAlignmentScore: 0.8},
	})
	return f
}
