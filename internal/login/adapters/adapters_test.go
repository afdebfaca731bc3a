package adapters

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"dcaf/internal/login/device"
	"dcaf/internal/login/models"
)

const (
	chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	firefox   = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	googlebot = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestCredentialDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewCredentialDirectory(WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, dir.Register("Ana@Example.com", "correct horse"))

	t.Run("matching credentials", func(t *testing.T) {
		v, err := dir.Verify(ctx, "  ana@example.COM", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, ConfidenceVerified, v.Confidence)
	})

	t.Run("wrong credentials", func(t *testing.T) {
		v, err := dir.Verify(ctx, "ana@example.com", "battery staple")
		require.NoError(t, err)
		assert.Equal(t, ConfidenceRejected, v.Confidence)
	})

	t.Run("unknown email", func(t *testing.T) {
		v, err := dir.Verify(ctx, "nobody@example.com", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, ConfidenceRejected, v.Confidence)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := dir.Verify(cctx, "ana@example.com", "correct horse")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestParseCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	dir, err := ParseCredentials([]byte("credentials:\n  Ops@Example.com: \"" + string(hash) + "\"\n"))
	require.NoError(t, err)
	v, err := dir.Verify(context.Background(), "ops@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, ConfidenceVerified, v.Confidence)

	_, err = ParseCredentials([]byte("credentials:\n  ops@example.com: plaintext\n"))
	assert.Error(t, err)
}

type HeuristicAnalyzerSuite struct {
	suite.Suite
	analyzer *HeuristicAnalyzer
	ctx      context.Context
}

func TestHeuristicAnalyzerSuite(t *testing.T) {
	suite.Run(t, new(HeuristicAnalyzerSuite))
}

func (s *HeuristicAnalyzerSuite) SetupTest() {
	s.analyzer = NewHeuristicAnalyzer(device.NewService(true))
	s.ctx = context.Background()
}

func (s *HeuristicAnalyzerSuite) data(ua string) models.ContextualData {
	return models.ContextualData{IPAddress: "203.0.113.9", UserAgent: ua, Locale: "en-US", Timezone: "Europe/Berlin"}
}

func (s *HeuristicAnalyzerSuite) TestFirstSeenDevice() {
	a, err := s.analyzer.Analyze(s.ctx, "ana@example.com", "device-1", s.data(chromeMac))
	s.Require().NoError(err)
	s.InDelta(0.9, a.ConsistencyScore, 1e-9)
	s.False(a.HasAnomalies)
	s.Equal([]string{SignalNewDevice}, a.Signals)
}

func (s *HeuristicAnalyzerSuite) TestKnownDeviceIsFullyConsistent() {
	_, err := s.analyzer.Analyze(s.ctx, "ana@example.com", "device-1", s.data(chromeMac))
	s.Require().NoError(err)

	a, err := s.analyzer.Analyze(s.ctx, "ANA@example.com", "device-1", s.data(chromeMac))
	s.Require().NoError(err)
	s.InDelta(1.0, a.ConsistencyScore, 1e-9)
	s.Empty(a.Signals)
}

func (s *HeuristicAnalyzerSuite) TestDeviceDriftIsAnomalous() {
	_, err := s.analyzer.Analyze(s.ctx, "ana@example.com", "device-1", s.data(chromeMac))
	s.Require().NoError(err)

	a, err := s.analyzer.Analyze(s.ctx, "ana@example.com", "device-1", s.data(firefox))
	s.Require().NoError(err)
	s.True(a.HasAnomalies)
	s.Contains(a.Signals, SignalDeviceDrift)
	s.InDelta(0.7, a.ConsistencyScore, 1e-9)
}

func (s *HeuristicAnalyzerSuite) TestBotUserAgent() {
	a, err := s.analyzer.Analyze(s.ctx, "ana@example.com", "device-1", s.data(googlebot))
	s.Require().NoError(err)
	s.True(a.HasAnomalies)
	s.Contains(a.Signals, SignalBotUserAgent)
	s.InDelta(0.4, a.ConsistencyScore, 1e-9)
}

func (s *HeuristicAnalyzerSuite) TestEmptyContextStaysInRange() {
	a, err := s.analyzer.Analyze(s.ctx, "ana@example.com", "device-1", models.ContextualData{})
	s.Require().NoError(err)
	s.ElementsMatch([]string{SignalMissingIP, SignalMissingUserAgent, SignalMissingLocale, SignalNewDevice}, a.Signals)
	s.InDelta(0.45, a.ConsistencyScore, 1e-9)
	s.False(a.HasAnomalies)
}

func (s *HeuristicAnalyzerSuite) TestKnownDevicesCapped() {
	analyzer := NewHeuristicAnalyzer(device.NewService(true), WithMaxKnownDevices(3))
	for i := range 10 {
		_, err := analyzer.Analyze(s.ctx, fmt.Sprintf("user%d@example.com", i), "device-1", s.data(chromeMac))
		s.Require().NoError(err)
	}
	s.Equal(3, analyzer.KnownDevices())

	// user9 is among the most recent and still known; user0 was evicted.
	a, err := analyzer.Analyze(s.ctx, "user9@example.com", "device-1", s.data(chromeMac))
	s.Require().NoError(err)
	s.Empty(a.Signals)

	a, err = analyzer.Analyze(s.ctx, "user0@example.com", "device-1", s.data(chromeMac))
	s.Require().NoError(err)
	s.Equal([]string{SignalNewDevice}, a.Signals)
	s.Equal(3, analyzer.KnownDevices())
}

func (s *HeuristicAnalyzerSuite) TestIdleDevicesForgotten() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	analyzer := NewHeuristicAnalyzer(device.NewService(true),
		WithKnownDeviceTTL(time.Hour),
		WithAnalyzerClock(func() time.Time { return now }),
	)

	_, err := analyzer.Analyze(s.ctx, "ana@example.com", "device-1", s.data(chromeMac))
	s.Require().NoError(err)
	_, err = analyzer.Analyze(s.ctx, "bo@example.com", "device-1", s.data(chromeMac))
	s.Require().NoError(err)
	s.Equal(2, analyzer.KnownDevices())

	now = now.Add(30 * time.Minute)
	a, err := analyzer.Analyze(s.ctx, "ana@example.com", "device-1", s.data(chromeMac))
	s.Require().NoError(err)
	s.Empty(a.Signals)

	// bo idled past the TTL; ana was refreshed 31 minutes earlier.
	now = now.Add(31 * time.Minute)
	a, err = analyzer.Analyze(s.ctx, "carla@example.com", "device-1", s.data(chromeMac))
	s.Require().NoError(err)
	s.Equal([]string{SignalNewDevice}, a.Signals)
	s.Equal(2, analyzer.KnownDevices())

	a, err = analyzer.Analyze(s.ctx, "bo@example.com", "device-1", s.data(chromeMac))
	s.Require().NoError(err)
	s.Equal([]string{SignalNewDevice}, a.Signals)
}
