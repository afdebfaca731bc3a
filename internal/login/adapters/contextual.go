package adapters

import (
	"container/list"
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"dcaf/internal/login/device"
	"dcaf/internal/login/models"
	"dcaf/pkg/email"
)

// Signal names reported in ContextualAnalysis.Signals.
const (
	SignalMissingIP        = "missing_ip"
	SignalMissingUserAgent = "missing_user_agent"
	SignalMissingLocale    = "missing_locale"
	SignalBotUserAgent     = "bot_user_agent"
	SignalNewDevice        = "new_device"
	SignalDeviceDrift      = "device_drift"
)

var signalPenalties = map[string]float64{
	SignalMissingIP:        0.2,
	SignalMissingUserAgent: 0.2,
	SignalMissingLocale:    0.05,
	SignalBotUserAgent:     0.5,
	SignalNewDevice:        0.1,
	SignalDeviceDrift:      0.3,
}

var anomalySignals = map[string]bool{
	SignalBotUserAgent: true,
	SignalDeviceDrift:  true,
}

// Defaults for the remembered device table.
const (
	DefaultMaxKnownDevices = 100_000
	DefaultKnownDeviceTTL  = 30 * 24 * time.Hour
)

// knownDevice is what the analyzer remembers about a device signature.
type knownDevice struct {
	key         string
	fingerprint string
	lastSeen    time.Time
}

// HeuristicAnalyzer scores login context with rule penalties. It remembers
// the browser fingerprint seen for each (email, device signature) pair and
// flags drift when the same signature shows up with a different browser or OS.
type HeuristicAnalyzer struct {
	devices *device.Service
	logger  *slog.Logger

	maxKnown int
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	known map[string]*list.Element
	// order holds *knownDevice, most recently seen first.
	order *list.List
}

type AnalyzerOption func(*HeuristicAnalyzer)

func WithAnalyzerLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *HeuristicAnalyzer) { a.logger = logger }
}

// WithMaxKnownDevices caps how many (email, device signature) pairs are
// remembered. The least recently seen pair is forgotten first.
func WithMaxKnownDevices(n int) AnalyzerOption {
	return func(a *HeuristicAnalyzer) {
		if n > 0 {
			a.maxKnown = n
		}
	}
}

// WithKnownDeviceTTL forgets a pair that has not been seen for d.
func WithKnownDeviceTTL(d time.Duration) AnalyzerOption {
	return func(a *HeuristicAnalyzer) {
		if d > 0 {
			a.ttl = d
		}
	}
}

func WithAnalyzerClock(now func() time.Time) AnalyzerOption {
	return func(a *HeuristicAnalyzer) {
		if now != nil {
			a.now = now
		}
	}
}

func NewHeuristicAnalyzer(devices *device.Service, opts ...AnalyzerOption) *HeuristicAnalyzer {
	if devices == nil {
		devices = device.NewService(true)
	}
	a := &HeuristicAnalyzer{
		devices:  devices,
		maxKnown: DefaultMaxKnownDevices,
		ttl:      DefaultKnownDeviceTTL,
		now:      time.Now,
		known:    make(map[string]*list.Element),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *HeuristicAnalyzer) Analyze(ctx context.Context, address, deviceSignature string, data models.ContextualData) (*models.ContextualAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var signals []string
	if strings.TrimSpace(data.IPAddress) == "" {
		signals = append(signals, SignalMissingIP)
	}
	if strings.TrimSpace(data.UserAgent) == "" {
		signals = append(signals, SignalMissingUserAgent)
	} else if device.IsBot(data.UserAgent) {
		signals = append(signals, SignalBotUserAgent)
	}
	if data.Locale == "" && data.Timezone == "" {
		signals = append(signals, SignalMissingLocale)
	}
	if s := a.observeDevice(email.Normalize(address), deviceSignature, data.UserAgent); s != "" {
		signals = append(signals, s)
	}

	score := 1.0
	anomalous := false
	for _, s := range signals {
		score -= signalPenalties[s]
		anomalous = anomalous || anomalySignals[s]
	}
	score = max(score, 0)

	if a.logger != nil && anomalous {
		a.logger.InfoContext(ctx, "contextual anomaly detected",
			"email", email.Mask(address),
			"device", device.ParseUserAgent(data.UserAgent),
			"signals", signals,
		)
	}

	return &models.ContextualAnalysis{
		ConsistencyScore: score,
		HasAnomalies:     anomalous,
		Signals:          signals,
	}, nil
}

// observeDevice records the fingerprint for a device signature and returns
// the signal it raises, if any.
func (a *HeuristicAnalyzer) observeDevice(address, deviceSignature, userAgent string) string {
	fp := a.devices.ComputeFingerprint(userAgent)
	key := address + "\x00" + deviceSignature

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	a.evictStale(now)

	el, seen := a.known[key]
	if !seen {
		a.known[key] = a.order.PushFront(&knownDevice{key: key, fingerprint: fp, lastSeen: now})
		for a.order.Len() > a.maxKnown {
			a.forget(a.order.Back())
		}
		return SignalNewDevice
	}

	prev := el.Value.(*knownDevice)
	prev.lastSeen = now
	a.order.MoveToFront(el)
	if _, drift := a.devices.CompareFingerprints(prev.fingerprint, fp); drift {
		return SignalDeviceDrift
	}
	if prev.fingerprint == "" && fp != "" {
		prev.fingerprint = fp
	}
	return ""
}

// evictStale drops pairs idle for longer than the TTL. The list is ordered by
// lastSeen, so it stops at the first fresh entry.
func (a *HeuristicAnalyzer) evictStale(now time.Time) {
	for el := a.order.Back(); el != nil; el = a.order.Back() {
		if now.Sub(el.Value.(*knownDevice).lastSeen) <= a.ttl {
			return
		}
		a.forget(el)
	}
}

func (a *HeuristicAnalyzer) forget(el *list.Element) {
	delete(a.known, el.Value.(*knownDevice).key)
	a.order.Remove(el)
}

// KnownDevices reports how many pairs are currently remembered.
func (a *HeuristicAnalyzer) KnownDevices() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.order.Len()
}
