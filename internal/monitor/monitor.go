// Package monitor implements the tiered silence watchdog for one walk.
//
// The ladder is strictly monotonic within a cycle: 0 (nominal) → 1 (gentle
// check-in) → 2 (firmer check-in) → 3 (emergency). Voice activity before
// tier 3 resets the ladder; once the emergency latch fires nothing resets
// it for the lifetime of the walk.
package monitor

import (
	"strings"
	"sync"
	"time"

	"github.com/patrona-app/patrona-backend/internal/models"
)

// Default thresholds. Tier 2 and 3 waits stack on top of the tier 1
// silence window.
const (
	DefaultTier1Silence = 90 * time.Second
	DefaultTier2Wait    = 20 * time.Second
	DefaultTier3Wait    = 30 * time.Second
	DefaultPollInterval = 5 * time.Second
)

// Config configures one Monitor.
type Config struct {
	SafeWord string

	Tier1Silence time.Duration
	Tier2Wait    time.Duration
	Tier3Wait    time.Duration
	PollInterval time.Duration

	// OnCheckIn receives tier 1 and 2 transitions. UI-facing only, never
	// called on the safe-word path.
	OnCheckIn func(tier int)
	// OnTrigger fires the emergency. Called at most once per walk.
	OnTrigger func(trigger models.TriggerType)
}

// Monitor watches activity and transcript events for one walk. Poll ticks
// and event callbacks serialize on one mutex so a tier transition and an
// activity reset cannot interleave.
type Monitor struct {
	cfg Config

	mu           sync.Mutex
	tier         int
	lastActivity time.Time
	alertFired   bool
	stopped      bool

	stop chan struct{}
	now  func() time.Time // swapped in tests
}

// New creates a monitor. Zero durations take the defaults.
func New(cfg Config) *Monitor {
	if cfg.Tier1Silence <= 0 {
		cfg.Tier1Silence = DefaultTier1Silence
	}
	if cfg.Tier2Wait <= 0 {
		cfg.Tier2Wait = DefaultTier2Wait
	}
	if cfg.Tier3Wait <= 0 {
		cfg.Tier3Wait = DefaultTier3Wait
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Monitor{
		cfg:  cfg,
		stop: make(chan struct{}),
		now:  time.Now,
	}
}

// Start begins polling. Transitions are detected within one poll interval
// of the silence threshold, not exactly at it.
func (m *Monitor) Start() {
	m.mu.Lock()
	m.lastActivity = m.now()
	m.mu.Unlock()
	go m.loop()
}

// Stop halts polling and freezes state. Safe to call more than once; an
// alert dispatch already triggered still completes.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.stopped = true
	close(m.stop)
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// tick advances the ladder one step at most, based on total silence since
// the last activity. Callbacks run outside the lock.
func (m *Monitor) tick() {
	m.mu.Lock()
	silence := m.now().Sub(m.lastActivity)

	checkIn := 0
	var trigger models.TriggerType
	switch {
	case m.tier == 0 && silence >= m.cfg.Tier1Silence:
		m.tier = 1
		checkIn = 1
	case m.tier == 1 && silence >= m.cfg.Tier1Silence+m.cfg.Tier2Wait:
		m.tier = 2
		checkIn = 2
	case m.tier == 2 && silence >= m.cfg.Tier1Silence+m.cfg.Tier2Wait+m.cfg.Tier3Wait:
		m.tier = 3
		if !m.alertFired {
			m.alertFired = true
			trigger = models.TriggerSilence
		}
	}
	m.mu.Unlock()

	if checkIn > 0 && m.cfg.OnCheckIn != nil {
		m.cfg.OnCheckIn(checkIn)
	}
	if trigger != "" && m.cfg.OnTrigger != nil {
		m.cfg.OnTrigger(trigger)
	}
}

// RegisterActivity records a voice activity marker, resetting the ladder.
// Activity after tier 3 has no effect — the emergency latch is one-way.
func (m *Monitor) RegisterActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tier == 3 {
		return
	}
	m.lastActivity = m.now()
	m.tier = 0
}

// ObserveTranscript scans a transcript for the safe word, case-insensitive
// and trimmed. A match latches the emergency trigger silently: no tier
// change, no check-in, nothing the voice layer could surface. An empty safe
// word or transcript never matches.
func (m *Monitor) ObserveTranscript(transcript string) {
	word := strings.ToLower(strings.TrimSpace(m.cfg.SafeWord))
	text := strings.ToLower(strings.TrimSpace(transcript))

	m.mu.Lock()
	fire := false
	if word != "" && text != "" && strings.Contains(text, word) && !m.alertFired {
		m.alertFired = true
		fire = true
	}
	m.mu.Unlock()

	if fire && m.cfg.OnTrigger != nil {
		m.cfg.OnTrigger(models.TriggerSafeWord)
	}
}

// Tier returns the current silence tier.
func (m *Monitor) Tier() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tier
}

// AlertFired reports whether the emergency trigger has latched.
func (m *Monitor) AlertFired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alertFired
}
