package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patrona-app/patrona-backend/internal/models"
	"github.com/patrona-app/patrona-backend/internal/monitor"
	"github.com/patrona-app/patrona-backend/internal/storage"
)

// ErrWalkNotFound is returned for operations on an unknown or ended walk.
var ErrWalkNotFound = errors.New("walk not found")

// dispatchTimeout bounds one alert fan-out.
const dispatchTimeout = 30 * time.Second

// EndReasonArrived sends the all-clear to the walk's contacts on end.
const EndReasonArrived = "arrived"

// walk pairs a session with its running monitor.
type walk struct {
	session *models.WalkSession
	monitor *monitor.Monitor
}

// WalkManager owns the active walks and wires escalation triggers into the
// alert dispatcher. A user has at most one active walk at a time.
type WalkManager struct {
	dispatcher *AlertDispatcher
	pings      storage.PingStore
	monitorCfg monitor.Config // template; SafeWord and callbacks set per walk

	mu     sync.RWMutex
	walks  map[string]*walk  // by session ID
	byUser map[string]string // user name -> active session ID
}

// NewWalkManager creates a walk manager. monitorCfg supplies tier timings
// for new walks; zero values take the monitor defaults.
func NewWalkManager(dispatcher *AlertDispatcher, pings storage.PingStore, monitorCfg monitor.Config) *WalkManager {
	return &WalkManager{
		dispatcher: dispatcher,
		pings:      pings,
		monitorCfg: monitorCfg,
		walks:      make(map[string]*walk),
		byUser:     make(map[string]string),
	}
}

// StartWalk begins monitoring a new walk. Starting a walk for a user who
// already has one ends the previous walk without an all-clear.
func (wm *WalkManager) StartWalk(userName, safeWord, destination string, contacts []models.Contact) (*models.WalkSession, error) {
	normalized, err := normalizeContacts(contacts)
	if err != nil {
		return nil, err
	}

	session := &models.WalkSession{
		SessionID:   uuid.NewString(),
		UserName:    userName,
		SafeWord:    safeWord,
		Destination: destination,
		Contacts:    normalized,
		StartedAt:   time.Now(),
	}

	cfg := wm.monitorCfg
	cfg.SafeWord = safeWord
	cfg.OnCheckIn = func(tier int) {
		log.Printf("⏱  Walk %s: check-in tier %d", session.SessionID, tier)
	}
	cfg.OnTrigger = func(trigger models.TriggerType) {
		// Detached: a transcript request must return on the same
		// schedule whether or not it latched the trigger. The monitor
		// fires at most once per walk, so the goroutine cannot stack.
		go wm.fireAlert(session, trigger)
	}
	mon := monitor.New(cfg)

	wm.mu.Lock()
	if prevID, ok := wm.byUser[userName]; ok {
		if prev, ok := wm.walks[prevID]; ok {
			prev.monitor.Stop()
			delete(wm.walks, prevID)
		}
	}
	wm.walks[session.SessionID] = &walk{session: session, monitor: mon}
	wm.byUser[userName] = session.SessionID
	wm.mu.Unlock()

	mon.Start()
	log.Printf("🚶 Walk %s started for %s", session.SessionID, userName)
	return session, nil
}

// RegisterActivity forwards a voice activity marker to the walk's monitor.
func (wm *WalkManager) RegisterActivity(sessionID string) error {
	w, err := wm.get(sessionID)
	if err != nil {
		return err
	}
	w.monitor.RegisterActivity()
	return nil
}

// ObserveTranscript scans a transcript for the walk's safe word and returns
// the current silence tier. A safe-word match changes nothing observable
// here — the response is identical to a non-matching transcript.
func (wm *WalkManager) ObserveTranscript(sessionID, transcript string) (int, error) {
	w, err := wm.get(sessionID)
	if err != nil {
		return 0, err
	}
	w.monitor.ObserveTranscript(transcript)
	return w.monitor.Tier(), nil
}

// EndWalk stops the walk's monitor synchronously and discards its state.
// Reason "arrived" sends the all-clear to the walk's contacts.
func (wm *WalkManager) EndWalk(ctx context.Context, sessionID, reason string) error {
	wm.mu.Lock()
	w, ok := wm.walks[sessionID]
	if !ok {
		wm.mu.Unlock()
		return ErrWalkNotFound
	}
	delete(wm.walks, sessionID)
	if wm.byUser[w.session.UserName] == sessionID {
		delete(wm.byUser, w.session.UserName)
	}
	wm.mu.Unlock()

	w.monitor.Stop()
	log.Printf("🏁 Walk %s ended (%s)", sessionID, reason)

	if reason == EndReasonArrived {
		if _, err := wm.dispatcher.SendAllClear(ctx, w.session.UserName, w.session.Contacts); err != nil {
			log.Printf("⚠️  All-clear dispatch failed for walk %s: %v", sessionID, err)
		}
	}
	return nil
}

// ActiveWalks returns the number of walks currently monitored.
func (wm *WalkManager) ActiveWalks() int {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return len(wm.walks)
}

func (wm *WalkManager) get(sessionID string) (*walk, error) {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	w, ok := wm.walks[sessionID]
	if !ok {
		return nil, ErrWalkNotFound
	}
	return w, nil
}

// fireAlert runs on the monitor's callback path. It attaches the freshest
// ping for the session when one exists and dispatches exactly once — the
// monitor's latch guarantees it is never re-entered for the same walk.
func (wm *WalkManager) fireAlert(session *models.WalkSession, trigger models.TriggerType) {
	var pos *models.Position
	if ping, err := wm.pings.Get(session.SessionID); err == nil {
		pos = &models.Position{
			Latitude:  ping.Latitude,
			Longitude: ping.Longitude,
			Timestamp: ping.Timestamp,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	res, err := wm.dispatcher.SendAlert(ctx, session.UserName, session.Contacts, pos, trigger)
	if err != nil {
		log.Printf("❌ Emergency dispatch failed for walk %s: %v", session.SessionID, err)
		return
	}
	log.Printf("🆘 Emergency alert (%s) for walk %s: %d sent, %d failed",
		trigger, session.SessionID, res.MessagesSent, res.Failed)
}
