package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/patrona-app/patrona-backend/internal/models"
	"github.com/patrona-app/patrona-backend/internal/monitor"
	"github.com/patrona-app/patrona-backend/internal/storage"
)

// fastMonitorCfg compresses the tier ladder so escalation tests finish in
// well under a second.
func fastMonitorCfg() monitor.Config {
	return monitor.Config{
		Tier1Silence: 100 * time.Millisecond,
		Tier2Wait:    50 * time.Millisecond,
		Tier3Wait:    50 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	}
}

func newTestWalkManager(cfg monitor.Config) (*WalkManager, *fakeSender, storage.PingStore) {
	sender := &fakeSender{}
	store := storage.NewMemoryPingStore()
	wm := NewWalkManager(NewAlertDispatcher(sender), store, cfg)
	return wm, sender, store
}

// waitForSends polls until the fake transport has delivered want messages.
// Dispatch runs detached from the triggering event, so tests wait rather
// than assert immediately.
func waitForSends(t *testing.T, sender *fakeSender, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sender.sentCount() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("sends = %d, want %d before deadline", sender.sentCount(), want)
}

func TestSafeWordDispatchesAlertOnce(t *testing.T) {
	wm, sender, _ := newTestWalkManager(fastMonitorCfg())

	session, err := wm.StartWalk("Maya", "pineapple", "", threeContacts())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer wm.EndWalk(context.Background(), session.SessionID, "cancelled")

	tier, err := wm.ObserveTranscript(session.SessionID, "craving PINEAPPLE pizza right now")
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}
	// The response surface stays silent: tier reflects the ladder only.
	if tier != 0 {
		t.Fatalf("tier = %d, want 0", tier)
	}

	waitForSends(t, sender, 3)
	if !strings.Contains(sender.bodies[0], "safe word detected") {
		t.Fatalf("alert body = %q", sender.bodies[0])
	}

	// Repeat transcript: the latch permits one trigger per walk.
	wm.ObserveTranscript(session.SessionID, "pineapple")
	time.Sleep(100 * time.Millisecond)
	if got := sender.sentCount(); got != 3 {
		t.Fatalf("sends after repeat = %d, want 3", got)
	}
}

func TestSafeWordAlertAttachesLatestPing(t *testing.T) {
	wm, sender, store := newTestWalkManager(fastMonitorCfg())

	session, _ := wm.StartWalk("Maya", "pineapple", "", threeContacts())
	defer wm.EndWalk(context.Background(), session.SessionID, "cancelled")

	store.Upsert(session.SessionID, 44.98, -93.26, time.Now())
	wm.ObserveTranscript(session.SessionID, "pineapple")

	waitForSends(t, sender, 1)
	if !strings.Contains(sender.bodies[0], "44.980000, -93.260000") {
		t.Fatalf("alert body missing ping coordinates: %q", sender.bodies[0])
	}
}

func TestSafeWordTranscriptNotDelayedByDispatch(t *testing.T) {
	sender := &fakeSender{delay: 300 * time.Millisecond}
	store := storage.NewMemoryPingStore()
	wm := NewWalkManager(NewAlertDispatcher(sender), store, fastMonitorCfg())

	session, _ := wm.StartWalk("Maya", "pineapple", "", threeContacts())
	defer wm.EndWalk(context.Background(), session.SessionID, "cancelled")

	start := time.Now()
	if _, err := wm.ObserveTranscript(session.SessionID, "nothing to report"); err != nil {
		t.Fatalf("transcript: %v", err)
	}
	plain := time.Since(start)

	start = time.Now()
	if _, err := wm.ObserveTranscript(session.SessionID, "the pineapple is ripe"); err != nil {
		t.Fatalf("transcript: %v", err)
	}
	matched := time.Since(start)

	// A matching transcript must return on the same schedule as a plain
	// one; the slow carrier runs off the request path.
	if matched > plain+50*time.Millisecond {
		t.Fatalf("safe-word transcript took %v vs %v for a plain one", matched, plain)
	}
	waitForSends(t, sender, 3)
}

func TestSilenceEscalationFiresOnce(t *testing.T) {
	wm, sender, _ := newTestWalkManager(fastMonitorCfg())

	session, _ := wm.StartWalk("Maya", "pineapple", "", threeContacts())
	defer wm.EndWalk(context.Background(), session.SessionID, "cancelled")

	// T1+T2+T3 = 200ms; leave generous slack for the poll loop.
	time.Sleep(500 * time.Millisecond)
	if got := sender.sentCount(); got != 3 {
		t.Fatalf("sends = %d, want one per contact", got)
	}
	if !strings.Contains(sender.bodies[0], "no response to check-ins") {
		t.Fatalf("alert body = %q", sender.bodies[0])
	}

	// Continued silence never re-fires.
	time.Sleep(300 * time.Millisecond)
	if got := sender.sentCount(); got != 3 {
		t.Fatalf("sends after more silence = %d, want still 3", got)
	}
}

func TestActivityPreventsEscalation(t *testing.T) {
	cfg := fastMonitorCfg()
	cfg.Tier1Silence = 150 * time.Millisecond
	wm, sender, _ := newTestWalkManager(cfg)

	session, _ := wm.StartWalk("Maya", "pineapple", "", threeContacts())
	defer wm.EndWalk(context.Background(), session.SessionID, "cancelled")

	for i := 0; i < 12; i++ {
		time.Sleep(50 * time.Millisecond)
		if err := wm.RegisterActivity(session.SessionID); err != nil {
			t.Fatalf("activity: %v", err)
		}
	}
	if got := sender.sentCount(); got != 0 {
		t.Fatalf("sends = %d, want 0 while the user keeps talking", got)
	}
}

func TestStartWalkReplacesPrevious(t *testing.T) {
	wm, _, _ := newTestWalkManager(fastMonitorCfg())

	first, _ := wm.StartWalk("Maya", "pineapple", "", threeContacts())
	second, _ := wm.StartWalk("Maya", "mango", "", threeContacts())
	defer wm.EndWalk(context.Background(), second.SessionID, "cancelled")

	if wm.ActiveWalks() != 1 {
		t.Fatalf("active walks = %d, want 1", wm.ActiveWalks())
	}
	if err := wm.RegisterActivity(first.SessionID); !errors.Is(err, ErrWalkNotFound) {
		t.Fatalf("old session should be gone, got %v", err)
	}
	if err := wm.RegisterActivity(second.SessionID); err != nil {
		t.Fatalf("new session should be live: %v", err)
	}
}

func TestEndWalkArrivedSendsAllClear(t *testing.T) {
	wm, sender, _ := newTestWalkManager(fastMonitorCfg())

	session, _ := wm.StartWalk("Maya", "pineapple", "", threeContacts())
	if err := wm.EndWalk(context.Background(), session.SessionID, EndReasonArrived); err != nil {
		t.Fatalf("end: %v", err)
	}

	if got := sender.sentCount(); got != 3 {
		t.Fatalf("sends = %d, want one all-clear per contact", got)
	}
	if !strings.Contains(sender.bodies[0], "confirmed they are safe") {
		t.Fatalf("all-clear body = %q", sender.bodies[0])
	}
	if wm.ActiveWalks() != 0 {
		t.Fatalf("active walks = %d, want 0", wm.ActiveWalks())
	}
}

func TestEndWalkCancelledSendsNothing(t *testing.T) {
	wm, sender, _ := newTestWalkManager(fastMonitorCfg())

	session, _ := wm.StartWalk("Maya", "pineapple", "", threeContacts())
	if err := wm.EndWalk(context.Background(), session.SessionID, "cancelled"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if got := sender.sentCount(); got != 0 {
		t.Fatalf("sends = %d, want 0 on cancel", got)
	}

	if err := wm.EndWalk(context.Background(), session.SessionID, "cancelled"); !errors.Is(err, ErrWalkNotFound) {
		t.Fatalf("double end should report ErrWalkNotFound, got %v", err)
	}
}

func TestEndWalkStopsEscalation(t *testing.T) {
	wm, sender, _ := newTestWalkManager(fastMonitorCfg())

	session, _ := wm.StartWalk("Maya", "pineapple", "", threeContacts())
	wm.EndWalk(context.Background(), session.SessionID, "cancelled")

	// Past the full ladder: a stopped monitor must never fire.
	time.Sleep(400 * time.Millisecond)
	if got := sender.sentCount(); got != 0 {
		t.Fatalf("sends = %d, want 0 after the walk ended", got)
	}
}

func TestStartWalkRejectsBadContact(t *testing.T) {
	wm, _, _ := newTestWalkManager(fastMonitorCfg())

	contacts := []models.Contact{{Name: "Bad", Phone: "0123"}}
	if _, err := wm.StartWalk("Maya", "pineapple", "", contacts); !errors.Is(err, ErrInvalidContact) {
		t.Fatalf("got %v, want ErrInvalidContact", err)
	}
	if wm.ActiveWalks() != 0 {
		t.Fatal("rejected walk must not register")
	}
}
