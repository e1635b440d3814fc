package session

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// tickInterval is the countdown recompute cadence. Remaining time is
// always derived from the absolute deadline, so a coarser or suspended
// tick never drifts the clock.
const tickInterval = 250 * time.Millisecond

// CountdownConfig configures a CountdownTimer.
type CountdownConfig struct {
	UserID     string
	ExamID     uuid.UUID
	Deadline   time.Time
	Checkpoint CheckpointStore
	// OnTick receives whole remaining seconds. Notified every second
	// inside the final minute and on minute boundaries above it.
	OnTick func(remaining int)
	// OnExpire fires exactly once when the deadline passes, however late
	// the tick that observes it runs.
	OnExpire func()
	Log      zerolog.Logger
}

// CountdownTimer is a wall-clock-anchored countdown. The absolute deadline
// is the source of truth; every tick recomputes remaining time from it and
// persists the deadline so a reload can recover.
type CountdownTimer struct {
	cfg CountdownConfig

	now func() time.Time

	mu       sync.Mutex
	cancel   context.CancelFunc
	stopped  bool
	lastSent int

	expireOnce sync.Once
	log        zerolog.Logger
}

// NewCountdownTimer creates a timer anchored to cfg.Deadline.
func NewCountdownTimer(cfg CountdownConfig) *CountdownTimer {
	return &CountdownTimer{
		cfg:      cfg,
		now:      time.Now,
		lastSent: -1,
		log:      cfg.Log.With().Str("component", "countdown").Logger(),
	}
}

// ResumeDeadline returns the persisted deadline for the session if one
// exists and still lies in the future; otherwise it computes a fresh
// deadline from the exam duration. Checkpoint read failures fall back to a
// fresh deadline — a broken checkpoint must never block the exam.
func ResumeDeadline(ctx context.Context, cp CheckpointStore, userID string, examID uuid.UUID, duration time.Duration, now time.Time, log zerolog.Logger) time.Time {
	deadline, ok, err := cp.LoadDeadline(ctx, userID, examID)
	if err != nil {
		log.Warn().Err(err).Msg("Checkpoint read failed, starting fresh countdown")
		return now.Add(duration)
	}
	if ok && deadline.After(now) {
		return deadline
	}
	return now.Add(duration)
}

// Remaining returns whole remaining seconds, clamped at zero.
func (t *CountdownTimer) Remaining() int {
	r := int(math.Ceil(t.cfg.Deadline.Sub(t.now()).Seconds()))
	if r < 0 {
		return 0
	}
	return r
}

// Deadline returns the absolute end timestamp.
func (t *CountdownTimer) Deadline() time.Time {
	return t.cfg.Deadline
}

// Start launches the tick loop. Safe to call once; the loop ends when the
// deadline passes, Stop is called, or ctx is cancelled.
func (t *CountdownTimer) Start(ctx context.Context) {
	t.mu.Lock()
	if t.stopped || t.cancel != nil {
		t.mu.Unlock()
		return
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.mu.Unlock()

	go t.run(ctx)
}

// Stop cancels the tick loop. Idempotent; a stopped timer never fires
// expiry.
func (t *CountdownTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *CountdownTimer) run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	t.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if t.tick(ctx) {
				return
			}
		}
	}
}

// tick recomputes remaining time, persists the deadline, notifies the tick
// callback, and fires expiry when the deadline has passed. Returns true
// once the countdown is finished.
func (t *CountdownTimer) tick(ctx context.Context) bool {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return true
	}
	t.mu.Unlock()

	if err := t.cfg.Checkpoint.SaveDeadline(ctx, t.cfg.UserID, t.cfg.ExamID, t.cfg.Deadline); err != nil {
		t.log.Warn().Err(err).Msg("Deadline checkpoint failed")
	}

	remaining := int(math.Ceil(t.cfg.Deadline.Sub(t.now()).Seconds()))
	if remaining <= 0 {
		// Clamped, not looped: however far past zero this tick runs,
		// expiry fires once and the loop ends.
		t.notify(0)
		t.expireOnce.Do(func() {
			if t.cfg.OnExpire != nil {
				t.cfg.OnExpire()
			}
		})
		t.Stop()
		return true
	}

	// Second-accurate display matters only near the end; above one minute
	// a boundary update per minute is enough.
	if remaining <= 60 || remaining%60 == 0 {
		t.notify(remaining)
	}
	return false
}

func (t *CountdownTimer) notify(remaining int) {
	t.mu.Lock()
	if remaining == t.lastSent {
		t.mu.Unlock()
		return
	}
	t.lastSent = remaining
	t.mu.Unlock()

	if t.cfg.OnTick != nil {
		t.cfg.OnTick(remaining)
	}
}
