package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"pakngate/internal/disclosure/config"
	"pakngate/internal/disclosure/models"
)

// challenge is the live state machine behind one OTP verification attempt.
//
// Verification states move input -> verifying -> success, with the
// verifying -> error -> input retry loop on failure. The resend cooldown runs
// as an independent countdown next to the verification state.
//
// All mutation happens under mu. The countdown goroutine and the dismiss timer
// are the only resources owned here; closeLocked releases both, and every
// discard path (explicit close, auto-dismiss, replacement by a new lookup)
// goes through it.
type challenge struct {
	mu sync.Mutex

	id       string
	caseCode string

	state     models.ChallengeState
	lastError string

	remaining    int
	tickInterval time.Duration
	stopTick     chan struct{}

	dismissTimer   *time.Timer
	verifyInFlight bool
	resendInFlight bool
	closed         bool
}

// newChallenge creates a challenge in the input state with the cooldown
// already running: a citizen cannot request a resend right after the first
// code was issued.
func newChallenge(caseCode string, cfg config.Challenge) *challenge {
	c := &challenge{
		id:           uuid.NewString(),
		caseCode:     caseCode,
		state:        models.StateInput,
		tickInterval: cfg.TickInterval,
	}
	c.mu.Lock()
	c.startCooldownLocked(cfg.CooldownSeconds)
	c.mu.Unlock()
	return c
}

// startCooldownLocked restarts the countdown at n seconds, superseding any
// countdown already running. Caller holds c.mu.
func (c *challenge) startCooldownLocked(n int) {
	c.stopCooldownLocked()
	c.remaining = n
	if n <= 0 {
		return
	}
	stop := make(chan struct{})
	c.stopTick = stop
	go c.countdown(stop)
}

// countdown decrements the cooldown once per tick until it reaches zero or the
// stop channel closes. The stopTick identity check guards against a stale
// goroutine surviving a cooldown restart.
func (c *challenge) countdown(stop chan struct{}) {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.closed || c.stopTick != stop {
				c.mu.Unlock()
				return
			}
			if c.remaining > 0 {
				c.remaining--
			}
			done := c.remaining == 0
			if done {
				c.stopTick = nil
			}
			c.mu.Unlock()
			if done {
				return
			}
		}
	}
}

// stopCooldownLocked cancels the countdown goroutine. Caller holds c.mu.
func (c *challenge) stopCooldownLocked() {
	if c.stopTick != nil {
		close(c.stopTick)
		c.stopTick = nil
	}
}

// closeLocked releases the challenge's resources and clears its state.
// Idempotent. Caller holds c.mu.
func (c *challenge) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	c.stopCooldownLocked()
	if c.dismissTimer != nil {
		c.dismissTimer.Stop()
		c.dismissTimer = nil
	}
	c.lastError = ""
}

func (c *challenge) close() {
	c.mu.Lock()
	c.closeLocked()
	c.mu.Unlock()
}

// snapshotLocked copies the observable state for the presentation layer.
// Caller holds c.mu.
func (c *challenge) snapshotLocked() *models.Challenge {
	return &models.Challenge{
		ID:                       c.id,
		CaseCode:                 c.caseCode,
		State:                    c.state,
		RemainingCooldownSeconds: c.remaining,
		LastError:                c.lastError,
	}
}

func (c *challenge) snapshot() *models.Challenge {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}
