// Package override implements the time-boxed double-booking override
// mode. While a session is active, bookings that would otherwise be
// rejected for conflicts are allowed and the overridden conflicts are
// recorded for audit.
package override

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/clearbrook/scheduler/internal/audit"
	"github.com/clearbrook/scheduler/pkg/logging"
)

const (
	// DefaultTimeout disables the session after this much inactivity.
	DefaultTimeout = 10 * time.Minute
	// DefaultWarningLead fires the expiry warning this long before timeout.
	DefaultWarningLead = 30 * time.Second
)

// Timer is the subset of time.Timer the session needs, abstracted so
// tests can drive expiry deterministically.
type Timer interface {
	Stop() bool
}

// TimerFactory schedules fn to run after d. The returned Timer must be
// stoppable before it fires.
type TimerFactory func(d time.Duration, fn func()) Timer

type stdTimer struct{ *time.Timer }

func stdTimerFactory(d time.Duration, fn func()) Timer {
	return stdTimer{time.AfterFunc(d, fn)}
}

// Config configures a Session.
type Config struct {
	Timeout     time.Duration
	WarningLead time.Duration

	Now      func() time.Time
	NewTimer TimerFactory

	// OnWarning is invoked shortly before the session expires, e.g. to
	// surface a toast in the calendar UI. Optional.
	OnWarning func()

	// OnExpire is invoked when the session disables itself after the
	// inactivity timeout, but not on explicit disables. Optional.
	OnExpire func()

	Recorder audit.Recorder
	Logger   *logging.Logger
}

// Session is the double-booking override mode for one staff workstation.
// It is Disabled until explicitly enabled, stays Active while interactions
// keep arriving, and disables itself after the inactivity timeout.
type Session struct {
	mu sync.Mutex

	active          bool
	actor           string
	activatedAt     time.Time
	lastInteraction time.Time

	expiryTimer  Timer
	warningTimer Timer

	timeout     time.Duration
	warningLead time.Duration
	now         func() time.Time
	newTimer    TimerFactory
	onWarning   func()
	onExpire    func()
	recorder    audit.Recorder
	logger      *logging.Logger
}

// NewSession creates a disabled session.
func NewSession(cfg Config) *Session {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.WarningLead <= 0 || cfg.WarningLead >= cfg.Timeout {
		cfg.WarningLead = DefaultWarningLead
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewTimer == nil {
		cfg.NewTimer = stdTimerFactory
	}
	if cfg.Recorder == nil {
		cfg.Recorder = audit.NewMemoryRecorder()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Session{
		timeout:     cfg.Timeout,
		warningLead: cfg.WarningLead,
		now:         cfg.Now,
		newTimer:    cfg.NewTimer,
		onWarning:   cfg.OnWarning,
		onExpire:    cfg.OnExpire,
		recorder:    cfg.Recorder,
		logger:      cfg.Logger,
	}
}

// Active reports whether override mode is currently on.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Actor returns who enabled the session, or "" when disabled.
func (s *Session) Actor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actor
}

// Enable activates override mode for the given actor. Enabling an
// already-active session refreshes its timers and takes over the actor,
// so subsequent overrides are attributed to the most recent enabler.
func (s *Session) Enable(ctx context.Context, actor string) {
	s.mu.Lock()
	if s.active {
		s.actor = actor
		s.rearmLocked()
		s.mu.Unlock()
		return
	}
	s.active = true
	s.actor = actor
	s.activatedAt = s.now()
	s.rearmLocked()
	s.mu.Unlock()

	s.logger.Info("override mode enabled", "actor", actor, "timeout", s.timeout)
	s.record(ctx, audit.EventOverrideEnabled, actor, audit.Details{Initiator: "user"})
}

// Touch registers a user interaction, resetting the inactivity and
// warning timers. No-op when disabled.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.rearmLocked()
}

// Disable deactivates override mode by explicit user action.
func (s *Session) Disable(ctx context.Context, actor string) {
	s.disable(ctx, actor, "user")
}

// Close tears the session down, cancelling any pending timers. Safe to
// call on a disabled session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearTimersLocked()
	s.active = false
	s.actor = ""
}

func (s *Session) disable(ctx context.Context, actor, initiator string) bool {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return false
	}
	s.clearTimersLocked()
	s.active = false
	enabledBy := s.actor
	s.actor = ""
	s.mu.Unlock()

	if actor == "" {
		actor = enabledBy
	}
	s.logger.Info("override mode disabled", "actor", actor, "initiator", initiator)
	s.record(ctx, audit.EventOverrideDisabled, actor, audit.Details{Initiator: initiator})
	return true
}

// rearmLocked clears then re-arms both timers. Callers hold s.mu.
// Timers are always cleared before re-arming so no exit path can leak a
// pending callback.
func (s *Session) rearmLocked() {
	s.clearTimersLocked()
	s.lastInteraction = s.now()
	s.warningTimer = s.newTimer(s.timeout-s.warningLead, s.fireWarning)
	s.expiryTimer = s.newTimer(s.timeout, s.fireExpiry)
}

func (s *Session) clearTimersLocked() {
	if s.warningTimer != nil {
		s.warningTimer.Stop()
		s.warningTimer = nil
	}
	if s.expiryTimer != nil {
		s.expiryTimer.Stop()
		s.expiryTimer = nil
	}
}

func (s *Session) fireWarning() {
	s.mu.Lock()
	active := s.active
	cb := s.onWarning
	s.mu.Unlock()
	if !active || cb == nil {
		return
	}
	cb()
}

func (s *Session) fireExpiry() {
	s.logger.Info("override mode expiring after inactivity")
	if s.disable(context.Background(), "", "timeout") && s.onExpire != nil {
		s.onExpire()
	}
}

func (s *Session) record(ctx context.Context, eventType audit.EventType, actor string, details audit.Details) {
	payload, _ := json.Marshal(details)
	if err := s.recorder.Record(ctx, audit.Event{
		EventType: eventType,
		Actor:     actor,
		Details:   payload,
	}); err != nil {
		s.logger.Error("override audit record failed", "event", eventType, "error", err)
	}
}
