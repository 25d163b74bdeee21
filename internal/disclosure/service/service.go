// Package service owns the OTP-gated case disclosure flow: the lookup gate,
// the challenge lifecycle, and custody of disclosed case records.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"pakngate/internal/audit"
	"pakngate/internal/disclosure/backend"
	"pakngate/internal/disclosure/config"
	"pakngate/internal/disclosure/models"
	"pakngate/internal/disclosure/wire"
	"pakngate/internal/platform/metrics"
	dErrors "pakngate/pkg/domain-errors"
	"pakngate/pkg/requestcontext"
)

// User-facing fallback messages, used when the upstream supplies none.
const (
	msgLookupFailed = "unable to look up this case code"
	msgOTPTooShort  = "OTP must be at least 6 characters"
	msgOTPInvalid   = "invalid or expired code"
	msgResendFailed = "unable to resend the code"
	msgCodeResent   = "a new code has been sent"
	msgVerified     = "verification successful"
)

// Backend is the upstream PAKN service consumed by the flow.
type Backend interface {
	Lookup(ctx context.Context, caseCode string) (backend.Ack, error)
	Verify(ctx context.Context, caseCode, otpCode string) (backend.Ack, *wire.DisclosedCaseWire, error)
	Resend(ctx context.Context, caseCode string) (backend.Ack, error)
}

// Throttle guards OTP issuance per case code independent of any single
// challenge instance (and, with the Redis store, across gateway instances).
type Throttle interface {
	Remaining(ctx context.Context, caseCode string, now time.Time) (time.Duration, error)
	Reserve(ctx context.Context, caseCode string, window time.Duration, now time.Time) error
	Clear(ctx context.Context, caseCode string) error
}

// Notifier is the message side-channel surfaced to the citizen (the portal's
// toast bar). The service depends only on this capability, never on a concrete
// singleton, so tests can inject a stub sink.
type Notifier interface {
	Notify(ctx context.Context, message string, severity models.Severity)
}

// logNotifier is the default sink when no UI channel is wired.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(ctx context.Context, message string, severity models.Severity) {
	n.logger.InfoContext(ctx, "notify", "message", message, "severity", string(severity))
}

// disclosure couples a revealed case record with the code it belongs to, so a
// new lookup for the same case can discard it.
type disclosure struct {
	caseCode string
	record   *models.DisclosedCase
}

// Service coordinates challenges. At most one live challenge exists per case
// code; starting a new lookup replaces and closes any prior one.
type Service struct {
	backend        Backend
	throttle       Throttle
	notifier       Notifier
	auditPublisher audit.Publisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	cfg            config.Challenge

	mu          sync.Mutex
	byID        map[string]*challenge
	byCase      map[string]*challenge
	disclosures map[string]*disclosure
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithThrottle(t Throttle) Option {
	return func(s *Service) { s.throttle = t }
}

func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithConfig(cfg config.Challenge) Option {
	return func(s *Service) { s.cfg = cfg }
}

// New builds a Service around the upstream backend.
func New(b Backend, throttleStore Throttle, opts ...Option) (*Service, error) {
	if b == nil {
		return nil, errors.New("backend client is required")
	}
	if throttleStore == nil {
		return nil, errors.New("issuance throttle store is required")
	}

	s := &Service{
		backend:     b,
		throttle:    throttleStore,
		logger:      slog.Default(),
		cfg:         config.Default(),
		byID:        make(map[string]*challenge),
		byCase:      make(map[string]*challenge),
		disclosures: make(map[string]*disclosure),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = logNotifier{logger: s.logger}
	}
	return s, nil
}

// RequestChallenge is the lookup gate. It rejects empty codes locally, makes
// exactly one upstream lookup call, and on success starts a fresh challenge
// bound to the trimmed code, discarding any prior challenge or disclosure for
// that code. Retry is citizen-initiated; the gate never retries on its own.
func (s *Service) RequestChallenge(ctx context.Context, rawCode string) (*models.Challenge, error) {
	caseCode, err := models.NormalizeCaseCode(rawCode)
	if err != nil {
		return nil, err
	}

	ack, err := s.backend.Lookup(ctx, caseCode)
	if err != nil {
		s.incLookupFailed()
		audit.Log(ctx, s.logger, s.auditPublisher, audit.ActionLookupFailed, caseCode, "upstream unreachable")
		s.notifier.Notify(ctx, msgLookupFailed, models.SeverityWarning)
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamFailure, msgLookupFailed)
	}
	if !ack.Success {
		msg := ack.Message
		if msg == "" {
			msg = msgLookupFailed
		}
		s.incLookupFailed()
		audit.Log(ctx, s.logger, s.auditPublisher, audit.ActionLookupFailed, caseCode, msg)
		s.notifier.Notify(ctx, msg, models.SeverityWarning)
		return nil, dErrors.New(dErrors.CodeNotFound, msg)
	}

	ch := newChallenge(caseCode, s.cfg)

	s.mu.Lock()
	s.discardCaseLocked(caseCode)
	s.byID[ch.id] = ch
	s.byCase[caseCode] = ch
	s.mu.Unlock()

	now := requestcontext.Now(ctx)
	if err := s.throttle.Reserve(ctx, caseCode, s.cfg.CooldownWindow(), now); err != nil {
		s.logger.WarnContext(ctx, "issuance throttle reserve failed", "error", err)
	}

	if s.metrics != nil {
		s.metrics.LookupsStarted.Inc()
		s.metrics.ChallengesLive.Inc()
	}
	audit.Log(ctx, s.logger, s.auditPublisher, audit.ActionLookupRequested, caseCode, "")
	return ch.snapshot(), nil
}

// Challenge returns the current snapshot, for countdown and state rendering.
func (s *Service) Challenge(_ context.Context, challengeID string) (*models.Challenge, error) {
	ch, err := s.lookupChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	return ch.snapshot(), nil
}

// Verify submits an OTP. The guard (length, reachable state) is enforced
// before the upstream verifier is contacted. A verify result arriving after
// the challenge was closed or replaced is dropped without mutating anything.
func (s *Service) Verify(ctx context.Context, challengeID, otpCode string) (*models.Challenge, error) {
	ch, err := s.lookupChallenge(challengeID)
	if err != nil {
		return nil, err
	}

	code := strings.TrimSpace(otpCode)

	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeChallengeClosed, "challenge is closed")
	}
	if !ch.state.CanSubmit() {
		ch.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeConflict, "a verification is already in progress")
	}
	if len(code) < s.cfg.MinOTPLength {
		// Local guard: the remote verifier is never contacted, state stays put.
		ch.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeInvalidInput, msgOTPTooShort)
	}
	ch.state = models.StateVerifying
	ch.verifyInFlight = true
	caseCode := ch.caseCode
	ch.mu.Unlock()

	ack, record, callErr := s.backend.Verify(ctx, caseCode, code)

	ch.mu.Lock()
	ch.verifyInFlight = false
	if ch.closed {
		// Late response for a closed or replaced challenge: no-op.
		ch.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeChallengeClosed, "challenge is closed")
	}

	if callErr != nil || !ack.Success {
		msg := msgOTPInvalid
		reason := "upstream unreachable"
		if callErr == nil {
			reason = ack.Message
			if ack.Message != "" {
				msg = ack.Message
			}
		}
		ch.state = models.StateError
		ch.lastError = msg
		snap := ch.snapshotLocked()
		ch.mu.Unlock()

		s.countVerification("failure")
		audit.Log(ctx, s.logger, s.auditPublisher, audit.ActionOTPRejected, caseCode, reason)
		s.notifier.Notify(ctx, msg, models.SeverityError)
		return snap, nil
	}

	ch.state = models.StateSuccess
	ch.lastError = ""
	ch.dismissTimer = time.AfterFunc(s.cfg.DismissDelay, func() { s.dismiss(ch) })
	snap := ch.snapshotLocked()
	ch.mu.Unlock()

	s.storeDisclosure(ch, record.ToDomain())

	s.countVerification("success")
	if s.metrics != nil {
		s.metrics.CasesDisclosed.Inc()
	}
	audit.Log(ctx, s.logger, s.auditPublisher, audit.ActionOTPVerified, caseCode, "")
	audit.Log(ctx, s.logger, s.auditPublisher, audit.ActionCaseDisclosed, caseCode, "")
	s.notifier.Notify(ctx, msgVerified, models.SeverityInfo)
	return snap, nil
}

// Resend asks the upstream to issue a fresh code. The transition is guarded by
// the cooldown value at call time, not by any disabled control in the UI, and
// additionally by the shared issuance throttle. A failed resend leaves the
// cooldown untouched so the citizen is not penalized for a code that never
// went out.
func (s *Service) Resend(ctx context.Context, challengeID string) (*models.Challenge, error) {
	ch, err := s.lookupChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeChallengeClosed, "challenge is closed")
	}
	if ch.state == models.StateSuccess {
		ch.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeConflict, "challenge already completed")
	}
	if ch.resendInFlight {
		ch.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeConflict, "a resend is already in progress")
	}
	if ch.remaining > 0 {
		remaining := ch.remaining
		ch.mu.Unlock()
		s.rejectResend(ctx, ch.caseCode)
		return nil, dErrors.Newf(dErrors.CodeCooldownActive, "resend available in %d seconds", remaining)
	}
	caseCode := ch.caseCode
	ch.resendInFlight = true
	ch.mu.Unlock()

	// Cross-instance guard: the local countdown may have drifted from the
	// shared window (another instance just re-issued for this code).
	if rem, thrErr := s.throttle.Remaining(ctx, caseCode, now); thrErr != nil {
		s.logger.WarnContext(ctx, "issuance throttle check failed", "error", thrErr)
	} else if rem > 0 {
		ch.mu.Lock()
		ch.resendInFlight = false
		ch.mu.Unlock()
		s.rejectResend(ctx, caseCode)
		return nil, dErrors.Newf(dErrors.CodeCooldownActive, "resend available in %d seconds", int(rem.Seconds())+1)
	}

	ack, callErr := s.backend.Resend(ctx, caseCode)

	ch.mu.Lock()
	ch.resendInFlight = false
	if ch.closed {
		ch.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeChallengeClosed, "challenge is closed")
	}
	if callErr != nil || !ack.Success {
		msg := msgResendFailed
		if callErr == nil && ack.Message != "" {
			msg = ack.Message
		}
		ch.mu.Unlock()
		audit.Log(ctx, s.logger, s.auditPublisher, audit.ActionResendFailed, caseCode, msg)
		s.notifier.Notify(ctx, msg, models.SeverityWarning)
		return nil, dErrors.New(dErrors.CodeUpstreamFailure, msg)
	}
	ch.startCooldownLocked(s.cfg.CooldownSeconds)
	snap := ch.snapshotLocked()
	ch.mu.Unlock()

	if err := s.throttle.Reserve(ctx, caseCode, s.cfg.CooldownWindow(), now); err != nil {
		s.logger.WarnContext(ctx, "issuance throttle reserve failed", "error", err)
	}
	if s.metrics != nil {
		s.metrics.ResendsRequested.Inc()
	}
	audit.Log(ctx, s.logger, s.auditPublisher, audit.ActionOTPResent, caseCode, "")
	s.notifier.Notify(ctx, msgCodeResent, models.SeverityInfo)
	return snap, nil
}

// Close discards a challenge and any disclosure it produced. Also accepts the
// ID of an already-dismissed challenge whose disclosure is still held, which
// is the "look up another code" reset after a successful disclosure.
func (s *Service) Close(ctx context.Context, challengeID string) error {
	s.mu.Lock()
	ch, ok := s.byID[challengeID]
	if !ok {
		if _, held := s.disclosures[challengeID]; held {
			delete(s.disclosures, challengeID)
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()
		return dErrors.New(dErrors.CodeNotFound, "challenge not found")
	}
	caseCode := ch.caseCode
	delete(s.byID, challengeID)
	if s.byCase[caseCode] == ch {
		delete(s.byCase, caseCode)
	}
	delete(s.disclosures, challengeID)
	s.mu.Unlock()

	ch.close()
	if s.metrics != nil {
		s.metrics.ChallengesLive.Dec()
	}
	audit.Log(ctx, s.logger, s.auditPublisher, audit.ActionChallengeClosed, caseCode, "")
	return nil
}

// DisclosedCase returns the case record revealed by a successful challenge.
// The record stays available after auto-dismiss until the citizen resets the
// lookup or starts a new one.
func (s *Service) DisclosedCase(_ context.Context, challengeID string) (*models.DisclosedCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.disclosures[challengeID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "no disclosed case for this challenge")
	}
	return d.record, nil
}

// lookupChallenge fetches the live challenge for an ID.
func (s *Service) lookupChallenge(challengeID string) (*challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.byID[challengeID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "challenge not found")
	}
	return ch, nil
}

// discardCaseLocked closes and removes any prior challenge and disclosure for
// a case code. Caller holds s.mu.
func (s *Service) discardCaseLocked(caseCode string) {
	if prev, ok := s.byCase[caseCode]; ok {
		delete(s.byID, prev.id)
		delete(s.byCase, caseCode)
		delete(s.disclosures, prev.id)
		prev.close()
		if s.metrics != nil {
			s.metrics.ChallengesLive.Dec()
		}
	}
	for id, d := range s.disclosures {
		if d.caseCode == caseCode {
			delete(s.disclosures, id)
		}
	}
}

// dismiss is the auto-dismiss path taken after a successful verification. The
// challenge goes away; the disclosure stays with the view assembler.
func (s *Service) dismiss(ch *challenge) {
	s.mu.Lock()
	if s.byID[ch.id] != ch {
		s.mu.Unlock()
		return
	}
	delete(s.byID, ch.id)
	if s.byCase[ch.caseCode] == ch {
		delete(s.byCase, ch.caseCode)
	}
	s.mu.Unlock()

	ch.close()
	if s.metrics != nil {
		s.metrics.ChallengesLive.Dec()
	}
}

// storeDisclosure hands the record over unless the challenge was closed in the
// meantime (a close racing the verify response wins).
func (s *Service) storeDisclosure(ch *challenge, record *models.DisclosedCase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byID[ch.id] != ch {
		return
	}
	s.disclosures[ch.id] = &disclosure{caseCode: ch.caseCode, record: record}
}

func (s *Service) rejectResend(ctx context.Context, caseCode string) {
	if s.metrics != nil {
		s.metrics.ResendsThrottled.Inc()
	}
	audit.Log(ctx, s.logger, s.auditPublisher, audit.ActionResendThrottled, caseCode, "")
}

func (s *Service) incLookupFailed() {
	if s.metrics != nil {
		s.metrics.LookupsFailed.Inc()
	}
}

func (s *Service) countVerification(outcome string) {
	if s.metrics != nil {
		s.metrics.Verifications.WithLabelValues(outcome).Inc()
	}
}
