package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pakngate/internal/disclosure/backend"
	"pakngate/internal/disclosure/config"
	"pakngate/internal/disclosure/models"
	"pakngate/internal/disclosure/wire"
	dErrors "pakngate/pkg/domain-errors"
)

// stubBackend lets each test script the upstream's answers. Unset hooks
// default to success.
type stubBackend struct {
	mu          sync.Mutex
	lookupCalls int
	verifyCalls int
	resendCalls int

	lookup func(ctx context.Context, caseCode string) (backend.Ack, error)
	verify func(ctx context.Context, caseCode, otpCode string) (backend.Ack, *wire.DisclosedCaseWire, error)
	resend func(ctx context.Context, caseCode string) (backend.Ack, error)
}

func (b *stubBackend) Lookup(ctx context.Context, caseCode string) (backend.Ack, error) {
	b.mu.Lock()
	b.lookupCalls++
	fn := b.lookup
	b.mu.Unlock()
	if fn != nil {
		return fn(ctx, caseCode)
	}
	return backend.Ack{Success: true}, nil
}

func (b *stubBackend) Verify(ctx context.Context, caseCode, otpCode string) (backend.Ack, *wire.DisclosedCaseWire, error) {
	b.mu.Lock()
	b.verifyCalls++
	fn := b.verify
	b.mu.Unlock()
	if fn != nil {
		return fn(ctx, caseCode, otpCode)
	}
	return backend.Ack{Success: true}, &wire.DisclosedCaseWire{Code: caseCode}, nil
}

func (b *stubBackend) Resend(ctx context.Context, caseCode string) (backend.Ack, error) {
	b.mu.Lock()
	b.resendCalls++
	fn := b.resend
	b.mu.Unlock()
	if fn != nil {
		return fn(ctx, caseCode)
	}
	return backend.Ack{Success: true}, nil
}

func (b *stubBackend) calls() (lookup, verify, resend int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lookupCalls, b.verifyCalls, b.resendCalls
}

// stubThrottle answers with a fixed remaining window and records reservations.
type stubThrottle struct {
	mu        sync.Mutex
	remaining time.Duration
	reserves  int
}

func (t *stubThrottle) Remaining(context.Context, string, time.Time) (time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining, nil
}

func (t *stubThrottle) Reserve(context.Context, string, time.Duration, time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reserves++
	return nil
}

func (t *stubThrottle) Clear(context.Context, string) error { return nil }

func (t *stubThrottle) reserveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reserves
}

type captureNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *captureNotifier) Notify(_ context.Context, message string, _ models.Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *captureNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return ""
	}
	return n.messages[len(n.messages)-1]
}

// frozenCfg keeps the countdown from moving during a test: assertions against
// the cooldown value stay deterministic.
func frozenCfg() config.Challenge {
	return config.Challenge{
		CooldownSeconds: 60,
		DismissDelay:    25 * time.Millisecond,
		MinOTPLength:    6,
		TickInterval:    time.Hour,
	}
}

// fastCfg lets the cooldown elapse within a few milliseconds.
func fastCfg() config.Challenge {
	return config.Challenge{
		CooldownSeconds: 1,
		DismissDelay:    25 * time.Millisecond,
		MinOTPLength:    6,
		TickInterval:    2 * time.Millisecond,
	}
}

func newTestService(t *testing.T, cfg config.Challenge, b *stubBackend, th *stubThrottle) (*Service, *captureNotifier) {
	t.Helper()
	n := &captureNotifier{}
	s, err := New(b, th, WithConfig(cfg), WithNotifier(n))
	require.NoError(t, err)
	return s, n
}

func mustChallenge(t *testing.T, s *Service, caseCode string) *models.Challenge {
	t.Helper()
	ch, err := s.RequestChallenge(context.Background(), caseCode)
	require.NoError(t, err)
	return ch
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, &stubThrottle{})
	assert.Error(t, err)

	_, err = New(&stubBackend{}, nil)
	assert.Error(t, err)
}

func TestRequestChallenge_RejectsEmptyCode(t *testing.T) {
	b := &stubBackend{}
	s, _ := newTestService(t, frozenCfg(), b, &stubThrottle{})

	_, err := s.RequestChallenge(context.Background(), "   ")

	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	lookups, _, _ := b.calls()
	assert.Zero(t, lookups, "empty input must never reach the upstream")
}

func TestRequestChallenge_UpstreamRejects(t *testing.T) {
	b := &stubBackend{
		lookup: func(context.Context, string) (backend.Ack, error) {
			return backend.Ack{Success: false, Message: "case code not found"}, nil
		},
	}
	s, n := newTestService(t, frozenCfg(), b, &stubThrottle{})

	_, err := s.RequestChallenge(context.Background(), "PAKN-404")

	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
	assert.Equal(t, "case code not found", dErrors.MessageOf(err))
	assert.Equal(t, "case code not found", n.last())
}

func TestRequestChallenge_UpstreamUnreachable(t *testing.T) {
	b := &stubBackend{
		lookup: func(context.Context, string) (backend.Ack, error) {
			return backend.Ack{}, errors.New("connection refused")
		},
	}
	s, n := newTestService(t, frozenCfg(), b, &stubThrottle{})

	_, err := s.RequestChallenge(context.Background(), "PAKN-1")

	assert.Equal(t, dErrors.CodeUpstreamFailure, dErrors.CodeOf(err))
	assert.NotEmpty(t, n.last())
}

func TestRequestChallenge_StartsChallengeWithCooldown(t *testing.T) {
	th := &stubThrottle{}
	s, _ := newTestService(t, frozenCfg(), &stubBackend{}, th)

	ch := mustChallenge(t, s, "  PAKN-1  ")

	assert.NotEmpty(t, ch.ID)
	assert.Equal(t, "PAKN-1", ch.CaseCode)
	assert.Equal(t, models.StateInput, ch.State)
	assert.Equal(t, 60, ch.RemainingCooldownSeconds)
	assert.False(t, ch.ResendReady())
	assert.Equal(t, 1, th.reserveCount())
}

func TestRequestChallenge_ReplacesPriorChallengeForSameCode(t *testing.T) {
	s, _ := newTestService(t, frozenCfg(), &stubBackend{}, &stubThrottle{})

	first := mustChallenge(t, s, "PAKN-1")
	second := mustChallenge(t, s, " PAKN-1 ")

	require.NotEqual(t, first.ID, second.ID)

	_, err := s.Challenge(context.Background(), first.ID)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))

	got, err := s.Challenge(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestVerify_ShortOTPRejectedLocally(t *testing.T) {
	b := &stubBackend{}
	s, _ := newTestService(t, frozenCfg(), b, &stubThrottle{})
	ch := mustChallenge(t, s, "PAKN-1")

	_, err := s.Verify(context.Background(), ch.ID, " 12345 ")

	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))

	_, verifies, _ := b.calls()
	assert.Zero(t, verifies, "short codes must never reach the upstream")

	got, err := s.Challenge(context.Background(), ch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateInput, got.State, "a local rejection leaves the state untouched")
	assert.Empty(t, got.LastError)
}

func TestVerify_UpstreamRejectsMovesToError(t *testing.T) {
	b := &stubBackend{
		verify: func(context.Context, string, string) (backend.Ack, *wire.DisclosedCaseWire, error) {
			return backend.Ack{Success: false, Message: "Mã OTP không hợp lệ"}, nil, nil
		},
	}
	s, n := newTestService(t, frozenCfg(), b, &stubThrottle{})
	ch := mustChallenge(t, s, "PAKN-1")

	got, err := s.Verify(context.Background(), ch.ID, "000000")

	require.NoError(t, err, "a rejected code is a state transition, not a transport error")
	assert.Equal(t, models.StateError, got.State)
	assert.Equal(t, "Mã OTP không hợp lệ", got.LastError)
	assert.Equal(t, "Mã OTP không hợp lệ", n.last())
	assert.Equal(t, 60, got.RemainingCooldownSeconds, "a failed verify never touches the cooldown")

	_, err = s.DisclosedCase(context.Background(), ch.ID)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestVerify_RetryAfterErrorSucceeds(t *testing.T) {
	attempts := 0
	b := &stubBackend{}
	b.verify = func(_ context.Context, caseCode, _ string) (backend.Ack, *wire.DisclosedCaseWire, error) {
		attempts++
		if attempts == 1 {
			return backend.Ack{Success: false, Message: "wrong code"}, nil, nil
		}
		return backend.Ack{Success: true}, &wire.DisclosedCaseWire{Code: caseCode}, nil
	}
	s, _ := newTestService(t, frozenCfg(), b, &stubThrottle{})
	ch := mustChallenge(t, s, "PAKN-1")

	got, err := s.Verify(context.Background(), ch.ID, "000000")
	require.NoError(t, err)
	require.Equal(t, models.StateError, got.State)

	got, err = s.Verify(context.Background(), ch.ID, "111111")
	require.NoError(t, err)
	assert.Equal(t, models.StateSuccess, got.State)
	assert.Empty(t, got.LastError)
}

func TestVerify_SuccessDisclosesThenAutoDismisses(t *testing.T) {
	received := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	b := &stubBackend{
		verify: func(_ context.Context, caseCode, _ string) (backend.Ack, *wire.DisclosedCaseWire, error) {
			return backend.Ack{Success: true}, &wire.DisclosedCaseWire{
				Code:       caseCode,
				Title:      "Broken streetlight",
				ReceivedAt: &received,
			}, nil
		},
	}
	s, _ := newTestService(t, frozenCfg(), b, &stubThrottle{})
	ch := mustChallenge(t, s, "PAKN-1")

	got, err := s.Verify(context.Background(), ch.ID, "123456")
	require.NoError(t, err)
	assert.Equal(t, models.StateSuccess, got.State)

	record, err := s.DisclosedCase(context.Background(), ch.ID)
	require.NoError(t, err)
	assert.Equal(t, "PAKN-1", record.Code)
	assert.NotNil(t, record.Attachments, "collections are normalized before custody")

	// The challenge dismisses itself after the delay; the record stays.
	require.Eventually(t, func() bool {
		_, err := s.Challenge(context.Background(), ch.ID)
		return dErrors.CodeOf(err) == dErrors.CodeNotFound
	}, time.Second, 5*time.Millisecond)

	record, err = s.DisclosedCase(context.Background(), ch.ID)
	require.NoError(t, err)
	assert.Equal(t, "Broken streetlight", record.Title)
}

func TestVerify_WhileVerifyingRejected(t *testing.T) {
	release := make(chan struct{})
	b := &stubBackend{
		verify: func(_ context.Context, caseCode, _ string) (backend.Ack, *wire.DisclosedCaseWire, error) {
			<-release
			return backend.Ack{Success: true}, &wire.DisclosedCaseWire{Code: caseCode}, nil
		},
	}
	s, _ := newTestService(t, frozenCfg(), b, &stubThrottle{})
	ch := mustChallenge(t, s, "PAKN-1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Verify(context.Background(), ch.ID, "123456")
	}()

	require.Eventually(t, func() bool {
		got, err := s.Challenge(context.Background(), ch.ID)
		return err == nil && got.State == models.StateVerifying
	}, time.Second, 2*time.Millisecond)

	_, err := s.Verify(context.Background(), ch.ID, "654321")
	assert.Equal(t, dErrors.CodeConflict, dErrors.CodeOf(err))

	close(release)
	<-done
}

func TestVerify_CloseWinsOverLateResponse(t *testing.T) {
	release := make(chan struct{})
	b := &stubBackend{
		verify: func(_ context.Context, caseCode, _ string) (backend.Ack, *wire.DisclosedCaseWire, error) {
			<-release
			return backend.Ack{Success: true}, &wire.DisclosedCaseWire{Code: caseCode}, nil
		},
	}
	s, _ := newTestService(t, frozenCfg(), b, &stubThrottle{})
	ch := mustChallenge(t, s, "PAKN-1")

	verifyErr := make(chan error, 1)
	go func() {
		_, err := s.Verify(context.Background(), ch.ID, "123456")
		verifyErr <- err
	}()

	require.Eventually(t, func() bool {
		got, err := s.Challenge(context.Background(), ch.ID)
		return err == nil && got.State == models.StateVerifying
	}, time.Second, 2*time.Millisecond)

	require.NoError(t, s.Close(context.Background(), ch.ID))
	close(release)

	err := <-verifyErr
	assert.Equal(t, dErrors.CodeChallengeClosed, dErrors.CodeOf(err))

	// The late success must not resurrect anything.
	_, err = s.DisclosedCase(context.Background(), ch.ID)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
	_, err = s.Challenge(context.Background(), ch.ID)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestResend_DuringCooldownRejected(t *testing.T) {
	b := &stubBackend{}
	s, _ := newTestService(t, frozenCfg(), b, &stubThrottle{})
	ch := mustChallenge(t, s, "PAKN-1")

	_, err := s.Resend(context.Background(), ch.ID)

	assert.Equal(t, dErrors.CodeCooldownActive, dErrors.CodeOf(err))
	_, _, resends := b.calls()
	assert.Zero(t, resends, "a throttled resend must never reach the upstream")
}

func TestResend_AfterCooldownResetsIt(t *testing.T) {
	th := &stubThrottle{}
	s, n := newTestService(t, fastCfg(), &stubBackend{}, th)
	ch := mustChallenge(t, s, "PAKN-1")

	require.Eventually(t, func() bool {
		got, err := s.Challenge(context.Background(), ch.ID)
		return err == nil && got.RemainingCooldownSeconds == 0
	}, time.Second, 2*time.Millisecond)

	got, err := s.Resend(context.Background(), ch.ID)

	require.NoError(t, err)
	assert.Equal(t, fastCfg().CooldownSeconds, got.RemainingCooldownSeconds)
	assert.Equal(t, models.StateInput, got.State, "a resend never disturbs the verification state")
	assert.Equal(t, msgCodeResent, n.last())
	assert.Equal(t, 2, th.reserveCount(), "one reservation per issued code")
}

func TestResend_SharedWindowStillActiveRejected(t *testing.T) {
	cfg := frozenCfg()
	cfg.CooldownSeconds = 0
	b := &stubBackend{}
	th := &stubThrottle{remaining: 30 * time.Second}
	s, _ := newTestService(t, cfg, b, th)
	ch := mustChallenge(t, s, "PAKN-1")

	_, err := s.Resend(context.Background(), ch.ID)

	assert.Equal(t, dErrors.CodeCooldownActive, dErrors.CodeOf(err))
	_, _, resends := b.calls()
	assert.Zero(t, resends)
}

func TestResend_UpstreamFailureLeavesCooldownUntouched(t *testing.T) {
	cfg := frozenCfg()
	cfg.CooldownSeconds = 0
	b := &stubBackend{
		resend: func(context.Context, string) (backend.Ack, error) {
			return backend.Ack{Success: false, Message: "sms gateway down"}, nil
		},
	}
	s, n := newTestService(t, cfg, b, &stubThrottle{})
	ch := mustChallenge(t, s, "PAKN-1")

	_, err := s.Resend(context.Background(), ch.ID)

	assert.Equal(t, dErrors.CodeUpstreamFailure, dErrors.CodeOf(err))
	assert.Equal(t, "sms gateway down", n.last())

	got, err := s.Challenge(context.Background(), ch.ID)
	require.NoError(t, err)
	assert.Zero(t, got.RemainingCooldownSeconds, "no code went out, so no new wait is imposed")
}

func TestResend_AfterSuccessRejected(t *testing.T) {
	cfg := frozenCfg()
	cfg.DismissDelay = time.Hour
	s, _ := newTestService(t, cfg, &stubBackend{}, &stubThrottle{})
	ch := mustChallenge(t, s, "PAKN-1")

	_, err := s.Verify(context.Background(), ch.ID, "123456")
	require.NoError(t, err)

	_, err = s.Resend(context.Background(), ch.ID)
	assert.Equal(t, dErrors.CodeConflict, dErrors.CodeOf(err))
}

func TestClose_ResetAfterAutoDismissDropsDisclosure(t *testing.T) {
	s, _ := newTestService(t, frozenCfg(), &stubBackend{}, &stubThrottle{})
	ch := mustChallenge(t, s, "PAKN-1")

	_, err := s.Verify(context.Background(), ch.ID, "123456")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := s.Challenge(context.Background(), ch.ID)
		return dErrors.CodeOf(err) == dErrors.CodeNotFound
	}, time.Second, 5*time.Millisecond)

	// The reset path: the challenge is gone but its disclosure is still held.
	require.NoError(t, s.Close(context.Background(), ch.ID))

	_, err = s.DisclosedCase(context.Background(), ch.ID)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))

	err = s.Close(context.Background(), ch.ID)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestNewLookupDiscardsPriorDisclosureForSameCode(t *testing.T) {
	cfg := frozenCfg()
	cfg.DismissDelay = time.Hour
	s, _ := newTestService(t, cfg, &stubBackend{}, &stubThrottle{})

	first := mustChallenge(t, s, "PAKN-1")
	_, err := s.Verify(context.Background(), first.ID, "123456")
	require.NoError(t, err)

	_, err = s.DisclosedCase(context.Background(), first.ID)
	require.NoError(t, err)

	mustChallenge(t, s, "PAKN-1")

	_, err = s.DisclosedCase(context.Background(), first.ID)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestChallenge_UnknownID(t *testing.T) {
	s, _ := newTestService(t, frozenCfg(), &stubBackend{}, &stubThrottle{})

	_, err := s.Challenge(context.Background(), "nope")
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))

	err = s.Close(context.Background(), "nope")
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}
