// Package audit captures security-relevant events of the disclosure flow.
//
// Disclosure reveals personal data, so every issuance, verification, and
// disclosure outcome is recorded. Events never carry the raw case code; it is
// hashed so the trail stays useful for correlation without storing the secret
// correlation key citizens type in.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"pakngate/pkg/requestcontext"
)

// Action identifies what happened.
type Action string

const (
	ActionLookupRequested  Action = "lookup_requested"
	ActionLookupFailed     Action = "lookup_failed"
	ActionOTPVerified      Action = "otp_verified"
	ActionOTPRejected      Action = "otp_rejected"
	ActionOTPResent        Action = "otp_resent"
	ActionResendFailed     Action = "resend_failed"
	ActionResendThrottled  Action = "resend_throttled"
	ActionChallengeClosed  Action = "challenge_closed"
	ActionCaseDisclosed    Action = "case_disclosed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       Action    `json:"action"`
	CaseCodeHash string    `json:"case_code_hash"`
	Reason       string    `json:"reason,omitempty"`
	ClientIP     string    `json:"client_ip,omitempty"`
	DeviceHint   string    `json:"device_hint,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
}

// Publisher emits audit events for security-relevant operations.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// multiPublisher fans one event out to several sinks.
type multiPublisher []Publisher

func (m multiPublisher) Emit(ctx context.Context, event Event) error {
	var firstErr error
	for _, p := range m {
		if err := p.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Multi combines publishers, skipping nils. Returns nil when none remain so
// callers can treat "no audit sink" uniformly.
func Multi(pubs ...Publisher) Publisher {
	var out multiPublisher
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// HashCaseCode returns the SHA-256 hex digest of a case code for audit trails.
func HashCaseCode(caseCode string) string {
	sum := sha256.Sum256([]byte(caseCode))
	return hex.EncodeToString(sum[:])
}

// Log is the shared helper for emitting audit events from the service layer.
// It logs to the structured logger and forwards to the publisher if available.
// Client metadata and request ID are lifted from the context.
func Log(ctx context.Context, logger *slog.Logger, publisher Publisher, action Action, caseCode, reason string) {
	event := Event{
		Timestamp:    requestcontext.Now(ctx),
		Action:       action,
		CaseCodeHash: HashCaseCode(caseCode),
		Reason:       reason,
		ClientIP:     requestcontext.ClientIP(ctx),
		DeviceHint:   requestcontext.DeviceHint(ctx),
		RequestID:    requestcontext.RequestID(ctx),
	}

	if logger != nil {
		logger.InfoContext(ctx, string(action),
			"log_type", "audit",
			"case_code_hash", event.CaseCodeHash,
			"reason", reason,
			"client_ip", event.ClientIP,
			"request_id", event.RequestID,
		)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "action", action, "error", err)
	}
}
