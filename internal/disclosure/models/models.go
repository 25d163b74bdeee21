// Package models defines the domain types of the OTP-gated case disclosure flow.
package models

import (
	"strings"
	"time"

	dErrors "pakngate/pkg/domain-errors"
)

// ChallengeState is the verification lifecycle state of an OTP challenge.
type ChallengeState string

const (
	// StateInput: waiting for the citizen to submit a code.
	StateInput ChallengeState = "input"
	// StateVerifying: a verify call is in flight upstream.
	StateVerifying ChallengeState = "verifying"
	// StateSuccess: terminal; the case record has been disclosed.
	StateSuccess ChallengeState = "success"
	// StateError: last verify failed; a new submit re-enters verifying.
	StateError ChallengeState = "error"
)

// CanSubmit reports whether a verify attempt may start from this state.
// Verifying and Success never accept another submit.
func (s ChallengeState) CanSubmit() bool {
	return s == StateInput || s == StateError
}

// Challenge is a snapshot of one outstanding OTP verification attempt, as
// exposed to the presentation layer. The live state machine owning timers and
// in-flight flags lives in the service package.
type Challenge struct {
	ID                       string         `json:"challenge_id"`
	CaseCode                 string         `json:"case_code"`
	State                    ChallengeState `json:"state"`
	RemainingCooldownSeconds int            `json:"cooldown_seconds"`
	LastError                string         `json:"last_error,omitempty"`
}

// ResendReady reports whether the resend action is eligible for this snapshot.
func (c *Challenge) ResendReady() bool {
	return c.RemainingCooldownSeconds == 0 && c.State != StateSuccess
}

// NormalizeCaseCode trims a citizen-supplied case code and rejects empty input.
// The code is otherwise opaque; format validation belongs to the upstream backend.
func NormalizeCaseCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "case code is required")
	}
	return code, nil
}

// Attachment is a file attached to a case or to a staff response.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// StatusHistoryEntry records one status transition of a case. Append-only from
// the backend's perspective; read-only here.
type StatusHistoryEntry struct {
	OldStatus  string     `json:"old_status"`
	NewStatus  string     `json:"new_status"`
	Note       string     `json:"note,omitempty"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}

// ResponseEntry is one staff response on a case, with its own attachments.
type ResponseEntry struct {
	Content     string       `json:"content"`
	CreatedAt   *time.Time   `json:"created_at,omitempty"`
	Attachments []Attachment `json:"attachments"`
}

// DisclosedCase is the full case record revealed after a successful OTP
// verification. All collections are normalized: plain, non-nil, in backend order.
type DisclosedCase struct {
	Code    string `json:"case_code"`
	Title   string `json:"title"`
	Content string `json:"content"`

	CitizenName    string `json:"citizen_name"`
	CitizenPhone   string `json:"citizen_phone"`
	CitizenEmail   string `json:"citizen_email,omitempty"`
	CitizenAddress string `json:"citizen_address,omitempty"`

	Category string `json:"category"`
	OrgUnit  string `json:"org_unit"`
	Status   string `json:"status"`

	ReceivedAt          *time.Time `json:"received_at,omitempty"`
	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`

	Attachments   []Attachment         `json:"attachments"`
	StatusHistory []StatusHistoryEntry `json:"status_history"`
	Responses     []ResponseEntry      `json:"responses"`
}

// Severity levels for the notification sink.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)
