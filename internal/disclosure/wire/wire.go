// Package wire decodes the upstream backend's case payloads.
//
// The backend serializes object graphs with reference preservation, so any
// collection may arrive either as a bare JSON array or wrapped in an envelope
// object carrying the array under "$values". RefList quarantines that artifact
// at this boundary: everything past ToDomain sees plain slices only.
package wire

import (
	"bytes"
	"encoding/json"
	"time"

	"pakngate/internal/disclosure/models"
)

// valuesKey is the well-known envelope field of the reference-preserving format.
const valuesKey = "$values"

// RefList is an ordered sequence that accepts both wire shapes.
//
// Decoding is total: null, a missing field, or an unrecognized shape all yield
// an empty list rather than an error, so a backend schema variation can never
// take down the disclosure view. A bare array decodes as-is, which also makes
// normalization idempotent.
type RefList[T any] []T

func (l *RefList[T]) UnmarshalJSON(data []byte) error {
	*l = RefList[T]{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}
		if items != nil {
			*l = items
		}
	case '{':
		var envelope struct {
			Values json.RawMessage `json:"$values"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil
		}
		if len(envelope.Values) == 0 {
			return nil
		}
		var items []T
		if err := json.Unmarshal(envelope.Values, &items); err != nil {
			return nil
		}
		if items != nil {
			*l = items
		}
	}
	return nil
}

// Items returns the normalized sequence as a plain, never-nil slice.
func (l RefList[T]) Items() []T {
	if l == nil {
		return []T{}
	}
	return []T(l)
}

// AttachmentWire is a case or response attachment as sent by the backend.
type AttachmentWire struct {
	Name string `json:"fileName"`
	URL  string `json:"fileUrl"`
}

// StatusHistoryWire is one status transition as sent by the backend.
type StatusHistoryWire struct {
	OldStatus  string     `json:"oldStatus"`
	NewStatus  string     `json:"newStatus"`
	Note       string     `json:"note"`
	ModifiedAt *time.Time `json:"modifiedAt"`
}

// ResponseWire is one staff response as sent by the backend. Its attachments
// use the same envelope rule as the top-level collections and are normalized
// independently.
type ResponseWire struct {
	Content     string                  `json:"content"`
	CreatedAt   *time.Time              `json:"createdAt"`
	Attachments RefList[AttachmentWire] `json:"attachments"`
}

// DisclosedCaseWire is the full case record as sent by the backend after a
// successful OTP verification.
type DisclosedCaseWire struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Content string `json:"content"`

	CitizenName    string `json:"fullName"`
	CitizenPhone   string `json:"phoneNumber"`
	CitizenEmail   string `json:"email"`
	CitizenAddress string `json:"address"`

	Category string `json:"category"`
	OrgUnit  string `json:"organization"`
	Status   string `json:"status"`

	ReceivedAt          *time.Time `json:"receivedAt"`
	ProcessingStartedAt *time.Time `json:"processingAt"`
	CompletedAt         *time.Time `json:"completedAt"`

	Attachments   RefList[AttachmentWire]    `json:"attachments"`
	StatusHistory RefList[StatusHistoryWire] `json:"statusHistories"`
	Responses     RefList[ResponseWire]      `json:"responses"`
}

// ToDomain maps the wire record to the domain type with all collections
// normalized, including each response's nested attachments.
func (w *DisclosedCaseWire) ToDomain() *models.DisclosedCase {
	c := &models.DisclosedCase{
		Code:                w.Code,
		Title:               w.Title,
		Content:             w.Content,
		CitizenName:         w.CitizenName,
		CitizenPhone:        w.CitizenPhone,
		CitizenEmail:        w.CitizenEmail,
		CitizenAddress:      w.CitizenAddress,
		Category:            w.Category,
		OrgUnit:             w.OrgUnit,
		Status:              w.Status,
		ReceivedAt:          w.ReceivedAt,
		ProcessingStartedAt: w.ProcessingStartedAt,
		CompletedAt:         w.CompletedAt,
		Attachments:         make([]models.Attachment, 0, len(w.Attachments)),
		StatusHistory:       make([]models.StatusHistoryEntry, 0, len(w.StatusHistory)),
		Responses:           make([]models.ResponseEntry, 0, len(w.Responses)),
	}

	for _, a := range w.Attachments.Items() {
		c.Attachments = append(c.Attachments, models.Attachment{Name: a.Name, URL: a.URL})
	}
	for _, h := range w.StatusHistory.Items() {
		c.StatusHistory = append(c.StatusHistory, models.StatusHistoryEntry{
			OldStatus:  h.OldStatus,
			NewStatus:  h.NewStatus,
			Note:       h.Note,
			ModifiedAt: h.ModifiedAt,
		})
	}
	for _, r := range w.Responses.Items() {
		entry := models.ResponseEntry{
			Content:     r.Content,
			CreatedAt:   r.CreatedAt,
			Attachments: make([]models.Attachment, 0, len(r.Attachments)),
		}
		for _, a := range r.Attachments.Items() {
			entry.Attachments = append(entry.Attachments, models.Attachment{Name: a.Name, URL: a.URL})
		}
		c.Responses = append(c.Responses, entry)
	}
	return c
}
