// Package views derives the presentation projections of a disclosed case.
// Every view is a pure function of the normalized record; nothing here talks
// to the backend or re-sorts what it returned.
package views

import (
	"fmt"
	"time"

	"pakngate/internal/disclosure/models"
)

// MilestoneNotReached is rendered for milestone timestamps the case has not
// hit yet; the summary never shows a blank cell.
const MilestoneNotReached = "not yet reached"

// NoHistory is rendered instead of an empty timeline table.
const NoHistory = "no history"

// milestoneLayout matches the portal's date rendering.
const milestoneLayout = "02/01/2006 15:04"

// Milestone is one independently optional processing timestamp.
type Milestone struct {
	Label   string `json:"label"`
	Reached bool   `json:"reached"`
	Value   string `json:"value"`
}

// SummaryView carries the case's core fields and its processing milestones.
type SummaryView struct {
	Code           string      `json:"case_code"`
	Title          string      `json:"title"`
	Content        string      `json:"content"`
	CitizenName    string      `json:"citizen_name"`
	CitizenPhone   string      `json:"citizen_phone"`
	CitizenEmail   string      `json:"citizen_email,omitempty"`
	CitizenAddress string      `json:"citizen_address,omitempty"`
	Category       string      `json:"category"`
	OrgUnit        string      `json:"org_unit"`
	Status         string      `json:"status"`
	Milestones     []Milestone `json:"milestones"`
	Attachments    []models.Attachment `json:"attachments"`
}

// TimelineView is the status history in backend order.
type TimelineView struct {
	Entries []models.StatusHistoryEntry `json:"entries"`
	Empty   bool                        `json:"empty"`
	// EmptyLabel is set only when there is nothing to show.
	EmptyLabel string `json:"empty_label,omitempty"`
}

// ResponsesView is the staff response list with its running count label.
type ResponsesView struct {
	Label   string                 `json:"label"`
	Entries []models.ResponseEntry `json:"entries"`
}

// CaseViews bundles the three projections handed to the presentation layer.
type CaseViews struct {
	Summary   SummaryView   `json:"summary"`
	Timeline  TimelineView  `json:"timeline"`
	Responses ResponsesView `json:"responses"`
}

// Assemble derives all three views from a disclosed case.
func Assemble(c *models.DisclosedCase) *CaseViews {
	return &CaseViews{
		Summary:   Summary(c),
		Timeline:  Timeline(c),
		Responses: Responses(c),
	}
}

// Summary projects the core fields plus the three processing milestones, each
// independently optional.
func Summary(c *models.DisclosedCase) SummaryView {
	return SummaryView{
		Code:           c.Code,
		Title:          c.Title,
		Content:        c.Content,
		CitizenName:    c.CitizenName,
		CitizenPhone:   c.CitizenPhone,
		CitizenEmail:   c.CitizenEmail,
		CitizenAddress: c.CitizenAddress,
		Category:       c.Category,
		OrgUnit:        c.OrgUnit,
		Status:         c.Status,
		Milestones: []Milestone{
			milestone("received", c.ReceivedAt),
			milestone("processing started", c.ProcessingStartedAt),
			milestone("completed", c.CompletedAt),
		},
		Attachments: nonNil(c.Attachments),
	}
}

// Timeline projects the status history exactly as the backend ordered it.
func Timeline(c *models.DisclosedCase) TimelineView {
	entries := nonNil(c.StatusHistory)
	view := TimelineView{Entries: entries, Empty: len(entries) == 0}
	if view.Empty {
		view.EmptyLabel = NoHistory
	}
	return view
}

// Responses projects the response list; N in the label is the entry count.
func Responses(c *models.DisclosedCase) ResponsesView {
	entries := nonNil(c.Responses)
	return ResponsesView{
		Label:   fmt.Sprintf("Responses (%d)", len(entries)),
		Entries: entries,
	}
}

func milestone(label string, at *time.Time) Milestone {
	if at == nil {
		return Milestone{Label: label, Reached: false, Value: MilestoneNotReached}
	}
	return Milestone{Label: label, Reached: true, Value: at.Format(milestoneLayout)}
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
