package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"pakngate/internal/disclosure/models"
	"pakngate/internal/disclosure/views"
	dErrors "pakngate/pkg/domain-errors"
)

// DisclosureService is the flow surface consumed by the HTTP layer.
type DisclosureService interface {
	RequestChallenge(ctx context.Context, caseCode string) (*models.Challenge, error)
	Challenge(ctx context.Context, challengeID string) (*models.Challenge, error)
	Verify(ctx context.Context, challengeID, otpCode string) (*models.Challenge, error)
	Resend(ctx context.Context, challengeID string) (*models.Challenge, error)
	Close(ctx context.Context, challengeID string) error
	DisclosedCase(ctx context.Context, challengeID string) (*models.DisclosedCase, error)
}

//go:generate mockgen -source=handlers_disclosure.go -destination=mocks/disclosure-mocks.go -package=mocks DisclosureService

// DisclosureHandler is the thin HTTP layer over the disclosure flow. It
// delegates to the service without embedding business logic so transport
// concerns remain isolated.
type DisclosureHandler struct {
	svc DisclosureService
}

func NewDisclosureHandler(svc DisclosureService) *DisclosureHandler {
	return &DisclosureHandler{svc: svc}
}

type lookupRequest struct {
	CaseCode string `json:"case_code"`
}

type verifyRequest struct {
	OTPCode string `json:"otp_code"`
}

func (h *DisclosureHandler) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.CaseCode, "1", "100") {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "case code is required"))
		return
	}

	ch, err := h.svc.RequestChallenge(r.Context(), req.CaseCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

func (h *DisclosureHandler) handleChallenge(w http.ResponseWriter, r *http.Request) {
	ch, err := h.svc.Challenge(r.Context(), chi.URLParam(r, "challengeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (h *DisclosureHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.OTPCode, "1", "20") {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "otp code is required"))
		return
	}

	ch, err := h.svc.Verify(r.Context(), chi.URLParam(r, "challengeID"), req.OTPCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (h *DisclosureHandler) handleResend(w http.ResponseWriter, r *http.Request) {
	ch, err := h.svc.Resend(r.Context(), chi.URLParam(r, "challengeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (h *DisclosureHandler) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Close(r.Context(), chi.URLParam(r, "challengeID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCase renders the disclosed record through its three views.
func (h *DisclosureHandler) handleCase(w http.ResponseWriter, r *http.Request) {
	record, err := h.svc.DisclosedCase(r.Context(), chi.URLParam(r, "challengeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views.Assemble(record))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError centralizes domain error translation to HTTP responses. The
// message is user-facing by construction (domain errors carry citizen-safe
// text; unknown errors get a generic one).
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   string(code),
		"message": dErrors.MessageOf(err),
	})
}
