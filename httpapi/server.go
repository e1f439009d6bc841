// Package httpapi exposes the workflow engine and its collaborators over the
// logical HTTP contract consumed by the department dashboards.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"careflow/agreement"
	"careflow/audit"
	"careflow/participant"
	"careflow/referral"
	"careflow/staffing"
	"careflow/workflow"
)

// WorkflowEngine is the transition engine surface the handlers call.
type WorkflowEngine interface {
	Advance(ctx context.Context, params workflow.AdvanceParams) (workflow.AdvanceResult, error)
	Status(ctx context.Context, referralID string) (workflow.Status, error)
}

// ReferralIntake creates referral cases.
type ReferralIntake interface {
	Create(ctx context.Context, params referral.CreateParams) (referral.Case, error)
}

// ParticipantCreator is the idempotent create-from-referral operation.
type ParticipantCreator interface {
	CreateFromReferral(ctx context.Context, referralID string) (string, error)
}

// AgreementService generates and dispatches service agreements.
type AgreementService interface {
	Generate(ctx context.Context, participantID string) (string, error)
	Send(ctx context.Context, agreementID string) error
}

// StaffService allocates support staff.
type StaffService interface {
	Allocate(ctx context.Context, participantID string) ([]string, error)
}

// AuditFeed serves the global transition log for the ops dashboard.
type AuditFeed interface {
	HistoryAll(ctx context.Context) ([]audit.Entry, error)
}

type Server struct {
	engine       WorkflowEngine
	referrals    ReferralIntake
	participants ParticipantCreator
	agreements   AgreementService
	staffing     StaffService
	auditFeed    AuditFeed
	jwtSecret    []byte
}

func NewServer(engine WorkflowEngine, referrals ReferralIntake, participants ParticipantCreator,
	agreements AgreementService, staffing StaffService, auditFeed AuditFeed, jwtSecret []byte) *Server {
	return &Server{
		engine:       engine,
		referrals:    referrals,
		participants: participants,
		agreements:   agreements,
		staffing:     staffing,
		auditFeed:    auditFeed,
		jwtSecret:    jwtSecret,
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/referrals", s.handleCreateReferral)
	mux.HandleFunc("POST /api/referrals/{id}/advance", s.handleAdvance)
	mux.HandleFunc("GET /api/referrals/{id}/status", s.handleStatus)
	mux.HandleFunc("POST /api/referrals/{id}/participant", s.handleCreateParticipant)
	mux.HandleFunc("POST /api/participants/{id}/agreements", s.handleGenerateAgreement)
	mux.HandleFunc("POST /api/agreements/{id}/send", s.handleSendAgreement)
	mux.HandleFunc("POST /api/participants/{id}/allocate-staff", s.handleAllocateStaff)
	mux.HandleFunc("GET /api/audit", s.handleAuditFeed)
}

type createReferralRequest struct {
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	DateOfBirth       string `json:"dateOfBirth"`
	NDISNumber        string `json:"ndisNumber"`
	PrimaryDisability string `json:"primaryDisability"`
	AddressLine       string `json:"addressLine"`
	Suburb            string `json:"suburb"`
	State             string `json:"state"`
	Postcode          string `json:"postcode"`
	FundingType       string `json:"fundingType"`
	ReferralSource    string `json:"referralSource"`
}

type referralResponse struct {
	ID           string `json:"id"`
	CurrentStage string `json:"currentStage"`
	CreatedAt    string `json:"createdAt"`
}

func (s *Server) handleCreateReferral(w http.ResponseWriter, r *http.Request) {
	var req createReferralRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	created, err := s.referrals.Create(r.Context(), referral.CreateParams{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Email:             req.Email,
		Phone:             req.Phone,
		DateOfBirth:       req.DateOfBirth,
		NDISNumber:        req.NDISNumber,
		PrimaryDisability: req.PrimaryDisability,
		AddressLine:       req.AddressLine,
		Suburb:            req.Suburb,
		State:             req.State,
		Postcode:          req.Postcode,
		FundingType:       req.FundingType,
		ReferralSource:    req.ReferralSource,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, referralResponse{
		ID:           created.ID,
		CurrentStage: created.CurrentStage,
		CreatedAt:    created.CreatedAt.Format(time.RFC3339),
	})
}

type advanceRequest struct {
	TargetStage string `json:"targetStage"`
	Notes       string `json:"notes"`
}

type advanceResponse struct {
	FromStage    string `json:"fromStage"`
	CurrentStage string `json:"currentStage"`
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "referral id is required", http.StatusBadRequest)
		return
	}

	// io.EOF means an empty body, which is a valid advance-to-successor.
	var req advanceRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	res, err := s.engine.Advance(r.Context(), workflow.AdvanceParams{
		ReferralID:  id,
		TargetStage: req.TargetStage,
		Actor:       actorFromRequest(r, s.jwtSecret),
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, advanceResponse{
		FromStage:    res.FromStage,
		CurrentStage: res.CurrentStage,
	})
}

type auditEntryResponse struct {
	ReferralID  string `json:"referralId"`
	FromStage   string `json:"fromStage"`
	ToStage     string `json:"toStage"`
	Action      string `json:"action"`
	PerformedBy string `json:"performedBy"`
	Notes       string `json:"notes,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

type statusResponse struct {
	CurrentStage string               `json:"currentStage"`
	StageConfig  workflow.Stage       `json:"stageConfig"`
	CanAdvance   bool                 `json:"canAdvance"`
	History      []auditEntryResponse `json:"history"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "referral id is required", http.StatusBadRequest)
		return
	}

	status, err := s.engine.Status(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	history := make([]auditEntryResponse, 0, len(status.History))
	for _, e := range status.History {
		history = append(history, mapAuditEntry(e))
	}
	writeJSON(w, http.StatusOK, statusResponse{
		CurrentStage: status.CurrentStage,
		StageConfig:  status.StageConfig,
		CanAdvance:   status.CanAdvance,
		History:      history,
	})
}

func (s *Server) handleCreateParticipant(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "referral id is required", http.StatusBadRequest)
		return
	}

	participantID, err := s.participants.CreateFromReferral(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"participantId": participantID})
}

func (s *Server) handleGenerateAgreement(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "participant id is required", http.StatusBadRequest)
		return
	}

	agreementID, err := s.agreements.Generate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"agreementId": agreementID})
}

func (s *Server) handleSendAgreement(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "agreement id is required", http.StatusBadRequest)
		return
	}

	if err := s.agreements.Send(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(agreement.StatusPending)})
}

func (s *Server) handleAllocateStaff(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "participant id is required", http.StatusBadRequest)
		return
	}

	staffIDs, err := s.staffing.Allocate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"staffIds": staffIDs})
}

func (s *Server) handleAuditFeed(w http.ResponseWriter, r *http.Request) {
	entries, err := s.auditFeed.HistoryAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, mapAuditEntry(e))
	}
	writeJSON(w, http.StatusOK, map[string][]auditEntryResponse{"entries": out})
}

func mapAuditEntry(e audit.Entry) auditEntryResponse {
	return auditEntryResponse{
		ReferralID:  e.ReferralID,
		FromStage:   e.FromStage,
		ToStage:     e.ToStage,
		Action:      e.Action,
		PerformedBy: e.PerformedBy,
		Notes:       e.Notes,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var missing *workflow.MissingFieldError
	var auto *workflow.AutomationError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, referral.ErrNotFound),
		errors.Is(err, participant.ErrNotFound),
		errors.Is(err, agreement.ErrNotFound),
		errors.Is(err, agreement.ErrParticipantNotFound),
		errors.Is(err, workflow.ErrStageNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrNoNextStage),
		errors.Is(err, staffing.ErrNoStaffAvailable):
		status = http.StatusConflict
	case errors.As(err, &missing):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &auto):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
