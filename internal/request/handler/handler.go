package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sou1357/bloodbankapp/internal/platform/middleware"
	"github.com/sou1357/bloodbankapp/internal/request/models"
	"github.com/sou1357/bloodbankapp/internal/request/service"
	dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"
	"github.com/sou1357/bloodbankapp/pkg/domain"
	"github.com/sou1357/bloodbankapp/pkg/platform/httputil"
	"github.com/sou1357/bloodbankapp/pkg/requestcontext"
)

// Issuer fulfils an approved request atomically against the ledger.
type Issuer interface {
	Issue(ctx context.Context, caller domain.Identity, requestID string) (*models.BloodRequest, error)
}

// Handler exposes the blood-request endpoints. Listing adapts to the caller:
// hospitals see their own requests, blood banks see everything.
type Handler struct {
	requests  *service.Service
	issuer    Issuer
	logger    *slog.Logger
	validator middleware.TokenValidator
}

func New(requests *service.Service, issuer Issuer, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{requests: requests, issuer: issuer, validator: validator, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/api/blood-requests", h.handleCreate)
		r.Get("/api/blood-requests", h.handleList)
		r.Get("/api/blood-requests/{id}", h.handleGet)
		r.Put("/api/blood-requests/{id}/approve", h.handleApprove)
		r.Put("/api/blood-requests/{id}/reject", h.handleReject)
		r.Put("/api/blood-requests/{id}/issue", h.handleIssue)
	})
}

type createRequest struct {
	PatientName string `json:"patient_name"`
	BloodGroup  string `json:"blood_group"`
	UnitsNeeded int    `json:"units_needed"`
	Urgency     string `json:"urgency,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	group, err := domain.ParseBloodGroup(req.BloodGroup)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	request, err := h.requests.Create(ctx, requestcontext.Identity(ctx), service.CreateInput{
		PatientName: req.PatientName,
		BloodGroup:  group,
		UnitsNeeded: req.UnitsNeeded,
		Urgency:     models.Urgency(req.Urgency),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "blood request create failed",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, request)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Identity(ctx)

	if caller.IsBloodBank() {
		requests, err := h.requests.ListAll(ctx, caller)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, requests)
		return
	}

	requests, err := h.requests.ListForHospital(ctx, caller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, requests)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	request, err := h.requests.Get(ctx, requestcontext.Identity(ctx), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	request, err := h.requests.Approve(ctx, requestcontext.Identity(ctx), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	request, err := h.requests.Reject(ctx, requestcontext.Identity(ctx), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	request, err := h.issuer.Issue(ctx, requestcontext.Identity(ctx), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.WarnContext(ctx, "blood request issue failed",
			"error", err.Error(),
			"blood_request_id", chi.URLParam(r, "id"),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}
