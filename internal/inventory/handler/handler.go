package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sou1357/bloodbankapp/internal/inventory/models"
	"github.com/sou1357/bloodbankapp/internal/inventory/service"
	"github.com/sou1357/bloodbankapp/internal/platform/middleware"
	dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"
	"github.com/sou1357/bloodbankapp/pkg/domain"
	"github.com/sou1357/bloodbankapp/pkg/platform/httputil"
	"github.com/sou1357/bloodbankapp/pkg/requestcontext"
)

// Handler exposes the inventory ledger endpoints. All routes require
// authentication; mutations are blood-bank-gated at the service layer.
type Handler struct {
	inventory *service.Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

func New(inventory *service.Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{inventory: inventory, validator: validator, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Get("/api/inventory", h.handleList)
		r.Post("/api/inventory", h.handleCreate)
		r.Get("/api/inventory/{id}", h.handleGet)
		r.Put("/api/inventory/{id}", h.handleAdjust)
		r.Delete("/api/inventory/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.inventory.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.inventory.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

type createRequest struct {
	BloodGroup string     `json:"blood_group"`
	Quantity   *int       `json:"quantity"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Status     string     `json:"status,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Quantity == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "blood group and quantity are required"))
		return
	}

	group, err := domain.ParseBloodGroup(req.BloodGroup)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.inventory.Create(ctx, requestcontext.Identity(ctx), group, *req.Quantity, req.ExpiryDate, models.RecordStatus(req.Status))
	if err != nil {
		h.logger.WarnContext(ctx, "inventory create failed",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

type adjustRequest struct {
	Quantity   *int       `json:"quantity,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Status     *string    `json:"status,omitempty"`
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	input := service.AdjustInput{
		Quantity:   req.Quantity,
		ExpiryDate: req.ExpiryDate,
	}
	if req.Status != nil {
		status := models.RecordStatus(*req.Status)
		input.Status = &status
	}

	record, err := h.inventory.Adjust(ctx, requestcontext.Identity(ctx), chi.URLParam(r, "id"), input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.inventory.Delete(ctx, requestcontext.Identity(ctx), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "inventory record deleted"})
}
