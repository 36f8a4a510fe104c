package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sou1357/bloodbankapp/internal/identity/models"
	"github.com/sou1357/bloodbankapp/internal/identity/service"
	"github.com/sou1357/bloodbankapp/internal/platform/middleware"
	dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"
	"github.com/sou1357/bloodbankapp/pkg/domain"
	"github.com/sou1357/bloodbankapp/pkg/platform/httputil"
	"github.com/sou1357/bloodbankapp/pkg/requestcontext"
)

// Handler exposes registration, login, and the current-user endpoint.
type Handler struct {
	identity  *service.Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

func New(identity *service.Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{identity: identity, validator: validator, logger: logger}
}

// Register mounts the auth routes. Register and login are public; /me
// requires a valid token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/auth/register", h.handleRegister)
	r.Post("/api/auth/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Get("/api/auth/me", h.handleMe)
	})
}

type registerRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	Role             string `json:"role"`
	OrganizationKind string `json:"organization_kind,omitempty"`
	LicenseNumber    string `json:"license_number,omitempty"`
	BloodGroup       string `json:"blood_group,omitempty"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

type userPayload struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	OrganizationKind string `json:"organization_kind,omitempty"`
	BloodGroup       string `json:"blood_group,omitempty"`
}

func toUserPayload(user *models.User) userPayload {
	return userPayload{
		ID:               user.ID,
		Name:             user.Name,
		Email:            user.Email,
		Role:             user.Role.String(),
		OrganizationKind: user.OrganizationKind.String(),
		BloodGroup:       user.DonorBloodGroup.String(),
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	user, signedToken, err := h.identity.Register(ctx, service.RegisterInput{
		Name:             req.Name,
		Email:            req.Email,
		Password:         req.Password,
		Role:             domain.Role(req.Role),
		OrganizationKind: domain.OrganizationKind(req.OrganizationKind),
		LicenseNumber:    req.LicenseNumber,
		DonorBloodGroup:  domain.BloodGroup(req.BloodGroup),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, authResponse{Token: signedToken, User: toUserPayload(user)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	user, signedToken, err := h.identity.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, authResponse{Token: signedToken, User: toUserPayload(user)})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.identity.Me(ctx, requestcontext.Identity(ctx).ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserPayload(user))
}
