package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/avelichko/taskdeck/backend/internal/auth/service"
	commonhttp "github.com/avelichko/taskdeck/backend/internal/common/http"
	userdomain "github.com/avelichko/taskdeck/backend/internal/user/domain"
)

// AuthService is the surface the router needs from the auth layer.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*userdomain.User, *service.TokenPair, error)
	Login(ctx context.Context, email, password string) (*userdomain.User, *service.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user,omitempty"`
}

type Handler struct {
	svc      AuthService
	errors   *commonhttp.ErrorHandler
	validate *validator.Validate
}

func NewHandler(svc AuthService, errors *commonhttp.ErrorHandler) *Handler {
	return &Handler{
		svc:      svc,
		errors:   errors,
		validate: validator.New(),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	post := commonhttp.RequireMethod(http.MethodPost)

	mux.HandleFunc("/api/auth/register", post(h.handleRegister))
	mux.HandleFunc("/api/auth/login", post(h.handleLogin))
	mux.HandleFunc("/api/auth/refresh", post(h.handleRefresh))
	mux.HandleFunc("/api/auth/logout", post(h.handleLogout))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	user, pair, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         &userResponse{ID: user.ID, Email: user.Email},
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	user, pair, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         &userResponse{ID: user.ID, Email: user.Email},
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	pair, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	if err := h.svc.Logout(r.Context(), req.RefreshToken); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := commonhttp.DecodeJSON(r, v); err != nil {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON,
			"request body is not valid json", nil, commonhttp.TraceIDFromContext(r.Context()))
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeBadRequest,
			"request validation failed", validationDetails(err), commonhttp.TraceIDFromContext(r.Context()))
		return false
	}
	return true
}

func validationDetails(err error) map[string]any {
	var verrs validator.ValidationErrors
	details := make(map[string]any)
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return details
}
