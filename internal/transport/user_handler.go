package transport

import (
	"fmt"
	"net/http"

	"techstore/internal/domain"
	"techstore/internal/middleware"
	"techstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ForgotPasswordMessage is answered whether or not the email is registered
const ForgotPasswordMessage = "if the email is registered you will receive a reset link shortly"

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RefreshRequest represents the token refresh request payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RoleRequest changes the role of the user named by UserID
type RoleRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Role   string    `json:"role" validate:"required"`
}

// UserRoleRequest changes the role of the user named in the path
type UserRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// ForgotPasswordRequest starts a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest completes a password reset
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// UserHandler handles HTTP requests for authentication and user administration
type UserHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(authService service.AuthService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes registers the /auth and /users routes
func (h *UserHandler) RegisterRoutes(r chi.Router, guards Guards) {
	r.Route("/auth", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Use(guards.rateLimit())
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/reset-password", h.ResetPassword)
		})

		r.With(guards.Authenticated).Get("/me", h.Me)
		r.With(guards.Admin).Put("/users/role", h.ChangeRole)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(guards.Admin)
		r.Get("/", h.ListUsers)
		r.Put("/{userID}/role", h.ChangeUserRole)
		r.Delete("/{userID}", h.DeleteUser)
	})
}

// Register handles user registration
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.authService.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("User registered successfully", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, user)
}

// Login authenticates form-encoded username and password credentials
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, middleware.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	var missing []middleware.ValidationError
	if username == "" {
		missing = append(missing, middleware.ValidationError{Field: "username", Message: "This field is required"})
	}
	if password == "" {
		missing = append(missing, middleware.ValidationError{Field: "password", Message: "This field is required"})
	}
	if len(missing) > 0 {
		middleware.RespondWithValidationErrors(w, missing)
		return
	}

	tokens, err := h.authService.Login(r.Context(), username, password)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, tokens)
}

// Refresh exchanges a refresh token for a new token pair
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decode(w, r, &req) {
		return
	}

	tokens, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, tokens)
}

// Me returns the caller's profile
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	user, err := h.authService.Me(r.Context(), userID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, user)
}

// ChangeRole sets the role of the user named in the body
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if !decode(w, r, &req) {
		return
	}
	h.changeRole(w, r, req.UserID, req.Role)
}

// ChangeUserRole sets the role of the user named in the path
func (h *UserHandler) ChangeUserRole(w http.ResponseWriter, r *http.Request) {
	userID, err := uuidParam(r, "userID")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req UserRoleRequest
	if !decode(w, r, &req) {
		return
	}
	h.changeRole(w, r, userID, req.Role)
}

func (h *UserHandler) changeRole(w http.ResponseWriter, r *http.Request, userID uuid.UUID, role string) {
	if _, err := h.authService.ChangeRole(r.Context(), userID, domain.Role(role)); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("User role changed",
		zap.String("user_id", userID.String()),
		zap.String("role", role),
	)
	respondMessage(w, http.StatusOK, fmt.Sprintf("role updated to '%s'", role))
}

// ListUsers returns every account
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.authService.ListUsers(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if users == nil {
		users = []*domain.User{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, users)
}

// DeleteUser removes an account
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuidParam(r, "userID")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.authService.DeleteUser(r.Context(), userID); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("User deleted", zap.String("user_id", userID.String()))
	respondMessage(w, http.StatusOK, "user deleted")
}

// ForgotPassword sends a reset link when the email is registered
func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondMessage(w, http.StatusOK, ForgotPasswordMessage)
}

// ResetPassword replaces the password of the token's owner
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondMessage(w, http.StatusOK, "password updated")
}
