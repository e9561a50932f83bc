package transport

import (
	"net/http"

	"techstore/internal/domain"
	"techstore/internal/middleware"
	"techstore/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CategoriesRequest replaces the storefront categories
type CategoriesRequest struct {
	Categories []domain.Category `json:"categories" validate:"required,dive"`
}

// SettingsHandler serves the storefront settings
type SettingsHandler struct {
	settingsService service.SettingsService
	logger          *zap.Logger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settingsService service.SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService, logger: logger}
}

// RegisterRoutes registers the /settings routes
func (h *SettingsHandler) RegisterRoutes(r chi.Router, guards Guards) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/categories", h.Categories)
		r.Get("/store", h.Store)
		r.With(guards.Moderator).Put("/categories", h.ReplaceCategories)
		r.With(guards.Moderator).Put("/store", h.UpdateStore)
	})
}

func (h *SettingsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.settingsService.Categories(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *SettingsHandler) ReplaceCategories(w http.ResponseWriter, r *http.Request) {
	var req CategoriesRequest
	if !decode(w, r, &req) {
		return
	}

	categories, err := h.settingsService.ReplaceCategories(r.Context(), req.Categories)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *SettingsHandler) Store(w http.ResponseWriter, r *http.Request) {
	profile, err := h.settingsService.Store(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, profile)
}

func (h *SettingsHandler) UpdateStore(w http.ResponseWriter, r *http.Request) {
	var patch domain.StorePatch
	if !decode(w, r, &patch) {
		return
	}

	profile, err := h.settingsService.UpdateStore(r.Context(), patch)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, profile)
}
