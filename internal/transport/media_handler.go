package transport

import (
	"io"
	"net/http"

	"techstore/internal/media"
	"techstore/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MediaStore is the file store behind the image library and banners
type MediaStore interface {
	Save(c media.Collection, filename, contentType string, allowed map[string]bool, r io.Reader) (*media.Asset, error)
	List(c media.Collection) ([]media.Asset, error)
	Delete(c media.Collection, filename string) error
	SaveBanner(filename, contentType string, r io.Reader, link, alt string) (*media.Banner, error)
	UpdateBanner(filename, link, alt string) (*media.Banner, error)
	ListBanners() ([]media.Banner, error)
}

// BannerMetaRequest replaces a banner's link metadata
type BannerMetaRequest struct {
	Link string `json:"link"`
	Alt  string `json:"alt"`
}

// MediaHandler serves the image library and the storefront banners
type MediaHandler struct {
	store  MediaStore
	logger *zap.Logger
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(store MediaStore, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{store: store, logger: logger}
}

// RegisterRoutes registers the /library and /banners routes
func (h *MediaHandler) RegisterRoutes(r chi.Router, guards Guards) {
	r.Route("/library", func(r chi.Router) {
		r.Get("/", h.ListLibrary)
		r.With(guards.Moderator).Post("/upload", h.UploadLibrary)
		r.With(guards.Moderator).Delete("/{filename}", h.DeleteLibrary)
	})

	r.Route("/banners", func(r chi.Router) {
		r.Get("/", h.ListBanners)
		r.Group(func(r chi.Router) {
			r.Use(guards.Moderator)
			r.Post("/upload", h.UploadBanner)
			r.Put("/{filename}", h.UpdateBanner)
			r.Delete("/{filename}", h.DeleteBanner)
		})
	})
}

// ListLibrary returns library images, newest first
func (h *MediaHandler) ListLibrary(w http.ResponseWriter, r *http.Request) {
	assets, err := h.store.List(media.Library)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if assets == nil {
		assets = []media.Asset{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, assets)
}

// UploadLibrary stores an image under its sanitized name
func (h *MediaHandler) UploadLibrary(w http.ResponseWriter, r *http.Request) {
	file, err := parseUpload(w, r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	defer file.Close()

	asset, err := h.store.Save(media.Library, file.Filename, file.ContentType, media.ImageTypes, file)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Library image uploaded", zap.String("filename", asset.Filename))
	middleware.RespondWithJSON(w, http.StatusCreated, asset)
}

// DeleteLibrary removes a library image
func (h *MediaHandler) DeleteLibrary(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, media.Library)
}

// ListBanners returns banners with their link metadata
func (h *MediaHandler) ListBanners(w http.ResponseWriter, r *http.Request) {
	banners, err := h.store.ListBanners()
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, banners)
}

// UploadBanner stores a banner image with optional link and alt form fields
func (h *MediaHandler) UploadBanner(w http.ResponseWriter, r *http.Request) {
	file, err := parseUpload(w, r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	defer file.Close()

	banner, err := h.store.SaveBanner(file.Filename, file.ContentType, file, r.FormValue("link"), r.FormValue("alt"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Banner uploaded", zap.String("filename", banner.Filename))
	middleware.RespondWithJSON(w, http.StatusCreated, banner)
}

// UpdateBanner replaces a banner's link metadata
func (h *MediaHandler) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	var req BannerMetaRequest
	if !decode(w, r, &req) {
		return
	}

	banner, err := h.store.UpdateBanner(chi.URLParam(r, "filename"), req.Link, req.Alt)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, banner)
}

// DeleteBanner removes a banner and its metadata
func (h *MediaHandler) DeleteBanner(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, media.Banners)
}

func (h *MediaHandler) delete(w http.ResponseWriter, r *http.Request, c media.Collection) {
	filename := chi.URLParam(r, "filename")
	if err := h.store.Delete(c, filename); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Media file deleted",
		zap.String("collection", string(c)),
		zap.String("filename", filename),
	)
	respondMessage(w, http.StatusOK, "file deleted")
}
