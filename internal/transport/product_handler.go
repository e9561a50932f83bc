package transport

import (
	"net/http"
	"strconv"
	"strings"

	"techstore/internal/apperr"
	"techstore/internal/domain"
	"techstore/internal/middleware"
	"techstore/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ImageRequest adds an image URL to a product gallery
type ImageRequest struct {
	ImageURL string `json:"image_url" validate:"required,url"`
}

// ImageResponse reports the gallery after an image change
type ImageResponse struct {
	Message     string          `json:"message"`
	ImageURL    string          `json:"image_url,omitempty"`
	TotalImages int             `json:"total_images"`
	Product     *domain.Product `json:"product"`
}

// ProductHandler serves the catalog
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{productService: productService, logger: logger}
}

// RegisterRoutes registers the /products routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, guards Guards) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{productID}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(guards.Moderator)
			r.Post("/", h.Create)
			r.Patch("/{productID}", h.Patch)
			r.Delete("/{productID}", h.Delete)
			r.Post("/{productID}/images", h.AddImage)
			r.Post("/{productID}/upload-image", h.UploadImage)
			r.Delete("/{productID}/delete-image", h.RemoveImage)
		})
	})
}

// List returns products matching the category, price and search filters
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	products, err := h.productService.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

func parseProductFilter(r *http.Request) (domain.ProductFilter, error) {
	q := r.URL.Query()
	filter := domain.ProductFilter{
		Category: q.Get("category"),
		Search:   strings.TrimSpace(q.Get("search")),
	}

	for name, dst := range map[string]**float64{
		"min_price": &filter.MinPrice,
		"max_price": &filter.MaxPrice,
	} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, apperr.Validation("%s must be a number", name)
		}
		*dst = &v
	}

	return filter, nil
}

// Get returns one product
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "productID")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create adds a product to the catalog
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateProductInput
	if !decode(w, r, &input) {
		return
	}

	product, err := h.productService.Create(r.Context(), input)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Product created", zap.String("product_id", product.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Patch changes only the provided product fields
func (h *ProductHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "productID")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var patch domain.ProductPatch
	if !decode(w, r, &patch) {
		return
	}

	product, err := h.productService.Patch(r.Context(), id, patch)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete removes a product
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "productID")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	respondMessage(w, http.StatusOK, "product deleted")
}

// AddImage appends an existing image URL to the gallery
func (h *ProductHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "productID")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req ImageRequest
	if !decode(w, r, &req) {
		return
	}

	product, err := h.productService.AddImage(r.Context(), id, req.ImageURL)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ImageResponse{
		Message:     "image added to gallery",
		ImageURL:    req.ImageURL,
		TotalImages: len(product.Images),
		Product:     product,
	})
}

// UploadImage stores a multipart image and appends its URL to the gallery
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "productID")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	file, err := parseUpload(w, r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	defer file.Close()

	product, err := h.productService.UploadImage(r.Context(), id, file.Filename, file.ContentType, file)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ImageResponse{
		Message:     "image added to gallery",
		ImageURL:    product.Images[len(product.Images)-1],
		TotalImages: len(product.Images),
		Product:     product,
	})
}

// RemoveImage drops the image_url query parameter from the gallery
func (h *ProductHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "productID")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	url := r.URL.Query().Get("image_url")
	if url == "" {
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
			{Field: "image_url", Message: "This field is required"},
		})
		return
	}

	product, err := h.productService.RemoveImage(r.Context(), id, url)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ImageResponse{
		Message:     "image removed",
		TotalImages: len(product.Images),
		Product:     product,
	})
}
