package transport

import (
	"errors"
	"mime/multipart"
	"net/http"

	"techstore/internal/apperr"
	"techstore/internal/logger"
	"techstore/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxUploadBytes bounds multipart image uploads
const MaxUploadBytes = 10 << 20

var (
	errInvalidID     = apperr.Validation("invalid identifier")
	errMissingFile   = apperr.Validation("file is required")
	errUnauthorized  = apperr.Unauthenticated("unauthorized")
	errMalformedForm = apperr.Validation("invalid form data")
)

// Guards are the access-control middlewares applied per route group
type Guards struct {
	Authenticated func(http.Handler) http.Handler
	Moderator     func(http.Handler) http.Handler
	Admin         func(http.Handler) http.Handler
	// RateLimit throttles credential endpoints; nil disables it
	RateLimit func(http.Handler) http.Handler
}

// NewGuards builds the role guards on top of bearer-token authentication
func NewGuards(tokens middleware.TokenParser, log *zap.Logger) Guards {
	auth := middleware.AuthMiddleware(tokens, log)
	return Guards{
		Authenticated: auth,
		Moderator:     chain(auth, middleware.RequireModerator(log)),
		Admin:         chain(auth, middleware.RequireAdmin(log)),
	}
}

func (g Guards) rateLimit() func(http.Handler) http.Handler {
	if g.RateLimit == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return g.RateLimit
}

func chain(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// MessageResponse is the body of operations that return no resource
type MessageResponse struct {
	Message string `json:"message"`
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	middleware.RespondWithJSON(w, status, MessageResponse{Message: message})
}

// respondError maps service errors to their HTTP status. Unexpected errors are
// logged through the request-scoped logger.
func respondError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	middleware.RespondWithAppError(w, logger.FromContext(r.Context(), log), err)
}

// decode reads a JSON body, answering 400 itself on failure
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return false
	}
	return true
}

func currentUserID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.GetUserID(r.Context())
	if !ok {
		return uuid.Nil, errUnauthorized
	}
	return id, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

// upload is the "file" part of a multipart request
type upload struct {
	multipart.File
	Filename    string
	ContentType string
}

// parseUpload opens the uploaded file. The caller closes it.
func parseUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Validation("file exceeds %d bytes", MaxUploadBytes)
		}
		return nil, errMalformedForm
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errMissingFile
	}
	return &upload{
		File:        file,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}
