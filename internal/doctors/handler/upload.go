package handler

import (
	"net/http"

	apperrors "medibook/pkg/errors"
	httputil "medibook/pkg/http"
	"medibook/pkg/logger"
	"medibook/pkg/storage"

	"github.com/julienschmidt/httprouter"
)

const maxUploadSize = 5 << 20 // 5MB

// UploadHandler accepts a profile image, pushes it to the external
// asset store and returns the opaque URL. The image bytes never reach
// the doctor document.
type UploadHandler struct {
	store storage.ImageStore
	log   *logger.Logger
}

func NewUploadHandler(store storage.ImageStore, log *logger.Logger) *UploadHandler {
	return &UploadHandler{
		store: store,
		log:   log,
	}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h.store == nil {
		h.writeError(w, apperrors.Unavailable("Image upload"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.writeError(w, apperrors.InvalidInput("Invalid multipart form"))
		return
	}

	_, fileHeader, err := r.FormFile("profile_image")
	if err != nil {
		h.writeError(w, apperrors.InvalidInput("Missing 'profile_image' file field"))
		return
	}

	url, err := h.store.Upload(r.Context(), fileHeader)
	if err != nil {
		h.log.Error("Image upload failed", "filename", fileHeader.Filename, "error", err)
		h.writeError(w, apperrors.Internal("Failed to upload image", err))
		return
	}

	h.log.Info("Profile image uploaded", "filename", fileHeader.Filename)

	if err := httputil.WriteCreated(w, map[string]string{"url": url}); err != nil {
		h.log.Error("failed to write created response", "handler", "Upload", "error", err)
	}
}

func (h *UploadHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", "Upload", "error", writeErr)
	}
}

func (h *UploadHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/uploads", h.Upload)
}
