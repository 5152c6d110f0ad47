package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hairizuan-noorazman/ui-harness/logger"
	"github.com/hairizuan-noorazman/ui-harness/storage"
)

// ArtifactHandler serves stored failure artifacts such as screenshots.
type ArtifactHandler struct {
	storage storage.BlobStorage
	logger  logger.Logger
}

// NewArtifactHandler creates a new artifact handler.
func NewArtifactHandler(storage storage.BlobStorage, log logger.Logger) *ArtifactHandler {
	return &ArtifactHandler{
		storage: storage,
		logger:  log,
	}
}

// Get streams the artifact at the path route variable.
func (h *ArtifactHandler) Get(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]

	rc, err := h.storage.Download(r.Context(), path)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrFileNotFound):
			respondError(w, http.StatusNotFound, "artifact not found")
		case errors.Is(err, storage.ErrInvalidPath):
			respondError(w, http.StatusBadRequest, "invalid artifact path")
		default:
			h.logger.Error(r.Context(), "failed to download artifact", map[string]interface{}{
				"error": err.Error(),
				"path":  path,
			})
			respondError(w, http.StatusInternalServerError, "failed to download artifact")
		}
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", storage.ContentType(path))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn(r.Context(), "failed to stream artifact", map[string]interface{}{
			"error": err.Error(),
			"path":  path,
		})
	}
}
