package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Jis87-63/moz-digital-store/internal/service"
)

// MediaHandler serves uploaded images.
type MediaHandler struct {
	service *service.AdminService
	logger  *slog.Logger
}

func NewMediaHandler(svc *service.AdminService, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{service: svc, logger: logger}
}

// ServeImage handles GET /media/{id}
func (h *MediaHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := h.service.OpenImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(r.Context(), "failed to stream image",
			slog.String("media_id", chi.URLParam(r, "id")),
			slog.String("error", err.Error()),
		)
	}
}
