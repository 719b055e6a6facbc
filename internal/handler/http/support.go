package http

import (
	"log/slog"
	"net/http"

	"github.com/Jis87-63/moz-digital-store/internal/service"
)

// SupportHandler accepts the contact form.
type SupportHandler struct {
	service *service.SupportService
	logger  *slog.Logger
}

func NewSupportHandler(svc *service.SupportService, logger *slog.Logger) *SupportHandler {
	return &SupportHandler{service: svc, logger: logger}
}

// Submit handles POST /api/v1/support
func (h *SupportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.SupportInput
	if !decodeRaw(w, r, &req) {
		return
	}

	userID := ""
	if id := identityFrom(r.Context()); id != nil {
		userID = id.UserID
	}

	msg, err := h.service.Submit(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusCreated, msg)
}
