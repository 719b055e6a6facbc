package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Jis87-63/moz-digital-store/internal/service"
	"github.com/Jis87-63/moz-digital-store/pkg/pagination"
)

const maxUploadBytes = service.MaxImageSize + 1<<10

// AdminHandler serves the catalog management panel.
type AdminHandler struct {
	service *service.AdminService
	logger  *slog.Logger
}

func NewAdminHandler(svc *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{service: svc, logger: logger}
}

// SetAdminRequest is the JSON body of PUT /api/v1/admin/users/{id}/admin.
type SetAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

// --- Products ---

// ListProducts handles GET /api/v1/admin/products
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListProducts(r.Context(), r.URL.Query().Get("category"), pagination.FromRequest(r))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, res)
}

// CreateProduct handles POST /api/v1/admin/products
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req service.ProductInput
	if !decode(w, r, &req) {
		return
	}
	p, err := h.service.CreateProduct(r.Context(), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusCreated, p)
}

// UpdateProduct handles PUT /api/v1/admin/products/{id}
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req service.ProductInput
	if !decode(w, r, &req) {
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

// DeleteProduct handles DELETE /api/v1/admin/products/{id}
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")))
}

// --- Categories ---

// CreateCategory handles POST /api/v1/admin/categories
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req service.CategoryInput
	if !decode(w, r, &req) {
		return
	}
	c, err := h.service.CreateCategory(r.Context(), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusCreated, c)
}

// UpdateCategory handles PUT /api/v1/admin/categories/{id}
func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req service.CategoryInput
	if !decode(w, r, &req) {
		return
	}
	c, err := h.service.UpdateCategory(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, c)
}

// DeleteCategory handles DELETE /api/v1/admin/categories/{id}
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.service.DeleteCategory(r.Context(), chi.URLParam(r, "id")))
}

// --- Banners ---

// CreateBanner handles POST /api/v1/admin/banners
func (h *AdminHandler) CreateBanner(w http.ResponseWriter, r *http.Request) {
	var req service.BannerInput
	if !decode(w, r, &req) {
		return
	}
	b, err := h.service.CreateBanner(r.Context(), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusCreated, b)
}

// UpdateBanner handles PUT /api/v1/admin/banners/{id}
func (h *AdminHandler) UpdateBanner(w http.ResponseWriter, r *http.Request) {
	var req service.BannerInput
	if !decode(w, r, &req) {
		return
	}
	b, err := h.service.UpdateBanner(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, b)
}

// DeleteBanner handles DELETE /api/v1/admin/banners/{id}
func (h *AdminHandler) DeleteBanner(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.service.DeleteBanner(r.Context(), chi.URLParam(r, "id")))
}

// --- Support inbox ---

// ListSupportMessages handles GET /api/v1/admin/support
func (h *AdminHandler) ListSupportMessages(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListSupportMessages(r.Context(), pagination.FromRequest(r))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, res)
}

// MarkSupportMessageRead handles PUT /api/v1/admin/support/{id}/read
func (h *AdminHandler) MarkSupportMessageRead(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, r, h.service.MarkSupportMessageRead(r.Context(), chi.URLParam(r, "id")))
}

// --- Users ---

// SetAdmin handles PUT /api/v1/admin/users/{id}/admin
func (h *AdminHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	var req SetAdminRequest
	if !decode(w, r, &req) {
		return
	}
	h.noContent(w, r, h.service.SetAdmin(r.Context(), chi.URLParam(r, "id"), req.IsAdmin))
}

// --- Media ---

// UploadImage handles POST /api/v1/admin/media as multipart form field "file".
func (h *AdminHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeBadRequest(w, r, "image must be at most "+strconv.Itoa(service.MaxImageSize>>20)+" MB")
			return
		}
		writeBadRequest(w, r, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	url, err := h.service.UploadImage(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusCreated, map[string]string{"url": url})
}

func (h *AdminHandler) noContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
