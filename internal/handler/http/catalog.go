package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Jis87-63/moz-digital-store/internal/catalog"
	"github.com/Jis87-63/moz-digital-store/pkg/httputil"
	"github.com/Jis87-63/moz-digital-store/pkg/logger"
)

// SSE event names.
const (
	eventSnapshot = "snapshot"
	eventError    = "error"
	eventPing     = "ping"
)

const streamKeepAlive = 25 * time.Second

// CatalogHandler serves products, categories and banners, both as one-shot
// lists and as live Server-Sent Events streams.
type CatalogHandler struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

func NewCatalogHandler(c *catalog.Catalog, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: c, logger: logger}
}

// ListProducts handles GET /api/v1/products?category={id}
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.CategoryProducts(r.Context(), r.URL.Query().Get("category"))
	h.list(w, r, items, err)
}

// GetProduct handles GET /api/v1/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

// ListPromotions handles GET /api/v1/promotions
func (h *CatalogHandler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.Promotions(r.Context())
	h.list(w, r, items, err)
}

// ListCategories handles GET /api/v1/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.AllCategories(r.Context())
	h.list(w, r, items, err)
}

// ListBanners handles GET /api/v1/banners
func (h *CatalogHandler) ListBanners(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ActiveBanners(r.Context())
	h.list(w, r, items, err)
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request, items any, err error) {
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, items)
}

// StreamProducts handles GET /api/v1/products/stream?category={id}
func (h *CatalogHandler) StreamProducts(w http.ResponseWriter, r *http.Request) {
	stream(w, r, h.catalog.Products, catalog.ProductsQuery(r.URL.Query().Get("category")), h.logger)
}

// StreamPromotions handles GET /api/v1/promotions/stream
func (h *CatalogHandler) StreamPromotions(w http.ResponseWriter, r *http.Request) {
	stream(w, r, h.catalog.Products, catalog.PromotionsQuery(), h.logger)
}

// StreamCategories handles GET /api/v1/categories/stream
func (h *CatalogHandler) StreamCategories(w http.ResponseWriter, r *http.Request) {
	stream(w, r, h.catalog.Categories, catalog.CategoriesQuery(), h.logger)
}

// StreamBanners handles GET /api/v1/banners/stream
func (h *CatalogHandler) StreamBanners(w http.ResponseWriter, r *http.Request) {
	stream(w, r, h.catalog.Banners, catalog.ActiveBannersQuery(), h.logger)
}

// stream subscribes to q and forwards every snapshot as an SSE event until the
// client disconnects, which cancels the subscription. A slow client only ever
// sees the latest snapshot.
func stream[T any](w http.ResponseWriter, r *http.Request, reader *catalog.Reader[T], q catalog.Query, fallback *slog.Logger) {
	ctx := r.Context()

	latest := make(chan []T, 1)
	failed := make(chan struct{}, 1)

	initial, cancel, err := reader.Subscribe(ctx, q,
		func(items []T) {
			select {
			case <-latest:
			default:
			}
			latest <- items
		},
		func(error) {
			select {
			case failed <- struct{}{}:
			default:
			}
		},
	)
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}
	defer cancel()

	es, err := httputil.NewEventStream(w)
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}

	l := logger.FromContext(ctx)
	if err := es.Send(eventSnapshot, initial); err != nil {
		return
	}

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			l.DebugContext(ctx, "catalog stream closed", slog.String("collection", q.Name))
			return
		case items := <-latest:
			err = es.Send(eventSnapshot, items)
		case <-failed:
			err = es.Send(eventError, httputil.ErrorResponse{
				Code:    "CATALOG_UNAVAILABLE",
				Message: "Falha ao carregar dados",
			})
		case <-keepAlive.C:
			err = es.Send(eventPing, struct{}{})
		}
		if err != nil {
			return
		}
	}
}
