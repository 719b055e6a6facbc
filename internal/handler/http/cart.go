package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Jis87-63/moz-digital-store/internal/cart"
	"github.com/Jis87-63/moz-digital-store/internal/catalog"
)

// CartHandler serves the session cart.
type CartHandler struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

func NewCartHandler(c *catalog.Catalog, logger *slog.Logger) *CartHandler {
	return &CartHandler{catalog: c, logger: logger}
}

// --- Request DTOs ---

// MaxAddQuantity bounds a single add request.
const MaxAddQuantity = 100

// AddItemRequest adds quantity units of a product. Quantity defaults to 1.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=100"`
}

// UpdateQuantityRequest sets a line's quantity. Zero or less removes it.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartResponse is the cart with its derived totals.
type CartResponse struct {
	SessionID  string          `json:"session_id"`
	Items      []cart.Line     `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func cartResponse(sess *cart.Session) CartResponse {
	state := sess.Cart.Snapshot()
	items := state.Lines
	if items == nil {
		items = []cart.Line{}
	}
	return CartResponse{
		SessionID:  sess.ID,
		Items:      items,
		TotalItems: state.TotalItems(),
		TotalPrice: state.TotalPrice(),
	}
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, cartResponse(sessionFrom(r.Context())))
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, err := h.catalog.Product(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	sess := sessionFrom(r.Context())
	sess.Cart.AddToCart(r.Context(), *product, req.Quantity)
	writeData(w, r, http.StatusOK, cartResponse(sess))
}

// UpdateQuantity handles PUT /api/v1/cart/items/{productId}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if !decode(w, r, &req) {
		return
	}

	sess := sessionFrom(r.Context())
	sess.Cart.UpdateQuantity(r.Context(), chi.URLParam(r, "productId"), req.Quantity)
	writeData(w, r, http.StatusOK, cartResponse(sess))
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.Cart.RemoveFromCart(r.Context(), chi.URLParam(r, "productId"))
	writeData(w, r, http.StatusOK, cartResponse(sess))
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.Cart.ClearCart(r.Context())
	writeData(w, r, http.StatusOK, cartResponse(sess))
}
