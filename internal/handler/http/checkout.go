package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Jis87-63/moz-digital-store/internal/catalog"
	"github.com/Jis87-63/moz-digital-store/internal/service"
)

// CheckoutHandler starts payments for the session cart or a single product.
type CheckoutHandler struct {
	service *service.CheckoutService
	catalog *catalog.Catalog
	logger  *slog.Logger
}

func NewCheckoutHandler(svc *service.CheckoutService, c *catalog.Catalog, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: svc, catalog: c, logger: logger}
}

// BuyNowRequest is the JSON body of a single-product checkout.
type BuyNowRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
}

// CheckoutCart handles POST /api/v1/checkout/cart
func (h *CheckoutHandler) CheckoutCart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	outcome, err := h.service.CheckoutCart(r.Context(), identityFrom(r.Context()), sess.Cart)
	h.respond(w, r, outcome, err)
}

// BuyNow handles POST /api/v1/checkout/buy-now
func (h *CheckoutHandler) BuyNow(w http.ResponseWriter, r *http.Request) {
	var req BuyNowRequest
	if !decode(w, r, &req) {
		return
	}

	product, err := h.catalog.Product(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	outcome, err := h.service.BuyNow(r.Context(), identityFrom(r.Context()), *product, req.Quantity)
	h.respond(w, r, outcome, err)
}

// PaymentStatus handles GET /api/v1/payments/{transactionId}/status
func (h *CheckoutHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.PaymentStatus(r.Context(), chi.URLParam(r, "transactionId"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, resp)
}

func (h *CheckoutHandler) respond(w http.ResponseWriter, r *http.Request, outcome *service.Outcome, err error) {
	if err != nil {
		redirect := ""
		if outcome != nil {
			redirect = outcome.RedirectURL
		}
		writeErrorRedirect(w, r, err, redirect, h.logger)
		return
	}
	writeRedirect(w, r, http.StatusOK, outcome, outcome.RedirectURL)
}
