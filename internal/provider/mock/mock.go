// Package mock is an in-process payment gateway for development. Every
// payment succeeds and redirects straight to the callback URL.
package mock

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/Jis87-63/moz-digital-store/internal/provider"
)

// Gateway records created payments in memory.
type Gateway struct {
	mu       sync.RWMutex
	payments map[string]provider.PaymentRequest
}

var _ provider.Gateway = (*Gateway)(nil)

func New() *Gateway {
	return &Gateway{payments: make(map[string]provider.PaymentRequest)}
}

func (g *Gateway) CreatePayment(_ context.Context, req provider.PaymentRequest) (*provider.PaymentResponse, error) {
	id := uuid.NewString()

	g.mu.Lock()
	g.payments[id] = req
	g.mu.Unlock()

	return &provider.PaymentResponse{
		Status:        provider.StatusSuccess,
		TransactionID: id,
		PaymentURL:    req.CallbackURL,
		Message:       "Pagamento simulado",
	}, nil
}

func (g *Gateway) CheckStatus(_ context.Context, transactionID string) (*provider.PaymentResponse, error) {
	g.mu.RLock()
	_, ok := g.payments[transactionID]
	g.mu.RUnlock()

	if !ok {
		return nil, &provider.Error{
			Op:         "check status",
			StatusCode: http.StatusNotFound,
			Message:    "Transação não encontrada",
		}
	}
	return &provider.PaymentResponse{
		Status:        provider.StatusSuccess,
		TransactionID: transactionID,
		Message:       "Pagamento simulado",
	}, nil
}
