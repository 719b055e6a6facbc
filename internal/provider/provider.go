// Package provider defines the payment gateway contract used by checkout.
package provider

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// StatusSuccess is the only gateway status checkout treats as success.
const StatusSuccess = "success"

// PaymentRequest asks the gateway to charge a mobile-money wallet.
type PaymentRequest struct {
	Amount        decimal.Decimal
	Currency      string
	Description   string
	CustomerPhone string
	CallbackURL   string
}

// PaymentResponse is the gateway's immediate answer. It reflects initiation,
// not settlement.
type PaymentResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	PaymentURL    string `json:"payment_url,omitempty"`
	Message       string `json:"message"`
}

// Succeeded reports whether the gateway answered with StatusSuccess.
func (r *PaymentResponse) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// Gateway creates payments and reports their status.
type Gateway interface {
	CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error)
	CheckStatus(ctx context.Context, transactionID string) (*PaymentResponse, error)
}

// Error is a gateway failure carrying a message fit to show the shopper.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %s: %v", e.Op, e.Message, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
