// Package gibrapay is the Gibrapay mobile-money gateway client.
package gibrapay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Jis87-63/moz-digital-store/internal/provider"
	"github.com/Jis87-63/moz-digital-store/pkg/httpclient"
	"github.com/Jis87-63/moz-digital-store/pkg/logger"
)

// Messages used when the gateway gives none.
const (
	FallbackCreateMessage = "Erro no pagamento"
	FallbackStatusMessage = "Erro ao verificar status do pagamento"
)

const (
	serviceName     = "gibrapay"
	maxResponseBody = 1 << 20
)

// Config holds the gateway endpoint and credentials.
type Config struct {
	BaseURL   string
	AuthToken string
	APIKey    string
	WalletID  string
	Timeout   time.Duration
}

// Client talks to the Gibrapay REST API.
type Client struct {
	cfg    Config
	http   httpclient.Doer
	logger *slog.Logger
}

var _ provider.Gateway = (*Client)(nil)

// New builds a client whose transport is guarded by a circuit breaker.
// Requests are never retried so a payment is not created twice.
func New(cfg Config, l *slog.Logger) *Client {
	hc := httpclient.DefaultConfig()
	hc.MaxRetries = 0
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	cb := httpclient.NewCircuitBreakerClient(httpclient.New(hc), httpclient.DefaultCircuitBreakerConfig(serviceName), l)
	return NewWithDoer(cfg, cb, l)
}

// NewWithDoer builds a client on top of an existing transport.
func NewWithDoer(cfg Config, doer httpclient.Doer, l *slog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: doer, logger: l}
}

type paymentBody struct {
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency"`
	Description   string      `json:"description"`
	CustomerPhone string      `json:"customer_phone"`
	CallbackURL   string      `json:"callback_url,omitempty"`
}

// CreatePayment sends POST /payment.
func (c *Client) CreatePayment(ctx context.Context, req provider.PaymentRequest) (*provider.PaymentResponse, error) {
	body, err := json.Marshal(paymentBody{
		Amount:        json.Number(req.Amount.String()),
		Currency:      req.Currency,
		Description:   req.Description,
		CustomerPhone: req.CustomerPhone,
		CallbackURL:   req.CallbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/payment", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, "create payment", httpReq, FallbackCreateMessage)
	if err != nil {
		return nil, err
	}

	c.log(ctx).InfoContext(ctx, "gibrapay payment created",
		slog.String("transaction_id", resp.TransactionID),
		slog.String("status", resp.Status),
	)
	return resp, nil
}

// CheckStatus sends GET /payment/status/{id}.
func (c *Client) CheckStatus(ctx context.Context, transactionID string) (*provider.PaymentResponse, error) {
	endpoint := c.cfg.BaseURL + "/payment/status/" + url.PathEscape(transactionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create status request: %w", err)
	}
	return c.do(ctx, "check status", httpReq, FallbackStatusMessage)
}

func (c *Client) do(ctx context.Context, op string, req *http.Request, fallback string) (*provider.PaymentResponse, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	req.Header.Set("X-Wallet-ID", c.cfg.WalletID)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, c.transportError(ctx, op, err, fallback)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rerr := httpclient.ParseResponseError(resp, serviceName, fallback)
		c.log(ctx).WarnContext(ctx, "gibrapay rejected request",
			slog.String("op", op),
			slog.Int("status", rerr.StatusCode),
			slog.String("message", rerr.Message),
		)
		return nil, &provider.Error{Op: op, StatusCode: rerr.StatusCode, Message: rerr.Message}
	}
	defer func() { _ = resp.Body.Close() }()

	var out provider.PaymentResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&out); err != nil {
		return nil, &provider.Error{Op: op, StatusCode: resp.StatusCode, Message: fallback, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &out, nil
}

// transportError turns a failed round trip into a provider.Error. A 5xx reply
// surfaces from the circuit breaker as *httpclient.ResponseError; its message
// is kept only when the gateway supplied one.
func (c *Client) transportError(ctx context.Context, op string, err error, fallback string) error {
	c.log(ctx).ErrorContext(ctx, "gibrapay request failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)

	var rerr *httpclient.ResponseError
	if errors.As(err, &rerr) {
		msg := rerr.Message
		if msg == "" || msg == http.StatusText(rerr.StatusCode) {
			msg = fallback
		}
		return &provider.Error{Op: op, StatusCode: rerr.StatusCode, Message: msg, Err: err}
	}
	return &provider.Error{Op: op, Message: fallback, Err: err}
}

func (c *Client) log(ctx context.Context) *slog.Logger {
	if l := logger.FromContext(ctx); l != slog.Default() || c.logger == nil {
		return l
	}
	return c.logger
}
