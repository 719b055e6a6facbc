package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/Jis87-63/moz-digital-store/internal/cart"
	"github.com/Jis87-63/moz-digital-store/internal/domain"
	"github.com/Jis87-63/moz-digital-store/internal/event"
	"github.com/Jis87-63/moz-digital-store/internal/identity"
	"github.com/Jis87-63/moz-digital-store/internal/notify"
	"github.com/Jis87-63/moz-digital-store/internal/provider"
	apperrors "github.com/Jis87-63/moz-digital-store/pkg/errors"
	"github.com/Jis87-63/moz-digital-store/pkg/logger"
)

// Checkout flows.
const (
	FlowCart   = "cart"
	FlowBuyNow = "buy_now"
)

// Outcome statuses.
const (
	StatusInitiated = "initiated"
	StatusNoop      = "noop"
)

// CallbackPath is where the gateway sends the shopper after paying.
const CallbackPath = "/pagamento/sucesso"

const (
	msgPaymentStarted  = "Você será redirecionado para completar o pagamento"
	msgGatewayRejected = "Erro ao processar pagamento"
	msgTryAgain        = "Tente novamente mais tarde"
)

// CheckoutConfig holds the store-level settings a payment request needs.
type CheckoutConfig struct {
	Currency      string
	PublicBaseURL string
	LoginPath     string
}

// Outcome is what the shopper's client should do after a checkout attempt.
type Outcome struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	RedirectURL   string `json:"redirect_url,omitempty"`
	Message       string `json:"message,omitempty"`
}

// CheckoutService turns a cart or a single product into a gateway payment.
//
// A payment counts as done once the gateway answers "success" to the create
// call: the cart is cleared right away, with no settlement confirmation and no
// stored order. Status polling exists but is never invoked from here.
type CheckoutService struct {
	gateway  provider.Gateway
	producer *event.Producer
	logger   *slog.Logger
	cfg      CheckoutConfig
	total    *prometheus.CounterVec
}

// NewCheckoutService creates a checkout service and registers its metrics.
func NewCheckoutService(
	gateway provider.Gateway,
	producer *event.Producer,
	logger *slog.Logger,
	cfg CheckoutConfig,
	reg prometheus.Registerer,
) *CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = domain.Currency
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_total",
		Help: "Checkout attempts by flow and result",
	}, []string{"flow", "result"})
	reg.MustRegister(total)

	return &CheckoutService{
		gateway:  gateway,
		producer: producer,
		logger:   logger,
		cfg:      cfg,
		total:    total,
	}
}

// CheckoutCart pays for the whole cart. Without an identity it fails with an
// AUTH_REQUIRED error and an outcome redirecting to the login page, and no
// payment is requested. An empty cart is a no-op. On success the paid lines
// are cleared, leaving anything added while the gateway answered; on any
// failure the cart is left as it was.
func (s *CheckoutService) CheckoutCart(ctx context.Context, id *identity.Identity, store *cart.Store) (*Outcome, error) {
	if id == nil {
		return s.authRequired(ctx, FlowCart, "Você precisa fazer login para finalizar a compra")
	}

	snapshot := store.Snapshot()
	if snapshot.IsEmpty() {
		s.total.WithLabelValues(FlowCart, StatusNoop).Inc()
		return &Outcome{Status: StatusNoop}, nil
	}

	if err := s.requirePhone(ctx, FlowCart, id); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(snapshot.Lines))
	for _, l := range snapshot.Lines {
		names = append(names, fmt.Sprintf("%s (%dx)", l.Product.Name, l.Quantity))
	}

	req := provider.PaymentRequest{
		Amount:        snapshot.TotalPrice(),
		Currency:      s.cfg.Currency,
		Description:   "Carrinho: " + strings.Join(names, ", "),
		CustomerPhone: id.Phone(),
		CallbackURL:   s.callbackURL("cart", "true"),
	}

	outcome, err := s.pay(ctx, FlowCart, id, req)
	if err != nil {
		return nil, err
	}
	store.ClearPaid(ctx, snapshot)
	return outcome, nil
}

// BuyNow pays for quantity units of one product. It never touches any cart.
func (s *CheckoutService) BuyNow(ctx context.Context, id *identity.Identity, product domain.Product, quantity int) (*Outcome, error) {
	if id == nil {
		return s.authRequired(ctx, FlowBuyNow, "Você precisa fazer login para comprar produtos")
	}
	if product.ID == "" {
		return nil, apperrors.InvalidInput("product is required")
	}
	if quantity < 1 {
		quantity = 1
	}

	if err := s.requirePhone(ctx, FlowBuyNow, id); err != nil {
		return nil, err
	}

	req := provider.PaymentRequest{
		Amount:        product.UnitPrice().Mul(decimal.NewFromInt(int64(quantity))),
		Currency:      s.cfg.Currency,
		Description:   "Compra: " + product.Name,
		CustomerPhone: id.Phone(),
		CallbackURL:   s.callbackURL("product", product.ID),
	}
	return s.pay(ctx, FlowBuyNow, id, req)
}

// PaymentStatus asks the gateway for the current state of a transaction.
func (s *CheckoutService) PaymentStatus(ctx context.Context, transactionID string) (*provider.PaymentResponse, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, apperrors.InvalidInput("transaction id is required")
	}

	resp, err := s.gateway.CheckStatus(ctx, transactionID)
	if err != nil {
		var perr *provider.Error
		if errors.As(err, &perr) {
			if perr.StatusCode == 404 {
				return nil, apperrors.NotFound("payment", transactionID)
			}
			return nil, apperrors.PaymentFailed(perr.Message)
		}
		return nil, fmt.Errorf("check payment status: %w", err)
	}
	return resp, nil
}

func (s *CheckoutService) authRequired(ctx context.Context, flow, description string) (*Outcome, error) {
	s.total.WithLabelValues(flow, "auth_required").Inc()
	notify.FromContext(ctx).Notify(ctx, notify.Error("Faça login", description))
	return &Outcome{RedirectURL: s.cfg.LoginPath}, apperrors.AuthRequired(description)
}

func (s *CheckoutService) requirePhone(ctx context.Context, flow string, id *identity.Identity) error {
	if strings.TrimSpace(id.Phone()) != "" {
		return nil
	}
	s.total.WithLabelValues(flow, "invalid").Inc()
	const msg = "Adicione um número de telefone ao seu perfil para continuar"
	notify.FromContext(ctx).Notify(ctx, notify.Error("Erro no pagamento", msg))
	return apperrors.InvalidInput(msg)
}

// pay sends req and reports the result to the shopper. It returns an error
// for any answer other than success.
func (s *CheckoutService) pay(ctx context.Context, flow string, id *identity.Identity, req provider.PaymentRequest) (*Outcome, error) {
	l := logger.FromContext(ctx)
	if l == slog.Default() {
		l = s.logger
	}
	data := event.CheckoutData{
		Flow:        flow,
		UserID:      id.UserID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
	}

	resp, err := s.gateway.CreatePayment(ctx, req)
	if err == nil && !resp.Succeeded() {
		msg := resp.Message
		if msg == "" {
			msg = msgGatewayRejected
		}
		err = &provider.Error{Op: "create payment", Message: msg}
		data.TransactionID = resp.TransactionID
	}
	if err != nil {
		msg := msgTryAgain
		var perr *provider.Error
		if errors.As(err, &perr) && perr.Message != "" {
			msg = perr.Message
		}

		l.ErrorContext(ctx, "payment failed",
			slog.String("flow", flow),
			slog.String("error", err.Error()),
		)
		s.total.WithLabelValues(flow, "failed").Inc()
		notify.FromContext(ctx).Notify(ctx, notify.Error("Erro no pagamento", msg))

		data.ID = uuid.NewString()
		data.FailureReason = msg
		s.publish(ctx, data, s.producer.PublishCheckoutFailed)
		return nil, apperrors.PaymentFailed(msg)
	}

	l.InfoContext(ctx, "payment initiated",
		slog.String("flow", flow),
		slog.String("transaction_id", resp.TransactionID),
		slog.String("amount", req.Amount.StringFixed(2)),
	)
	s.total.WithLabelValues(flow, StatusInitiated).Inc()
	notify.FromContext(ctx).Notify(ctx, notify.Info("Pagamento iniciado", msgPaymentStarted))

	data.ID = resp.TransactionID
	if data.ID == "" {
		data.ID = uuid.NewString()
	}
	data.TransactionID = resp.TransactionID
	s.publish(ctx, data, s.producer.PublishCheckoutInitiated)

	return &Outcome{
		Status:        StatusInitiated,
		TransactionID: resp.TransactionID,
		RedirectURL:   resp.PaymentURL,
		Message:       resp.Message,
	}, nil
}

func (s *CheckoutService) publish(ctx context.Context, data event.CheckoutData, fn func(context.Context, event.CheckoutData) error) {
	if err := fn(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "failed to publish checkout event",
			slog.String("checkout_id", data.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CheckoutService) callbackURL(key, value string) string {
	return s.cfg.PublicBaseURL + CallbackPath + "?" + url.Values{key: {value}}.Encode()
}
