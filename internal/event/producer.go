package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Jis87-63/moz-digital-store/internal/cart"
	"github.com/Jis87-63/moz-digital-store/internal/domain"
	"github.com/Jis87-63/moz-digital-store/internal/identity"
	pkgkafka "github.com/Jis87-63/moz-digital-store/pkg/kafka"
	"github.com/Jis87-63/moz-digital-store/pkg/logger"
)

// Kafka topics for storefront domain events.
var (
	TopicCartUpdated       = pkgkafka.Topic("cart", "updated")
	TopicCartCleared       = pkgkafka.Topic("cart", "cleared")
	TopicCheckoutInitiated = pkgkafka.Topic("checkout", "initiated")
	TopicCheckoutFailed    = pkgkafka.Topic("checkout", "failed")
	TopicUserRegistered    = pkgkafka.Topic("user", "registered")
	TopicSupportReceived   = pkgkafka.Topic("support", "received")
)

// Aggregate types.
const (
	AggregateTypeCart     = "cart"
	AggregateTypeCheckout = "checkout"
	AggregateTypeUser     = "user"
	AggregateTypeSupport  = "support_message"
)

// SourceStorefront identifies events emitted by this service.
const SourceStorefront = "storefront"

// CartLineData is one line of a cart event.
type CartLineData struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CartData is the payload of cart.updated and cart.cleared.
type CartData struct {
	SessionID  string          `json:"session_id"`
	Op         string          `json:"op"`
	ProductID  string          `json:"product_id,omitempty"`
	Lines      []CartLineData  `json:"lines"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// CheckoutData is the payload of checkout.initiated and checkout.failed.
type CheckoutData struct {
	ID            string          `json:"id"`
	Flow          string          `json:"flow"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description"`
	TransactionID string          `json:"transaction_id,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
}

// UserRegisteredData is the payload of user.registered.
type UserRegisteredData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// SupportReceivedData is the payload of support.received.
type SupportReceivedData struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	UserID *string `json:"user_id"`
}

// Producer publishes storefront domain events.
type Producer struct {
	kafka  pkgkafka.Publisher
	logger *slog.Logger
}

// NewProducer creates a producer. A nil publisher drops every event, which is
// how the service runs with Kafka disabled.
func NewProducer(kafka pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if p == nil || p.kafka == nil {
		return nil
	}

	ev, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		ev.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishCartChanged publishes cart.cleared for a clear and cart.updated for
// every other mutation.
func (p *Producer) PublishCartChanged(ctx context.Context, sessionID string, ch cart.Change) error {
	data := CartData{
		SessionID:  sessionID,
		Op:         ch.Op,
		ProductID:  ch.ProductID,
		Lines:      make([]CartLineData, 0, len(ch.State.Lines)),
		TotalItems: ch.State.TotalItems(),
		TotalPrice: ch.State.TotalPrice(),
	}
	for _, l := range ch.State.Lines {
		data.Lines = append(data.Lines, CartLineData{
			ProductID: l.ProductID,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.Product.UnitPrice(),
		})
	}

	topic := TopicCartUpdated
	if ch.Op == cart.OpClear {
		topic = TopicCartCleared
	}
	return p.publish(ctx, topic, sessionID, AggregateTypeCart, data)
}

// CartObserver adapts PublishCartChanged to a cart registry observer.
// Publish failures are logged and never reach the shopper.
func (p *Producer) CartObserver() cart.Observer {
	return func(ctx context.Context, sessionID string, ch cart.Change) {
		if err := p.PublishCartChanged(ctx, sessionID, ch); err != nil {
			p.logger.WarnContext(ctx, "failed to publish cart event",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// PublishCheckoutInitiated publishes checkout.initiated.
func (p *Producer) PublishCheckoutInitiated(ctx context.Context, data CheckoutData) error {
	return p.publish(ctx, TopicCheckoutInitiated, data.ID, AggregateTypeCheckout, data)
}

// PublishCheckoutFailed publishes checkout.failed.
func (p *Producer) PublishCheckoutFailed(ctx context.Context, data CheckoutData) error {
	return p.publish(ctx, TopicCheckoutFailed, data.ID, AggregateTypeCheckout, data)
}

// PublishUserRegistered publishes user.registered.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, user.ID, AggregateTypeUser, UserRegisteredData{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

// IdentityListener publishes user.registered for every new account.
func (p *Producer) IdentityListener() identity.Listener {
	return func(ctx context.Context, ev identity.Event) {
		if ev.Type != identity.EventRegistered || ev.User == nil {
			return
		}
		if err := p.PublishUserRegistered(ctx, ev.User); err != nil {
			p.logger.WarnContext(ctx, "failed to publish user event",
				slog.String("user_id", ev.User.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// PublishSupportReceived publishes support.received.
func (p *Producer) PublishSupportReceived(ctx context.Context, m *domain.SupportMessage) error {
	return p.publish(ctx, TopicSupportReceived, m.ID, AggregateTypeSupport, SupportReceivedData{
		ID:     m.ID,
		Name:   m.Name,
		Email:  m.Email,
		UserID: m.UserID,
	})
}
