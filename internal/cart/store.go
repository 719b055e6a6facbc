package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/Jis87-63/moz-digital-store/internal/domain"
	"github.com/Jis87-63/moz-digital-store/internal/notify"
	apperrors "github.com/Jis87-63/moz-digital-store/pkg/errors"
	"github.com/Jis87-63/moz-digital-store/pkg/logger"
)

// Change operations.
const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpUpdate = "update"
	OpClear  = "clear"
)

// Change describes one applied mutation and the resulting state.
type Change struct {
	Op        string
	ProductID string
	State     State
}

// Listener observes cart changes. Listeners run after the mutation has been
// persisted, in mutation order, and must not mutate the store they observe.
type Listener func(ctx context.Context, ch Change)

// Store owns one cart. Each mutation is applied and persisted atomically with
// respect to every other mutation on the same store.
type Store struct {
	mu       sync.Mutex
	state    State
	key      string
	storage  Storage
	notifier notify.Notifier
	logger   *slog.Logger

	deliverMu sync.Mutex
	listeners map[int]*subscription
	nextID    int
}

// Open creates a store persisted under key and hydrates it from storage. A
// missing or unreadable value yields an empty cart.
func Open(ctx context.Context, key string, storage Storage, notifier notify.Notifier, l *slog.Logger) *Store {
	if notifier == nil {
		notifier = notify.Discard
	}
	s := &Store{
		state:     State{Lines: []Line{}},
		key:       key,
		storage:   storage,
		notifier:  notifier,
		logger:    l,
		listeners: make(map[int]*subscription),
	}
	s.hydrate(ctx)
	return s
}

func (s *Store) hydrate(ctx context.Context) {
	data, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.log(ctx).WarnContext(ctx, "failed to load cart, starting empty",
				slog.String("key", s.key),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.log(ctx).WarnContext(ctx, "stored cart is corrupt, starting empty",
			slog.String("key", s.key),
			slog.String("error", err.Error()),
		)
		return
	}
	if st.normalize() {
		s.log(ctx).WarnContext(ctx, "stored cart had invalid lines, repaired", slog.String("key", s.key))
	}
	s.state = st
}

// AddToCart adds quantity of product, merging into an existing line. A
// quantity below 1 adds a single unit. The merged quantity saturates at
// math.MaxInt.
func (s *Store) AddToCart(ctx context.Context, product domain.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	s.mutate(ctx, product.ID, func(st *State) string {
		if i := st.indexOf(product.ID); i >= 0 {
			st.Lines[i].Quantity = addQuantity(st.Lines[i].Quantity, quantity)
			return OpAdd
		}
		st.Lines = append(st.Lines, Line{ProductID: product.ID, Quantity: quantity, Product: product})
		return OpAdd
	})

	s.notifier.Notify(ctx, notify.Info(
		"Produto adicionado ao carrinho",
		fmt.Sprintf("%s foi adicionado ao seu carrinho", product.Name),
	))
}

// RemoveFromCart deletes the product's line. Removing an absent product does
// nothing.
func (s *Store) RemoveFromCart(ctx context.Context, productID string) {
	var removed *Line
	s.mutate(ctx, productID, func(st *State) string {
		i := st.indexOf(productID)
		if i < 0 {
			return ""
		}
		line := st.Lines[i]
		removed = &line
		st.Lines = append(st.Lines[:i:i], st.Lines[i+1:]...)
		return OpRemove
	})

	if removed != nil {
		s.notifier.Notify(ctx, notify.Info(
			"Produto removido",
			fmt.Sprintf("%s foi removido do carrinho", removed.Product.Name),
		))
	}
}

// UpdateQuantity replaces the product's quantity. A quantity of zero or less
// removes the line exactly like RemoveFromCart.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) {
	if quantity <= 0 {
		s.RemoveFromCart(ctx, productID)
		return
	}

	s.mutate(ctx, productID, func(st *State) string {
		i := st.indexOf(productID)
		if i < 0 {
			return ""
		}
		st.Lines[i].Quantity = quantity
		return OpUpdate
	})
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context) {
	s.mutate(ctx, "", func(st *State) string {
		st.Lines = []Line{}
		return OpClear
	})

	s.notifier.Notify(ctx, notify.Info("Carrinho limpo", "Todos os produtos foram removidos do carrinho"))
}

// ClearPaid removes the quantities in paid, a snapshot taken before payment.
// Units added after the snapshot stay in the cart. When nothing remains it
// behaves exactly like ClearCart.
func (s *Store) ClearPaid(ctx context.Context, paid State) {
	emptied := false
	s.mutate(ctx, "", func(st *State) string {
		kept := make([]Line, 0, len(st.Lines))
		for _, l := range st.Lines {
			if i := paid.indexOf(l.ProductID); i >= 0 {
				l.Quantity -= paid.Lines[i].Quantity
			}
			if l.Quantity > 0 {
				kept = append(kept, l)
			}
		}
		st.Lines = kept
		if len(kept) == 0 {
			emptied = true
			return OpClear
		}
		return OpUpdate
	})

	if emptied {
		s.notifier.Notify(ctx, notify.Info("Carrinho limpo", "Todos os produtos foram removidos do carrinho"))
		return
	}
	s.notifier.Notify(ctx, notify.Info("Carrinho atualizado", "Os produtos pagos foram removidos do carrinho"))
}

// mutate applies fn under the store lock. fn returns the applied operation,
// or "" when it changed nothing. A change is persisted and delivered to
// listeners.
func (s *Store) mutate(ctx context.Context, productID string, fn func(*State) string) {
	s.mu.Lock()
	op := fn(&s.state)
	if op == "" {
		s.mu.Unlock()
		return
	}
	s.persist(ctx)
	ch := Change{Op: op, ProductID: productID, State: s.state.clone()}
	listeners := s.snapshotListeners()

	s.deliverMu.Lock()
	s.mu.Unlock()
	defer s.deliverMu.Unlock()

	for _, sub := range listeners {
		if sub.active.Load() {
			sub.fn(ctx, ch)
		}
	}
}

func (s *Store) persist(ctx context.Context) {
	data, err := json.Marshal(s.state)
	if err == nil {
		err = s.storage.Set(ctx, s.key, data)
	}
	if err != nil {
		s.log(ctx).ErrorContext(ctx, "failed to persist cart",
			slog.String("key", s.key),
			slog.String("error", err.Error()),
		)
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Items returns a copy of the cart lines.
func (s *Store) Items() []Line {
	return s.Snapshot().Lines
}

// TotalItems is recomputed from the current lines on every call.
func (s *Store) TotalItems() int {
	return s.Snapshot().TotalItems()
}

// TotalPrice is recomputed from the current lines on every call.
func (s *Store) TotalPrice() decimal.Decimal {
	return s.Snapshot().TotalPrice()
}

// Subscribe registers l for every subsequent change. After the returned
// function has been called no new delivery to l starts.
func (s *Store) Subscribe(l Listener) (cancel func()) {
	sub := &subscription{fn: l}
	sub.active.Store(true)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = sub
	s.mu.Unlock()

	return func() {
		if sub.active.Swap(false) {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		}
	}
}

type subscription struct {
	fn     Listener
	active atomic.Bool
}

// snapshotListeners returns the subscriptions in registration order.
func (s *Store) snapshotListeners() []*subscription {
	if len(s.listeners) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*subscription, len(ids))
	for i, id := range ids {
		out[i] = s.listeners[id]
	}
	return out
}

func (s *Store) log(ctx context.Context) *slog.Logger {
	if l := logger.FromContext(ctx); l != slog.Default() || s.logger == nil {
		return l
	}
	return s.logger
}
