// Package catalog exposes the product, category and banner collections as
// read-only lists that can be fetched once or followed as they change.
package catalog

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Query selects and orders documents of one collection. Each collection only
// honours the fields that make sense for it.
type Query struct {
	Name           string
	CategoryID     string
	OnlyDiscounted bool
	OnlyActive     bool
}

// ProductsQuery lists products newest first, optionally within one category.
func ProductsQuery(categoryID string) Query {
	return Query{Name: "products", CategoryID: categoryID}
}

// PromotionsQuery lists discounted products newest first.
func PromotionsQuery() Query {
	return Query{Name: "promotions", OnlyDiscounted: true}
}

// CategoriesQuery lists categories by their order field.
func CategoriesQuery() Query {
	return Query{Name: "categories"}
}

// ActiveBannersQuery lists active banners by their order field.
func ActiveBannersQuery() Query {
	return Query{Name: "banners", OnlyActive: true}
}

// Collection is a remote collection of T.
type Collection[T any] interface {
	// Find runs q and returns the full result set.
	Find(ctx context.Context, q Query) ([]T, error)

	// FindByID returns one document, or an error wrapping
	// apperrors.ErrNotFound.
	FindByID(ctx context.Context, id string) (*T, error)

	// Changes signals every change to the collection until ctx is done, then
	// closes the channel. Bursts may be coalesced into one signal.
	Changes(ctx context.Context) (<-chan struct{}, error)
}

// SnapshotFunc receives a full result set.
type SnapshotFunc[T any] func(items []T)

// ErrorFunc receives a failed refresh. The subscription stays active.
type ErrorFunc func(err error)

// Reader serves one collection to consumers.
type Reader[T any] struct {
	source Collection[T]
	logger *slog.Logger
}

func NewReader[T any](source Collection[T], logger *slog.Logger) *Reader[T] {
	return &Reader[T]{source: source, logger: logger}
}

// List runs q once.
func (r *Reader[T]) List(ctx context.Context, q Query) ([]T, error) {
	items, err := r.source.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Get reads one document once. A missing document yields an error wrapping
// apperrors.ErrNotFound; anything else is a transport error.
func (r *Reader[T]) Get(ctx context.Context, id string) (*T, error) {
	return r.source.FindByID(ctx, id)
}

// Subscribe returns the current result of q and then calls onSnapshot with
// the full result every time it changes, until cancel is called or ctx is
// done. Refresh failures go to onError. No callback runs once cancel has
// returned. Callbacks run on a single goroutine and must not call cancel.
func (r *Reader[T]) Subscribe(ctx context.Context, q Query, onSnapshot SnapshotFunc[T], onError ErrorFunc) (initial []T, cancel func(), err error) {
	initial, err = r.List(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	subCtx, stop := context.WithCancel(ctx)
	changes, err := r.source.Changes(subCtx)
	if err != nil {
		stop()
		return nil, nil, err
	}

	sub := &subscription[T]{
		reader:     r,
		query:      q,
		onSnapshot: onSnapshot,
		onError:    onError,
		last:       initial,
		done:       make(chan struct{}),
	}
	go sub.run(subCtx, changes)

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			stop()
			sub.mu.Lock()
			sub.stopped = true
			sub.mu.Unlock()
		})
	}
	return initial, cancel, nil
}

type subscription[T any] struct {
	reader     *Reader[T]
	query      Query
	onSnapshot SnapshotFunc[T]
	onError    ErrorFunc

	mu      sync.Mutex
	stopped bool
	last    []T
	done    chan struct{}
}

func (s *subscription[T]) run(ctx context.Context, changes <-chan struct{}) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			s.refresh(ctx)
		}
	}
}

func (s *subscription[T]) refresh(ctx context.Context) {
	items, err := s.reader.List(ctx, s.query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || ctx.Err() != nil {
		return
	}

	if err != nil {
		s.reader.logger.WarnContext(ctx, "catalog refresh failed",
			slog.String("query", s.query.Name),
			slog.String("error", err.Error()),
		)
		if s.onError != nil {
			s.onError(err)
		}
		return
	}

	if reflect.DeepEqual(items, s.last) {
		return
	}
	s.last = items
	if s.onSnapshot != nil {
		s.onSnapshot(items)
	}
}

// Poll signals on every tick of interval until ctx is done. It serves as the
// change signal of sources that cannot push changes.
func Poll(ctx context.Context, interval time.Duration) <-chan struct{} {
	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				Signal(ch)
			}
		}
	}()
	return ch
}

// Signal does a non-blocking send on ch, coalescing with a pending signal.
func Signal(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
