package cart

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Jis87-63/moz-digital-store/internal/notify"
)

// Observer sees every change of every session's cart.
type Observer func(ctx context.Context, sessionID string, ch Change)

// Session is the server-side state of one shopper session.
type Session struct {
	ID    string
	Cart  *Store
	Inbox *notify.Inbox

	ready    chan struct{}
	lastSeen time.Time
	inUse    int
}

// Registry hands out one Session per session id. Sessions are opened lazily,
// hydrated from storage, and evicted after idleTTL without use. A session held
// through Acquire is never evicted. An evicted session rehydrates from storage
// the next time it is opened.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	storage   Storage
	logger    *slog.Logger
	idleTTL   time.Duration
	observers []Observer
	now       func() time.Time
}

// NewRegistry creates a registry persisting carts to storage.
func NewRegistry(storage Storage, logger *slog.Logger, idleTTL time.Duration, observers ...Observer) *Registry {
	return &Registry{
		sessions:  make(map[string]*Session),
		storage:   storage,
		logger:    logger,
		idleTTL:   idleTTL,
		observers: observers,
		now:       time.Now,
	}
}

// Open returns the session for id, hydrating its cart on first use.
// Concurrent first opens of the same id share one hydration.
func (r *Registry) Open(ctx context.Context, id string) *Session {
	return r.open(ctx, id, 0)
}

// Acquire opens the session for id and keeps it from being evicted until
// release is called. Release refreshes the session's idle clock.
func (r *Registry) Acquire(ctx context.Context, id string) (sess *Session, release func()) {
	sess = r.open(ctx, id, 1)
	var once sync.Once
	return sess, func() {
		once.Do(func() {
			r.mu.Lock()
			sess.inUse--
			sess.lastSeen = r.now()
			r.mu.Unlock()
		})
	}
}

func (r *Registry) open(ctx context.Context, id string, hold int) *Session {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		sess.lastSeen = r.now()
		sess.inUse += hold
		r.mu.Unlock()
		<-sess.ready
		return sess
	}
	sess = &Session{ID: id, Inbox: &notify.Inbox{}, ready: make(chan struct{}), lastSeen: r.now(), inUse: hold}
	r.sessions[id] = sess
	r.mu.Unlock()

	// A client hanging up mid-hydration must not leave an empty cart that
	// would overwrite the stored one on the next mutation.
	sess.Cart = Open(context.WithoutCancel(ctx), SessionKey(id), r.storage, sess.Inbox, r.logger)
	for _, obs := range r.observers {
		obs := obs
		sess.Cart.Subscribe(func(ctx context.Context, ch Change) {
			obs(ctx, id, ch)
		})
	}
	close(sess.ready)

	r.logger.DebugContext(ctx, "cart session opened", slog.String("session_id", id))
	return sess
}

// Len is the number of sessions in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run evicts idle sessions until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	interval := r.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.evictIdle(); n > 0 {
				r.logger.Debug("evicted idle cart sessions", slog.Int("count", n))
			}
		}
	}
}

func (r *Registry) evictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	evicted := 0
	for id, sess := range r.sessions {
		if sess.inUse == 0 && now.Sub(sess.lastSeen) > r.idleTTL {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}
