package identity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Jis87-63/moz-digital-store/internal/domain"
	"github.com/Jis87-63/moz-digital-store/internal/repository"
	"github.com/Jis87-63/moz-digital-store/pkg/middleware"
)

// EventType names a session change.
type EventType string

const (
	EventRegistered EventType = "registered"
	EventSignedIn   EventType = "signed_in"
	EventSignedOut  EventType = "signed_out"
)

// Event is a session change seen by the gate.
type Event struct {
	Type EventType
	User *domain.User
	At   time.Time
}

// Listener receives session changes.
type Listener func(ctx context.Context, ev Event)

// Identity is the authenticated shopper plus their stored profile.
type Identity struct {
	UserID  string
	Email   string
	Profile *domain.User
}

// IsAdmin reports whether the profile carries the admin flag.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Profile != nil && i.Profile.IsAdmin
}

// Phone returns the profile phone, or "".
func (i *Identity) Phone() string {
	if i == nil || i.Profile == nil {
		return ""
	}
	return i.Profile.Phone
}

type cachedProfile struct {
	user    *domain.User
	expires time.Time
}

// Gate owns the current identity of every session. It is the only component
// that signs shoppers in or out, and it fetches each profile once per session
// change, serving it from cache afterwards.
type Gate struct {
	provider *Provider
	users    repository.UserRepository
	logger   *slog.Logger
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	profiles map[string]cachedProfile

	lmu       sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// NewGate creates a gate. Cached profiles live for profileTTL.
func NewGate(provider *Provider, users repository.UserRepository, profileTTL time.Duration, logger *slog.Logger) *Gate {
	return &Gate{
		provider:  provider,
		users:     users,
		logger:    logger,
		ttl:       profileTTL,
		now:       time.Now,
		profiles:  make(map[string]cachedProfile),
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers l for session changes and returns its cancel func.
func (g *Gate) Subscribe(l Listener) (cancel func()) {
	g.lmu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = l
	g.lmu.Unlock()

	return func() {
		g.lmu.Lock()
		delete(g.listeners, id)
		g.lmu.Unlock()
	}
}

func (g *Gate) emit(ctx context.Context, typ EventType, user *domain.User) {
	ev := Event{Type: typ, User: user, At: g.now().UTC()}

	g.lmu.RLock()
	ls := make([]Listener, 0, len(g.listeners))
	for _, l := range g.listeners {
		ls = append(ls, l)
	}
	g.lmu.RUnlock()

	for _, l := range ls {
		l(ctx, ev)
	}
}

// SignUp creates an account and signs it in.
func (g *Gate) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	sess, err := g.provider.CreateAccount(ctx, in)
	if err != nil {
		return nil, err
	}
	g.store(sess.User)
	g.emit(ctx, EventRegistered, sess.User)
	g.emit(ctx, EventSignedIn, sess.User)
	return sess, nil
}

// SignIn checks credentials and starts a session.
func (g *Gate) SignIn(ctx context.Context, email, password string) (*Session, error) {
	sess, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	g.store(sess.User)
	g.emit(ctx, EventSignedIn, sess.User)
	return sess, nil
}

// SignOut ends the session behind token and forgets its cached profile.
func (g *Gate) SignOut(ctx context.Context, token string) error {
	claims, err := g.provider.SignOut(ctx, token)
	if err != nil {
		return err
	}
	g.mu.Lock()
	cached := g.profiles[claims.Subject].user
	delete(g.profiles, claims.Subject)
	g.mu.Unlock()

	if cached == nil {
		cached = &domain.User{ID: claims.Subject, Email: claims.Email}
	}
	g.emit(ctx, EventSignedOut, cached)
	return nil
}

// Resolve returns the identity behind token, or nil for an empty token.
func (g *Gate) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := g.provider.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	return g.ResolveClaims(ctx, &middleware.Claims{UserID: claims.Subject, Email: claims.Email})
}

// ResolveClaims loads the profile for already validated claims. Nil claims
// resolve to a nil identity.
func (g *Gate) ResolveClaims(ctx context.Context, claims *middleware.Claims) (*Identity, error) {
	if claims == nil || claims.UserID == "" {
		return nil, nil
	}
	profile, err := g.profile(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: claims.UserID, Email: claims.Email, Profile: profile}, nil
}

// Refresh drops the cached profile of userID, so the next resolve reads it
// again. Called after the profile changes.
func (g *Gate) Refresh(userID string) {
	g.mu.Lock()
	delete(g.profiles, userID)
	g.mu.Unlock()
}

// TokenValidator adapts the gate to the HTTP auth middleware.
func (g *Gate) TokenValidator() middleware.TokenValidator {
	return func(ctx context.Context, token string) (*middleware.Claims, error) {
		claims, err := g.provider.Validate(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: claims.Subject, Email: claims.Email}, nil
	}
}

func (g *Gate) profile(ctx context.Context, userID string) (*domain.User, error) {
	g.mu.Lock()
	c, ok := g.profiles[userID]
	g.mu.Unlock()
	if ok && g.now().Before(c.expires) {
		return c.user, nil
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	g.store(user)
	g.logger.DebugContext(ctx, "profile loaded", slog.String("user_id", userID))
	return user, nil
}

func (g *Gate) store(user *domain.User) {
	g.mu.Lock()
	g.profiles[user.ID] = cachedProfile{user: user, expires: g.now().Add(g.ttl)}
	g.mu.Unlock()
}
