package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Jis87-63/moz-digital-store/internal/cart"
	"github.com/Jis87-63/moz-digital-store/internal/catalog"
	"github.com/Jis87-63/moz-digital-store/internal/domain"
	"github.com/Jis87-63/moz-digital-store/internal/event"
	"github.com/Jis87-63/moz-digital-store/internal/identity"
	"github.com/Jis87-63/moz-digital-store/internal/provider/mock"
	"github.com/Jis87-63/moz-digital-store/internal/service"
	apperrors "github.com/Jis87-63/moz-digital-store/pkg/errors"
	"github.com/Jis87-63/moz-digital-store/pkg/health"
	"github.com/Jis87-63/moz-digital-store/pkg/logger"
	"github.com/Jis87-63/moz-digital-store/pkg/middleware"
)

// ============================================================================
// In-memory collaborators
// ============================================================================

type memCollection[T any] struct {
	mu    sync.Mutex
	items []T
	idOf  func(T) string
}

func (c *memCollection[T]) Find(_ context.Context, _ catalog.Query) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...), nil
}

func (c *memCollection[T]) FindByID(_ context.Context, id string) (*T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if c.idOf(it) == id {
			cp := it
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("document", id)
}

func (c *memCollection[T]) Changes(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

type memUsers struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	hashes map[string][]byte
}

func (m *memUsers) Create(_ context.Context, u *domain.User, hash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	m.hashes[u.ID] = hash
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetCredentialsByEmail(_ context.Context, email string) (*domain.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Email == email {
			return &domain.Credentials{UserID: id, Email: email, PasswordHash: m.hashes[id]}, nil
		}
	}
	return nil, apperrors.NotFound("user", email)
}

func (m *memUsers) SetAdmin(_ context.Context, id string, isAdmin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperrors.NotFound("user", id)
	}
	u.IsAdmin = isAdmin
	return nil
}

type memRevocations struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (m *memRevocations) Revoke(_ context.Context, id string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[id] = true
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[id], nil
}

type memSupport struct {
	mu       sync.Mutex
	messages []domain.SupportMessage
}

func (m *memSupport) Create(_ context.Context, msg *domain.SupportMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = "msg-" + string(rune('a'+len(m.messages)))
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memSupport) List(_ context.Context, offset, limit int) ([]domain.SupportMessage, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset >= len(m.messages) {
		return nil, len(m.messages), nil
	}
	end := min(offset+limit, len(m.messages))
	return append([]domain.SupportMessage(nil), m.messages[offset:end]...), len(m.messages), nil
}

func (m *memSupport) MarkRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].ID == id {
			m.messages[i].IsRead = true
			return nil
		}
	}
	return apperrors.NotFound("support message", id)
}

// ============================================================================
// Test helpers
// ============================================================================

type testServer struct {
	handler http.Handler
	gate    *identity.Gate
	users   *memUsers
	support *memSupport
}

func discount(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	l := logger.Discard()

	products := &memCollection[domain.Product]{
		items: []domain.Product{
			{ID: "a", Name: "Curso A", Price: decimal.NewFromInt(100), DiscountPercentage: discount(20), CategoryID: "cursos"},
			{ID: "b", Name: "Ebook B", Price: decimal.NewFromInt(50), CategoryID: "ebooks"},
		},
		idOf: func(p domain.Product) string { return p.ID },
	}
	categories := &memCollection[domain.Category]{
		items: []domain.Category{{ID: "cursos", Name: "Cursos", Slug: "cursos", Order: 1}},
		idOf:  func(c domain.Category) string { return c.ID },
	}
	banners := &memCollection[domain.Banner]{idOf: func(b domain.Banner) string { return b.ID }}

	users := &memUsers{users: map[string]*domain.User{}, hashes: map[string][]byte{}}
	support := &memSupport{}
	provider := identity.NewProvider(identity.Config{
		Secret:     []byte("test-secret"),
		Issuer:     "test",
		TTL:        time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, users, &memRevocations{revoked: map[string]bool{}}, l)
	gate := identity.NewGate(provider, users, time.Minute, l)

	reg := prometheus.NewRegistry()
	producer := event.NewProducer(nil, l)

	deps := Deps{
		Catalog: catalog.New(products, categories, banners, l),
		Carts:   cart.NewRegistry(cart.NewMemoryStorage(), l, time.Hour),
		Gate:    gate,
		Checkout: service.NewCheckoutService(mock.New(), producer, l, service.CheckoutConfig{
			PublicBaseURL: "https://store.example.com",
			LoginPath:     "/login",
		}, reg),
		Admin: service.NewAdminService(service.AdminDeps{
			Support:  support,
			Users:    users,
			Profiles: gate,
		}, "https://store.example.com", l),
		Support: service.NewSupportService(support, producer, l),
		Health:  health.NewHandler(),
		Metrics: middleware.NewHTTPMetrics(reg, serviceName),
		Limiter: middleware.NewRateLimiter(1000, 1000, time.Minute),
	}

	return &testServer{
		handler: NewRouter(deps, RouterConfig{
			CORSOrigins:    []string{"*"},
			RequestTimeout: 5 * time.Second,
			CatalogMaxAge:  30,
		}, l),
		gate:    gate,
		users:   users,
		support: support,
	}
}

type call struct {
	method  string
	path    string
	body    any
	token   string
	session string
}

type envelopeBody struct {
	Data          json.RawMessage `json:"data"`
	Error         *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	Notifications []struct {
		Title   string `json:"title"`
		Variant string `json:"variant"`
	} `json:"notifications"`
	RedirectURL string `json:"redirect_url"`
}

func (s *testServer) do(t *testing.T, c call) (*httptest.ResponseRecorder, envelopeBody) {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.session != "" {
		req.Header.Set(middleware.SessionHeader, c.session)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelopeBody
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (s *testServer) signUp(t *testing.T, email, phone string) (token, userID string) {
	t.Helper()
	rec, env := s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/signup", body: map[string]string{
		"username": "shopper",
		"email":    email,
		"phone":    phone,
		"password": "secret123",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sess struct {
		Token string       `json:"token"`
		User  *domain.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sess))
	return sess.Token, sess.User.ID
}

func decodeCart(t *testing.T, env envelopeBody) CartResponse {
	t.Helper()
	var c CartResponse
	require.NoError(t, json.Unmarshal(env.Data, &c))
	return c
}

// ============================================================================
// Cart
// ============================================================================

func TestCart_SessionIsIssuedAndReused(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, call{method: http.MethodPost, path: "/api/v1/cart/items", body: map[string]any{"product_id": "a"}})
	require.Equal(t, http.StatusOK, rec.Code)
	session := rec.Header().Get(middleware.SessionHeader)
	require.NotEmpty(t, session)
	require.NotEmpty(t, env.Notifications)

	_, env = s.do(t, call{method: http.MethodPost, path: "/api/v1/cart/items", session: session, body: map[string]any{"product_id": "a", "quantity": 1}})
	_, env = s.do(t, call{method: http.MethodPost, path: "/api/v1/cart/items", session: session, body: map[string]any{"product_id": "b"}})

	c := decodeCart(t, env)
	assert.Equal(t, session, c.SessionID)
	require.Len(t, c.Items, 2)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 3, c.TotalItems)
	assert.True(t, c.TotalPrice.Equal(decimal.NewFromInt(210)), c.TotalPrice.String())
}

func TestCart_UpdateQuantityToZeroRemovesLine(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, call{method: http.MethodPost, path: "/api/v1/cart/items", body: map[string]any{"product_id": "b"}})
	session := rec.Header().Get(middleware.SessionHeader)

	_, env := s.do(t, call{method: http.MethodPut, path: "/api/v1/cart/items/b", session: session, body: map[string]any{"quantity": 0}})
	c := decodeCart(t, env)
	assert.Empty(t, c.Items)
	assert.NotNil(t, c.Items)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestCart_AddRejectsQuantityAboveLimit(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, call{method: http.MethodPost, path: "/api/v1/cart/items", body: map[string]any{
		"product_id": "a", "quantity": MaxAddQuantity + 1,
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "quantity")

	_, env = s.do(t, call{method: http.MethodGet, path: "/api/v1/cart", session: rec.Header().Get(middleware.SessionHeader)})
	assert.Equal(t, 0, decodeCart(t, env).TotalItems)
}

func TestCart_UnknownProduct(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, call{method: http.MethodPost, path: "/api/v1/cart/items", body: map[string]any{"product_id": "zzz"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestCart_MalformedSessionStartsNewOne(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, call{method: http.MethodGet, path: "/api/v1/cart", session: "../../etc"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "../../etc", rec.Header().Get(middleware.SessionHeader))
}

// ============================================================================
// Checkout
// ============================================================================

func TestCheckout_AnonymousIsRedirectedToLogin(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, call{method: http.MethodPost, path: "/api/v1/cart/items", body: map[string]any{"product_id": "a"}})
	session := rec.Header().Get(middleware.SessionHeader)

	rec, env := s.do(t, call{method: http.MethodPost, path: "/api/v1/checkout/cart", session: session})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "AUTH_REQUIRED", env.Error.Code)
	assert.Equal(t, "/login", env.RedirectURL)

	_, env = s.do(t, call{method: http.MethodGet, path: "/api/v1/cart", session: session})
	assert.Equal(t, 1, decodeCart(t, env).TotalItems)
}

func TestCheckout_CartSuccessClearsCartAndRedirects(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signUp(t, "ana@example.com", "+258841234567")

	rec, _ := s.do(t, call{method: http.MethodPost, path: "/api/v1/cart/items", body: map[string]any{"product_id": "a", "quantity": 2}})
	session := rec.Header().Get(middleware.SessionHeader)

	rec, env := s.do(t, call{method: http.MethodPost, path: "/api/v1/checkout/cart", session: session, token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "https://store.example.com/pagamento/sucesso?cart=true", env.RedirectURL)

	var outcome service.Outcome
	require.NoError(t, json.Unmarshal(env.Data, &outcome))
	assert.Equal(t, service.StatusInitiated, outcome.Status)
	assert.NotEmpty(t, outcome.TransactionID)

	_, env = s.do(t, call{method: http.MethodGet, path: "/api/v1/cart", session: session})
	assert.Equal(t, 0, decodeCart(t, env).TotalItems)

	rec, _ = s.do(t, call{method: http.MethodGet, path: "/api/v1/payments/" + outcome.TransactionID + "/status", token: token})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckout_BuyNowLeavesCartAlone(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signUp(t, "bia@example.com", "841234567")

	rec, _ := s.do(t, call{method: http.MethodPost, path: "/api/v1/cart/items", body: map[string]any{"product_id": "b"}})
	session := rec.Header().Get(middleware.SessionHeader)

	rec, env := s.do(t, call{method: http.MethodPost, path: "/api/v1/checkout/buy-now", session: session, token: token,
		body: map[string]any{"product_id": "a", "quantity": 3}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "https://store.example.com/pagamento/sucesso?product=a", env.RedirectURL)

	_, env = s.do(t, call{method: http.MethodGet, path: "/api/v1/cart", session: session})
	assert.Equal(t, 1, decodeCart(t, env).TotalItems)
}

func TestPaymentStatus_Unknown(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, call{method: http.MethodGet, path: "/api/v1/payments/nope/status"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// Auth
// ============================================================================

func TestAuth_LocalizedErrors(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "ana@example.com", "841234567")

	rec, env := s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/signup", body: map[string]string{
		"username": "outra", "email": "ana@example.com", "phone": "841234567", "password": "secret123",
	}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Este email já está em uso", env.Error.Message)

	rec, env = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/signin", body: map[string]string{
		"email": "ana@example.com", "password": "wrong-password",
	}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Email ou senha incorretos", env.Error.Message)
}

func TestAuth_MeAndSignOut(t *testing.T) {
	s := newTestServer(t)
	token, userID := s.signUp(t, "ana@example.com", "841234567")

	rec, env := s.do(t, call{method: http.MethodGet, path: "/api/v1/auth/me", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var me domain.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, userID, me.ID)

	rec, _ = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth/signout", token: token})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = s.do(t, call{method: http.MethodGet, path: "/api/v1/auth/me", token: token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_InvalidTokenIsRejected(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, call{method: http.MethodGet, path: "/api/v1/products", token: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============================================================================
// Catalog
// ============================================================================

func TestCatalog_ListAndGet(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, call{method: http.MethodGet, path: "/api/v1/products"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=30", rec.Header().Get("Cache-Control"))
	var products []domain.Product
	require.NoError(t, json.Unmarshal(env.Data, &products))
	assert.Len(t, products, 2)

	rec, _ = s.do(t, call{method: http.MethodGet, path: "/api/v1/products/missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = s.do(t, call{method: http.MethodGet, path: "/api/v1/banners"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestCatalog_StreamSendsInitialSnapshot(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/categories/stream", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	require.True(t, sc.Scan())
	assert.Equal(t, "event: snapshot", sc.Text())
	require.True(t, sc.Scan())
	assert.Contains(t, sc.Text(), `"slug":"cursos"`)
}

// ============================================================================
// Support and admin
// ============================================================================

func TestSupport_SubmitLinksSignedInUser(t *testing.T) {
	s := newTestServer(t)
	token, userID := s.signUp(t, "ana@example.com", "841234567")

	rec, env := s.do(t, call{method: http.MethodPost, path: "/api/v1/support", token: token, body: map[string]string{
		"name": "Ana", "email": "ana@example.com", "message": "Não recebi o link de download.",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, env.Notifications, 1)
	assert.Equal(t, "Mensagem enviada com sucesso!", env.Notifications[0].Title)

	require.Len(t, s.support.messages, 1)
	require.NotNil(t, s.support.messages[0].UserID)
	assert.Equal(t, userID, *s.support.messages[0].UserID)
}

func TestSupport_ValidationErrors(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, call{method: http.MethodPost, path: "/api/v1/support", body: map[string]string{
		"name": "A", "email": "x", "message": "curta",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "message")
}

func TestAdmin_Gate(t *testing.T) {
	s := newTestServer(t)
	token, userID := s.signUp(t, "ana@example.com", "841234567")

	rec, _ := s.do(t, call{method: http.MethodGet, path: "/api/v1/admin/support"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, call{method: http.MethodGet, path: "/api/v1/admin/support", token: token})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	require.NoError(t, s.users.SetAdmin(context.Background(), userID, true))
	s.gate.Refresh(userID)

	rec, env := s.do(t, call{method: http.MethodGet, path: "/api/v1/admin/support", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		TotalCount int `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 0, page.TotalCount)
}

// ============================================================================
// Health
// ============================================================================

func TestHealthLive(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, call{method: http.MethodGet, path: "/health/live"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
