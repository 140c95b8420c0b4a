package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	apperrors "github.com/Badr070118/lupeti-project-sub000/common/errors"
	"github.com/Badr070118/lupeti-project-sub000/models"
	"github.com/Badr070118/lupeti-project-sub000/providers"
	"github.com/Badr070118/lupeti-project-sub000/repository"
	"github.com/Badr070118/lupeti-project-sub000/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// --- Mock publisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e models.DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// --- Mock idempotency store ---

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockIdempotencyStore) Complete(ctx context.Context, key, orderID string, ttl time.Duration) error {
	args := m.Called(ctx, key, orderID, ttl)
	return args.Error(0)
}

func (m *mockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// memIdempotencyStore behaves like the Redis store: Claim is a set-if-absent.
type memIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{keys: map[string]string{}}
}

func (m *memIdempotencyStore) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = repository.IdempotencyPending
	return true, nil
}

func (m *memIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memIdempotencyStore) Complete(_ context.Context, key, orderID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = orderID
	return nil
}

func (m *memIdempotencyStore) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

// --- Fake gateway ---

type fakeGateway struct {
	mu    sync.Mutex
	reply string
	code  int
	calls int
	srv   *httptest.Server

	// onCall runs before the reply is written, while the token request is
	// still in flight.
	onCall func()
}

func newFakeGateway(t *testing.T) *fakeGateway {
	g := &fakeGateway{reply: `{"status":"success","token":"tok-abc"}`, code: http.StatusOK}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.calls++
		code, reply, hook := g.code, g.reply, g.onCall
		g.onCall = nil
		g.mu.Unlock()

		if hook != nil {
			hook()
		}
		w.WriteHeader(code)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *fakeGateway) respond(code int, body string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.code, g.reply = code, body
}

// during arranges for fn to run inside the next token request.
func (g *fakeGateway) during(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onCall = fn
}

// --- Fixture ---

type fixture struct {
	store     *memStore
	publisher *recordingPublisher
	gateway   *fakeGateway
	provider  *providers.PayTRProvider

	catalog  services.CatalogService
	cart     services.CartService
	checkout services.CheckoutService
	payments services.PaymentService
	callback services.CallbackService
	orders   services.OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	store := newMemStore()
	publisher := &recordingPublisher{}
	gateway := newFakeGateway(t)
	provider := providers.NewPayTRProvider(providers.PayTRConfig{
		MerchantID:    "100200",
		MerchantKey:   "test-key",
		MerchantSalt:  "test-salt",
		TokenURL:      gateway.srv.URL,
		IframeBaseURL: "https://pay.example.com/iframe",
		TestMode:      true,
	})

	return &fixture{
		store:     store,
		publisher: publisher,
		gateway:   gateway,
		provider:  provider,
		catalog:   services.NewCatalogService(store, logger, clock),
		cart:      services.NewCartService(store, "TRY", logger, clock),
		checkout:  services.NewCheckoutService(store, nil, publisher, "TRY", logger, clock),
		payments:  services.NewPaymentService(store, provider, logger, clock),
		callback:  services.NewCallbackService(store, provider, publisher, logger, clock),
		orders:    services.NewOrderService(store, publisher, logger, clock),
	}
}

func (f *fixture) product(t *testing.T, title string, price int64, stock int) models.Product {
	t.Helper()
	return f.store.seedProduct(models.Product{Title: title, Price: price, Stock: stock, IsActive: true})
}

func (f *fixture) addToCart(t *testing.T, userID, productID uuid.UUID, qty int) {
	t.Helper()
	_, err := f.cart.AddItem(context.Background(), userID, models.AddCartItemRequest{ProductID: productID, Quantity: qty})
	require.NoError(t, err)
}

func (f *fixture) placeOrder(t *testing.T, userID uuid.UUID, shipping string) *models.Order {
	t.Helper()
	order, _, err := f.checkout.Checkout(context.Background(), userID, checkoutRequest(shipping), "")
	require.NoError(t, err)
	return order
}

// notification builds a correctly signed callback for the payment.
func (f *fixture) notification(oid, status, amount string) *models.CallbackNotification {
	return &models.CallbackNotification{
		MerchantOID: oid,
		Status:      status,
		TotalAmount: amount,
		Hash:        f.provider.CallbackSignature(oid, status, amount),
		Raw: map[string]any{
			"merchant_oid": oid,
			"status":       status,
			"total_amount": amount,
		},
	}
}

func checkoutRequest(shipping string) models.CheckoutRequest {
	return models.CheckoutRequest{
		ShippingMethod: shipping,
		ShippingAddress: models.Address{
			FullName: "Ayse Yilmaz",
			Line1:    "Bagdat Cd. 10",
			City:     "Istanbul",
			Country:  "TR",
			Phone:    "5551234567",
			Email:    "ayse@example.com",
		},
	}
}

func requireAppErr(t *testing.T, err error, kind apperrors.Kind, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected *apperrors.Error, got %T: %v", err, err)
	require.Equal(t, kind, appErr.Kind)
	require.Equal(t, code, appErr.Code)
}
