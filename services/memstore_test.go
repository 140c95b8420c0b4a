package services_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Badr070118/lupeti-project-sub000/models"
	"github.com/Badr070118/lupeti-project-sub000/repository"
	"github.com/google/uuid"
)

// --- In-memory transactional store ---
//
// A single mutex serialises transactions. Each transaction works on a copy of
// the state which replaces the committed state only when fn succeeds.

type memState struct {
	products  map[uuid.UUID]models.Product
	carts     map[uuid.UUID]models.Cart // keyed by user id
	cartItems map[uuid.UUID]models.CartItem
	orders    map[uuid.UUID]models.Order
	payments  map[uuid.UUID]models.Payment
	events    []models.PaymentEvent
	seq       int
}

func newMemState() *memState {
	return &memState{
		products:  map[uuid.UUID]models.Product{},
		carts:     map[uuid.UUID]models.Cart{},
		cartItems: map[uuid.UUID]models.CartItem{},
		orders:    map[uuid.UUID]models.Order{},
		payments:  map[uuid.UUID]models.Payment{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.cartItems {
		c.cartItems[k] = v
	}
	for k, v := range s.orders {
		v.Items = append([]models.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	c.events = append([]models.PaymentEvent(nil), s.events...)
	c.seq = s.seq
	return c
}

func (s *memState) tick() time.Time {
	s.seq++
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Millisecond)
}

type memStore struct {
	mu    sync.Mutex
	state *memState

	// failClear makes Carts.Clear fail, to exercise rollback late in checkout.
	failClear error
}

func newMemStore() *memStore {
	return &memStore{state: newMemState()}
}

func (m *memStore) Repos() repository.Repositories {
	return m.repos(nil)
}

func (m *memStore) WithinTransaction(_ context.Context, fn func(repository.Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(m.repos(work)); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) repos(tx *memState) repository.Repositories {
	base := memRepo{store: m, tx: tx}
	return repository.Repositories{
		Products: &memProducts{base},
		Carts:    &memCarts{base},
		Orders:   &memOrders{base},
		Payments: &memPayments{base},
	}
}

// snapshot returns a copy of the committed state for assertions.
func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *memStore) seedProduct(p models.Product) models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Currency == "" {
		p.Currency = "TRY"
	}
	m.state.products[p.ID] = p
	return p
}

type memRepo struct {
	store *memStore
	tx    *memState
}

// with runs fn against the transaction state, or against the committed state
// under the store lock when used outside a transaction.
func (r memRepo) with(fn func(st *memState) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.state)
}

// --- Products ---

type memProducts struct{ memRepo }

func (r *memProducts) Create(_ context.Context, p *models.Product) error {
	return r.with(func(st *memState) error {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r *memProducts) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	var out *models.Product
	err := r.with(func(st *memState) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *memProducts) FindByIDsForUpdate(_ context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	err := r.with(func(st *memState) error {
		for _, id := range ids {
			if p, ok := st.products[id]; ok {
				out = append(out, p)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
		return nil
	})
	return out, err
}

func (r *memProducts) DecrementStock(_ context.Context, id uuid.UUID, qty int) error {
	return r.with(func(st *memState) error {
		p, ok := st.products[id]
		if !ok || p.Stock < qty {
			return repository.ErrInsufficientStock
		}
		p.Stock -= qty
		st.products[id] = p
		return nil
	})
}

func (r *memProducts) IncrementStock(_ context.Context, id uuid.UUID, qty int) error {
	return r.with(func(st *memState) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		p.Stock += qty
		st.products[id] = p
		return nil
	})
}

// --- Carts ---

type memCarts struct{ memRepo }

func (r *memCarts) FindByUserID(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	var out *models.Cart
	err := r.with(func(st *memState) error {
		cart, ok := st.carts[userID]
		if !ok {
			return repository.ErrNotFound
		}
		cart.Items = nil
		for _, item := range st.cartItems {
			if item.CartID != cart.ID {
				continue
			}
			if p, ok := st.products[item.ProductID]; ok {
				item.Product = &p
			}
			cart.Items = append(cart.Items, item)
		}
		sort.Slice(cart.Items, func(i, j int) bool { return cart.Items[i].CreatedAt.Before(cart.Items[j].CreatedAt) })
		out = &cart
		return nil
	})
	return out, err
}

func (r *memCarts) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	err := r.with(func(st *memState) error {
		if _, ok := st.carts[userID]; !ok {
			st.carts[userID] = models.Cart{ID: uuid.New(), UserID: userID, CreatedAt: st.tick()}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.FindByUserID(ctx, userID)
}

func (r *memCarts) FindItem(_ context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var out *models.CartItem
	err := r.with(func(st *memState) error {
		for _, item := range st.cartItems {
			if item.CartID == cartID && item.ProductID == productID {
				out = &item
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *memCarts) SaveItem(_ context.Context, item *models.CartItem) error {
	return r.with(func(st *memState) error {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
			item.CreatedAt = st.tick()
		}
		stored := *item
		stored.Product = nil
		st.cartItems[item.ID] = stored
		return nil
	})
}

func (r *memCarts) DeleteItem(_ context.Context, cartID, productID uuid.UUID) error {
	return r.with(func(st *memState) error {
		for id, item := range st.cartItems {
			if item.CartID == cartID && item.ProductID == productID {
				delete(st.cartItems, id)
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (r *memCarts) Clear(_ context.Context, cartID uuid.UUID) error {
	if r.store.failClear != nil {
		return r.store.failClear
	}
	return r.with(func(st *memState) error {
		for id, item := range st.cartItems {
			if item.CartID == cartID {
				delete(st.cartItems, id)
			}
		}
		return nil
	})
}

// --- Orders ---

type memOrders struct{ memRepo }

func (r *memOrders) Create(_ context.Context, o *models.Order) error {
	return r.with(func(st *memState) error {
		o.CreatedAt = st.tick()
		o.UpdatedAt = o.CreatedAt
		stored := *o
		stored.Items = append([]models.OrderItem(nil), o.Items...)
		st.orders[o.ID] = stored
		return nil
	})
}

func (r *memOrders) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	var out *models.Order
	err := r.with(func(st *memState) error {
		o, ok := st.orders[id]
		if !ok {
			return repository.ErrNotFound
		}
		o.Items = append([]models.OrderItem(nil), o.Items...)
		out = &o
		return nil
	})
	return out, err
}

func (r *memOrders) FindByIDAndUserID(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	o, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return o, nil
}

func (r *memOrders) FindByUserID(_ context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	return r.page(func(o models.Order) bool { return o.UserID == userID }, page, limit)
}

func (r *memOrders) FindAll(_ context.Context, filter models.OrderFilter, page, limit int) ([]models.Order, int64, error) {
	return r.page(func(o models.Order) bool {
		return filter.Status == nil || o.Status == *filter.Status
	}, page, limit)
}

func (r *memOrders) page(match func(models.Order) bool, page, limit int) ([]models.Order, int64, error) {
	var all []models.Order
	_ = r.with(func(st *memState) error {
		for _, o := range st.orders {
			if match(o) {
				all = append(all, o)
			}
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.Order{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *memOrders) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.OrderStatus) error {
	return r.with(func(st *memState) error {
		o, ok := st.orders[id]
		if !ok || o.Status != from {
			return repository.ErrStatusConflict
		}
		o.Status = to
		o.UpdatedAt = st.tick()
		st.orders[id] = o
		return nil
	})
}

// --- Payments ---

type memPayments struct{ memRepo }

func (r *memPayments) Create(_ context.Context, p *models.Payment) error {
	return r.with(func(st *memState) error {
		for _, existing := range st.payments {
			if existing.OrderID == p.OrderID {
				return repository.ErrDuplicate
			}
			if p.MerchantOID != nil && existing.MerchantReference() == *p.MerchantOID {
				return repository.ErrDuplicate
			}
		}
		p.CreatedAt = st.tick()
		st.payments[p.ID] = *p
		return nil
	})
}

func (r *memPayments) find(match func(models.Payment) bool) (*models.Payment, error) {
	var out *models.Payment
	err := r.with(func(st *memState) error {
		for _, p := range st.payments {
			if match(p) {
				out = &p
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *memPayments) FindByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.find(func(p models.Payment) bool { return p.ID == id })
}

func (r *memPayments) FindByOrderID(_ context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return r.find(func(p models.Payment) bool { return p.OrderID == orderID })
}

func (r *memPayments) FindByOrderIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return r.FindByOrderID(ctx, orderID)
}

func (r *memPayments) FindByMerchantOID(_ context.Context, oid string) (*models.Payment, error) {
	return r.find(func(p models.Payment) bool { return p.MerchantReference() == oid })
}

func (r *memPayments) FindByMerchantOIDForUpdate(ctx context.Context, oid string) (*models.Payment, error) {
	return r.FindByMerchantOID(ctx, oid)
}

func (r *memPayments) Update(_ context.Context, p *models.Payment) error {
	return r.with(func(st *memState) error {
		if _, ok := st.payments[p.ID]; !ok {
			return repository.ErrNotFound
		}
		st.payments[p.ID] = *p
		return nil
	})
}

func (r *memPayments) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.PaymentStatus, at time.Time) error {
	return r.with(func(st *memState) error {
		p, ok := st.payments[id]
		if !ok || p.Status != from {
			return repository.ErrStatusConflict
		}
		p.Status = to
		switch to {
		case models.PaymentStatusPaid:
			p.PaidAt = &at
		case models.PaymentStatusFailed:
			p.FailedAt = &at
		}
		st.payments[id] = p
		return nil
	})
}

func (r *memPayments) SetLastError(_ context.Context, id uuid.UUID, message string) error {
	return r.with(func(st *memState) error {
		p, ok := st.payments[id]
		if !ok || p.Status.IsTerminal() {
			return nil
		}
		p.LastError = &message
		st.payments[id] = p
		return nil
	})
}

func (r *memPayments) AppendEvent(_ context.Context, e *models.PaymentEvent) error {
	return r.with(func(st *memState) error {
		e.CreatedAt = st.tick()
		st.events = append(st.events, *e)
		return nil
	})
}

func (r *memPayments) ListEvents(_ context.Context, paymentID uuid.UUID) ([]models.PaymentEvent, error) {
	var out []models.PaymentEvent
	err := r.with(func(st *memState) error {
		for _, e := range st.events {
			if e.PaymentID == paymentID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func (s *memState) eventsOf(paymentID uuid.UUID, eventType models.PaymentEventType) []models.PaymentEvent {
	var out []models.PaymentEvent
	for _, e := range s.events {
		if e.PaymentID == paymentID && e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
