package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"techstore/internal/domain"
	"techstore/internal/notify"
	"techstore/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memStore backs every fake repository so the fake transaction manager can
// snapshot and restore all state at once.
type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]domain.User
	products map[uuid.UUID]domain.Product
	carts    map[uuid.UUID]domain.Cart
	orders   map[uuid.UUID]domain.Order
	reviews  map[uuid.UUID]domain.Review
	settings map[string][]byte
	resets   map[string]domain.ResetToken

	// decrementFails makes DecrementStock report a lost race for a product
	decrementFails map[uuid.UUID]bool
}

func newMemStore() *memStore {
	return &memStore{
		users:          map[uuid.UUID]domain.User{},
		products:       map[uuid.UUID]domain.Product{},
		carts:          map[uuid.UUID]domain.Cart{},
		orders:         map[uuid.UUID]domain.Order{},
		reviews:        map[uuid.UUID]domain.Review{},
		settings:       map[string][]byte{},
		resets:         map[string]domain.ResetToken{},
		decrementFails: map[uuid.UUID]bool{},
	}
}

func cloneProduct(p domain.Product) domain.Product {
	p.Images = append([]string{}, p.Images...)
	if p.OriginalPrice != nil {
		v := *p.OriginalPrice
		p.OriginalPrice = &v
	}
	return p
}

func cloneCart(c domain.Cart) domain.Cart {
	c.Items = append([]domain.CartLine{}, c.Items...)
	return c
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem{}, o.Items...)
	return o
}

func (m *memStore) snapshot() *memStore {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := newMemStore()
	for k, v := range m.users {
		cp.users[k] = v
	}
	for k, v := range m.products {
		cp.products[k] = cloneProduct(v)
	}
	for k, v := range m.carts {
		cp.carts[k] = cloneCart(v)
	}
	for k, v := range m.orders {
		cp.orders[k] = cloneOrder(v)
	}
	for k, v := range m.reviews {
		cp.reviews[k] = v
	}
	for k, v := range m.settings {
		cp.settings[k] = append([]byte{}, v...)
	}
	for k, v := range m.resets {
		cp.resets[k] = v
	}
	return cp
}

func (m *memStore) restore(from *memStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users, m.products, m.carts, m.orders = from.users, from.products, from.carts, from.orders
	m.reviews, m.settings, m.resets = from.reviews, from.settings, from.resets
}

// fakeTx rolls every fake repository back when fn fails. Transactions run
// one at a time, which stands in for the row locks they take.
type fakeTx struct {
	store *memStore
	mu    sync.Mutex
}

type fakeTxKey struct{}

func (t *fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.store.snapshot()
	if err := fn(context.WithValue(ctx, fakeTxKey{}, t)); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type fakeUserRepo struct{ s *memStore }

func (r fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (r fakeUserRepo) List(ctx context.Context) ([]*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := []*domain.User{}
	for _, u := range r.s.users {
		u := u
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (r fakeUserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Role = role
	r.s.users[id] = u
	return nil
}

func (r fakeUserRepo) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, u := range r.s.users {
		if u.Email == email {
			u.PasswordHash = hash
			r.s.users[id] = u
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (r fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(r.s.users, id)
	return nil
}

type fakeProductRepo struct{ s *memStore }

func (r fakeProductRepo) Create(ctx context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.products[p.ID] = cloneProduct(*p)
	return nil
}

// modify runs fn on the stored product under the store lock, like a single
// UPDATE ... RETURNING statement.
func (r fakeProductRepo) modify(id uuid.UUID, fn func(p *domain.Product) error) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	p = cloneProduct(p)
	if err := fn(&p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now().UTC()
	r.s.products[id] = p
	out := cloneProduct(p)
	return &out, nil
}

func (r fakeProductRepo) Update(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error) {
	return r.modify(id, func(p *domain.Product) error {
		patch.Apply(p)
		return nil
	})
}

func (r fakeProductRepo) AddImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error) {
	return r.modify(id, func(p *domain.Product) error {
		if !p.HasImage(url) {
			p.Images = append(p.Images, url)
		}
		return nil
	})
}

func (r fakeProductRepo) RemoveImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error) {
	return r.modify(id, func(p *domain.Product) error {
		if !p.HasImage(url) {
			return repository.ErrProductImageNotFound
		}
		kept := []string{}
		for _, img := range p.Images {
			if img != url {
				kept = append(kept, img)
			}
		}
		p.Images = kept
		return nil
	})
}

func (r fakeProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r fakeProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	p = cloneProduct(p)
	return &p, nil
}

func (r fakeProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Product{}
	for _, p := range r.s.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice || f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.Description), strings.ToLower(f.Search)) {
			continue
		}
		p := cloneProduct(p)
		out = append(out, &p)
	}
	return out, nil
}

func (r fakeProductRepo) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	if r.s.decrementFails[id] || p.Stock < quantity {
		return repository.ErrInsufficientStock
	}
	p.Stock -= quantity
	r.s.products[id] = p
	return nil
}

func (r fakeProductRepo) UpdateRating(ctx context.Context, id uuid.UUID, rating float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Rating = rating
	r.s.products[id] = p
	return nil
}

type fakeCartRepo struct{ s *memStore }

func (r fakeCartRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	c = cloneCart(c)
	return &c, nil
}

func (r fakeCartRepo) FindForUpdate(ctx context.Context, userID uuid.UUID, create bool) (*domain.Cart, error) {
	if create {
		r.s.mu.Lock()
		if _, ok := r.s.carts[userID]; !ok {
			r.s.carts[userID] = domain.Cart{UserID: userID, Items: []domain.CartLine{}}
		}
		r.s.mu.Unlock()
	}
	return r.FindByUserID(ctx, userID)
}

func (r fakeCartRepo) Save(ctx context.Context, cart *domain.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.carts[cart.UserID] = cloneCart(*cart)
	return nil
}

func (r fakeCartRepo) ClearItems(ctx context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.carts[userID]; ok {
		c.Items = []domain.CartLine{}
		r.s.carts[userID] = c
	}
	return nil
}

type fakeOrderRepo struct{ s *memStore }

func (r fakeOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r fakeOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r fakeOrderRepo) list(keep func(domain.Order) bool) []*domain.Order {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Order{}
	for _, o := range r.s.orders {
		if keep(o) {
			o := cloneOrder(o)
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r fakeOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return r.list(func(o domain.Order) bool { return o.UserID == userID }), nil
}

func (r fakeOrderRepo) ListAll(ctx context.Context) ([]*domain.Order, error) {
	return r.list(func(domain.Order) bool { return true }), nil
}

func (r fakeOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.Status = status
	r.s.orders[id] = o
	return nil
}

func (r fakeOrderRepo) MarkPaid(ctx context.Context, id uuid.UUID, intentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.Status = domain.OrderStatusConfirmed
	o.PaymentStatus = domain.PaymentStatusPaid
	o.PaymentIntentID = &intentID
	r.s.orders[id] = o
	return nil
}

type fakeReviewRepo struct{ s *memStore }

func (r fakeReviewRepo) Create(ctx context.Context, review *domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rv := range r.s.reviews {
		if rv.UserID == review.UserID && rv.ProductID == review.ProductID {
			return repository.ErrDuplicateReview
		}
	}
	r.s.reviews[review.ID] = *review
	return nil
}

func (r fakeReviewRepo) Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rv := range r.s.reviews {
		if rv.UserID == userID && rv.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeReviewRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Review{}
	for _, rv := range r.s.reviews {
		if rv.ProductID == productID {
			rv := rv
			out = append(out, &rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r fakeReviewRepo) Ratings(ctx context.Context, productID uuid.UUID) ([]float64, error) {
	reviews, _ := r.ListByProduct(ctx, productID)
	ratings := make([]float64, 0, len(reviews))
	for _, rv := range reviews {
		ratings = append(ratings, rv.Rating)
	}
	return ratings, nil
}

func (r fakeReviewRepo) DeleteOwned(ctx context.Context, id, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok || rv.UserID != userID {
		return repository.ErrReviewNotFound
	}
	delete(r.s.reviews, id)
	return nil
}

type fakeSettingsRepo struct{ s *memStore }

func (r fakeSettingsRepo) Get(ctx context.Context, key string, dest interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	raw, ok := r.s.settings[key]
	if !ok {
		return repository.ErrSettingNotFound
	}
	return domain.DecodeDocument(raw, dest)
}

func (r fakeSettingsRepo) Put(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.settings[key] = raw
	return nil
}

type fakeResetRepo struct{ s *memStore }

func (r fakeResetRepo) Upsert(ctx context.Context, t *domain.ResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.resets[t.Email] = *t
	return nil
}

func (r fakeResetRepo) FindByToken(ctx context.Context, token string) (*domain.ResetToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.resets {
		if t.Token == token {
			t := t
			return &t, nil
		}
	}
	return nil, repository.ErrResetTokenNotFound
}

func (r fakeResetRepo) MarkUsed(ctx context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for email, t := range r.s.resets {
		if t.Token == token {
			t.Used = true
			r.s.resets[email] = t
			return nil
		}
	}
	return repository.ErrResetTokenNotFound
}

// eventRecorder captures dispatched events.
type eventRecorder struct {
	mu     sync.Mutex
	events []notify.Event
	d      *notify.Dispatcher
}

func (r *eventRecorder) dispatcher(extra ...notify.Hook) *notify.Dispatcher {
	hooks := append([]notify.Hook{notify.HookFunc{HookName: "recorder", Fn: func(ctx context.Context, e notify.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
		return nil
	}}}, extra...)
	r.d = notify.NewDispatcher(zap.NewNop(), hooks...)
	return r.d
}

// names waits for pending dispatches and returns the recorded event names.
func (r *eventRecorder) names() []string {
	r.d.Wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, e := range r.events {
		names = append(names, e.EventName())
	}
	return names
}

// seedProduct stores a product with the given price and stock.
func seedProduct(s *memStore, name string, price float64, stock int) *domain.Product {
	p := domain.Product{
		ID:       uuid.New(),
		Name:     name,
		Price:    price,
		Category: "gaming",
		Stock:    stock,
		Images:   []string{"https://cdn.test/" + strings.ToLower(name) + ".png"},
	}
	s.products[p.ID] = p
	return &p
}

func seedUser(s *memStore, name, email string, role domain.Role) *domain.User {
	u := domain.User{ID: uuid.New(), Name: name, Email: email, Role: role}
	s.users[u.ID] = u
	return &u
}
