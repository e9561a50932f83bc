package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"techstore/internal/domain"
	"techstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errNotStubbed = errors.New("not stubbed")

type stubAuth struct {
	registerCalls int
	register      func(name, email, password string) (*domain.User, error)
	login         func(email, password string) (*service.TokenPair, error)
	me            func(id uuid.UUID) (*domain.User, error)
	changeRole    func(id uuid.UUID, role domain.Role) (*domain.User, error)
	forgot        func(email string) error
}

func (s *stubAuth) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	s.registerCalls++
	if s.register == nil {
		return &domain.User{ID: uuid.New(), Name: name, Email: email, Role: domain.RoleCustomer}, nil
	}
	return s.register(name, email, password)
}

func (s *stubAuth) Login(ctx context.Context, email, password string) (*service.TokenPair, error) {
	if s.login == nil {
		return nil, errNotStubbed
	}
	return s.login(email, password)
}

func (s *stubAuth) Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error) {
	return nil, service.ErrInvalidToken
}

func (s *stubAuth) Me(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if s.me == nil {
		return nil, service.ErrUserNotFound
	}
	return s.me(id)
}

func (s *stubAuth) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return nil, nil
}

func (s *stubAuth) ChangeRole(ctx context.Context, id uuid.UUID, role domain.Role) (*domain.User, error) {
	if s.changeRole == nil {
		return nil, errNotStubbed
	}
	return s.changeRole(id, role)
}

func (s *stubAuth) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (s *stubAuth) ForgotPassword(ctx context.Context, email string) error {
	if s.forgot == nil {
		return nil
	}
	return s.forgot(email)
}

func (s *stubAuth) ResetPassword(ctx context.Context, token, newPassword string) error {
	return service.ErrInvalidResetToken
}

type stubProducts struct {
	service.ProductService
	created []service.CreateProductInput
	filter  domain.ProductFilter
}

func (s *stubProducts) Create(ctx context.Context, input service.CreateProductInput) (*domain.Product, error) {
	s.created = append(s.created, input)
	return &domain.Product{ID: uuid.New(), Name: input.Name, Price: input.Price,
		DiscountPercentage: domain.DiscountPercentage(input.Price, input.OriginalPrice)}, nil
}

func (s *stubProducts) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	s.filter = filter
	return nil, nil
}

func (s *stubProducts) Patch(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error) {
	if patch.Empty() {
		return nil, service.ErrEmptyPatch
	}
	product := &domain.Product{ID: id, Name: "Phone", Price: 10}
	patch.Apply(product)
	return product, nil
}

type stubCart struct {
	service.CartService
	addQuantity int
	add         func(productID uuid.UUID, quantity int) (domain.CartView, error)
}

func (s *stubCart) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (domain.CartView, error) {
	s.addQuantity = quantity
	if s.add != nil {
		return s.add(productID, quantity)
	}
	return domain.EmptyCartView(userID), nil
}

func (s *stubCart) View(ctx context.Context, userID uuid.UUID) (domain.CartView, error) {
	return domain.EmptyCartView(userID), nil
}

type stubOrders struct {
	service.OrderService
	statusCalls int
}

func (s *stubOrders) CreateFromCart(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	return nil, service.ErrEmptyCart
}

func (s *stubOrders) Create(ctx context.Context, userID uuid.UUID, lines []domain.OrderLine) (*domain.Order, error) {
	return &domain.Order{ID: uuid.New(), UserID: userID, Status: domain.OrderStatusPending}, nil
}

func (s *stubOrders) ListAll(ctx context.Context) ([]*domain.Order, error) {
	return nil, nil
}

func (s *stubOrders) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	s.statusCalls++
	if !status.Valid() {
		return nil, service.ErrInvalidStatus
	}
	return &domain.Order{ID: id, Status: status}, nil
}

type stubPayments struct {
	service.PaymentService
	owner uuid.UUID
}

func (s *stubPayments) Status(ctx context.Context, userID, orderID uuid.UUID) (*service.PaymentStatusResult, error) {
	if userID != s.owner {
		return nil, service.ErrNotOrderOwner
	}
	return &service.PaymentStatusResult{
		OrderID:       orderID,
		PaymentStatus: domain.PaymentStatusUnpaid,
		OrderStatus:   domain.OrderStatusPending,
		Total:         25,
	}, nil
}

// testAPI mounts handlers behind the real token guards
type testAPI struct {
	t      *testing.T
	router chi.Router
	tokens *service.TokenIssuer
}

func newTestAPI(t *testing.T, register func(r chi.Router, guards Guards)) *testAPI {
	t.Helper()
	tokens := service.NewTokenIssuer("test-secret", time.Hour, 24*time.Hour)
	router := chi.NewRouter()
	register(router, NewGuards(tokens, zap.NewNop()))
	return &testAPI{t: t, router: router, tokens: tokens}
}

func (a *testAPI) token(role domain.Role) (string, uuid.UUID) {
	a.t.Helper()
	user := &domain.User{ID: uuid.New(), Email: string(role) + "@example.com", Role: role}
	pair, err := a.tokens.IssuePair(user)
	if err != nil {
		a.t.Fatalf("issue token: %v", err)
	}
	return pair.AccessToken, user.ID
}

func (a *testAPI) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) json(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			a.t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	return a.do(method, path, token, reader, "application/json")
}

type errorBody struct {
	Error struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body %q: %v", w.Body.String(), err)
	}
	return body
}
