package sales

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/flipflop/backend/internal/domain/billing"
	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/flipflop/backend/internal/domain/identity"
	"github.com/flipflop/backend/internal/domain/inventory"
	"github.com/flipflop/backend/internal/domain/sales"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// fakeOrderRepository keeps orders in memory and enforces the version check.
// conflicts makes the next SaveWithLock calls fail as if another writer won.
// failures scripts the outcome of the next saves; a nil entry lets one through.
type fakeOrderRepository struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*sales.Order
	conflicts int
	failures  []error
	saves     int
	seq       int
}

func newFakeOrderRepository() *fakeOrderRepository {
	return &fakeOrderRepository{orders: map[uuid.UUID]*sales.Order{}}
}

func cloneOrder(o *sales.Order) *sales.Order {
	c := o.Clone()
	c.ClearPendingHistory()
	c.ClearDomainEvents()
	return c
}

func (r *fakeOrderRepository) put(o *sales.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = cloneOrder(o)
}

func (r *fakeOrderRepository) stored(id uuid.UUID) *sales.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneOrder(r.orders[id])
}

func (r *fakeOrderRepository) FindByID(_ context.Context, id uuid.UUID) (*sales.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *fakeOrderRepository) FindByNumber(_ context.Context, number string) (*sales.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.OrderNumber == number {
			return cloneOrder(o), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeOrderRepository) FindByTransactionID(_ context.Context, tx string) (*sales.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PaymentTransactionID == tx {
			return cloneOrder(o), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeOrderRepository) List(_ context.Context, q sales.OrderQuery) ([]sales.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sales.Order
	for _, o := range r.orders {
		if q.UserID != nil && o.UserID != *q.UserID {
			continue
		}
		out = append(out, *cloneOrder(o))
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepository) Create(_ context.Context, o *sales.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; ok {
		return shared.ErrAlreadyExists
	}
	o.ClearPendingHistory()
	o.ClearDomainEvents()
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *fakeOrderRepository) SaveWithLock(_ context.Context, o *sales.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.orders[o.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if r.conflicts > 0 {
		r.conflicts--
		current.Version++
		return shared.ErrConcurrencyConflict
	}
	if len(r.failures) > 0 {
		err := r.failures[0]
		r.failures = r.failures[1:]
		if err != nil {
			return err
		}
	}
	if current.Version != o.Version {
		return shared.ErrConcurrencyConflict
	}
	r.saves++
	o.Version++
	o.ClearPendingHistory()
	o.ClearDomainEvents()
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *fakeOrderRepository) NextOrderNumber(_ context.Context, at time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return shared.FormatDocumentNumber(sales.OrderNumberPrefix, at, int64(r.seq)), nil
}

type mockCartRepository struct{ mock.Mock }

func (m *mockCartRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]sales.CartItem, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]sales.CartItem), args.Error(1)
}

func (m *mockCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.CartItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.CartItem), args.Error(1)
}

func (m *mockCartRepository) FindLine(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*sales.CartItem, error) {
	args := m.Called(ctx, userID, productID, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.CartItem), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, item *sales.CartItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCartRepository) ClearByUser(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

type mockProductRepository struct{ mock.Mock }

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *mockProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *mockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *mockProductRepository) Search(ctx context.Context, q catalog.ProductQuery) ([]catalog.Product, int64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]catalog.Product), args.Get(1).(int64), args.Error(2)
}

func (m *mockProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	args := m.Called(ctx, sku)
	return args.Bool(0), args.Error(1)
}

func (m *mockProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockUserRepository struct{ mock.Mock }

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) Save(ctx context.Context, u *identity.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockAddressRepository struct{ mock.Mock }

func (m *mockAddressRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.DeliveryAddress, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.DeliveryAddress), args.Error(1)
}

func (m *mockAddressRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]identity.DeliveryAddress, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]identity.DeliveryAddress), args.Error(1)
}

func (m *mockAddressRepository) Save(ctx context.Context, a *identity.DeliveryAddress) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAddressRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockReservationStore struct{ mock.Mock }

func (m *mockReservationStore) Reserve(ctx context.Context, orderID uuid.UUID, lines []inventory.Line) (*inventory.StockReservation, error) {
	args := m.Called(ctx, orderID, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.StockReservation), args.Error(1)
}

func (m *mockReservationStore) Release(ctx context.Context, orderID uuid.UUID) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *mockReservationStore) Commit(ctx context.Context, orderID uuid.UUID) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *mockReservationStore) Restock(ctx context.Context, orderID uuid.UUID) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *mockReservationStore) Find(ctx context.Context, orderID uuid.UUID) (*inventory.StockReservation, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.StockReservation), args.Error(1)
}

type mockInvoiceIssuer struct{ mock.Mock }

func (m *mockInvoiceIssuer) IssueProforma(ctx context.Context, o *sales.Order) (*billing.ProformaInvoice, error) {
	args := m.Called(ctx, o)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ProformaInvoice), args.Error(1)
}

func (m *mockInvoiceIssuer) IssueInvoice(ctx context.Context, o *sales.Order) (*billing.Invoice, error) {
	args := m.Called(ctx, o)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) Name() string { return "payu" }

func (m *mockGateway) CreatePayment(ctx context.Context, req payment.CreateRequest) (*payment.CreateResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CreateResult), args.Error(1)
}

func (m *mockGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, reason string) error {
	return m.Called(ctx, transactionID, amount, reason).Error(0)
}

func (m *mockGateway) ParseNotification(payload []byte, header http.Header) (*payment.Notification, error) {
	args := m.Called(payload, header)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Notification), args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) OrderConfirmation(recipient, orderNumber string, total decimal.Decimal) {
	m.Called(recipient, orderNumber, total)
}

func (m *mockNotifier) PaymentConfirmation(recipient, orderNumber string, amount decimal.Decimal) {
	m.Called(recipient, orderNumber, amount)
}

func (m *mockNotifier) OrderStatusUpdate(recipient, orderNumber, status string) {
	m.Called(recipient, orderNumber, status)
}

func (m *mockNotifier) ShipmentTracking(recipient, orderNumber, trackingNumber string) {
	m.Called(recipient, orderNumber, trackingNumber)
}

type mockForwarder struct{ mock.Mock }

func (m *mockForwarder) ForwardOrder(ctx context.Context, o *sales.Order) error {
	return m.Called(ctx, o).Error(0)
}

// countingRecorder counts saga outcomes per saga
type countingRecorder struct {
	mu            sync.Mutex
	runs          map[string]int
	compensations []string
	conflicts     int
	transitions   []string
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{runs: map[string]int{}}
}

func (r *countingRecorder) SagaRun(saga, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[saga+":"+outcome]++
}

func (r *countingRecorder) Compensation(_ string, step string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compensations = append(r.compensations, step)
}

func (r *countingRecorder) ConflictRetry(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts++
}

func (r *countingRecorder) Transition(from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, from+"->"+to)
}

func (r *countingRecorder) OrderPlaced(float64)    {}
func (r *countingRecorder) Webhook(string, string) {}
