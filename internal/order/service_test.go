package order_test

import (
	"context"
	"errors"
	"testing"

	"ms-pos/internal/logger"
	"ms-pos/internal/models"
	"ms-pos/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock implementations for testing

type MockOrderDB struct {
	orders       map[int64]*models.Order
	nextID       int64
	shouldFailOn string
	failWith     error
	createCalls  int
	statusCalls  int
}

func NewMockOrderDB() *MockOrderDB {
	return &MockOrderDB{
		orders: make(map[int64]*models.Order),
		nextID: 1,
	}
}

func (m *MockOrderDB) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	if m.shouldFailOn == "GetOrderByID" {
		return nil, m.failWith
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderDB) CreateOrderTx(ctx context.Context, o *models.Order, inputs []models.OrderItemInput) (*models.Order, error) {
	m.createCalls++
	if m.shouldFailOn == "CreateOrderTx" {
		return nil, m.failWith
	}
	o.ID = m.nextID
	m.nextID++
	o.Items = make([]models.OrderItem, len(inputs))
	for i, in := range inputs {
		o.Items[i] = models.OrderItem{
			OrderID:    &o.ID,
			ProductID:  in.ProductID,
			Quantity:   in.Quantity,
			PriceCents: in.PriceCents,
		}
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *MockOrderDB) UpdateOrderTx(ctx context.Context, o *models.Order, req models.UpdateOrderRequest) (*models.Order, error) {
	if m.shouldFailOn == "UpdateOrderTx" {
		return nil, m.failWith
	}
	if req.Status != nil {
		o.Status = *req.Status
	}
	if req.TotalCents != nil {
		o.TotalCents = *req.TotalCents
	}
	if req.TableID != nil {
		o.TableID = req.TableID
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *MockOrderDB) UpdateOrderStatusTx(ctx context.Context, o *models.Order, newStatus string) (*models.Order, error) {
	m.statusCalls++
	if m.shouldFailOn == "UpdateOrderStatusTx" {
		return nil, m.failWith
	}
	o.Status = newStatus
	m.orders[o.ID] = o
	return o, nil
}

func (m *MockOrderDB) SavePaymentIntentID(ctx context.Context, orderID int64, intentID string) error {
	return nil
}

type MockTableLock struct {
	lockingSucceeds bool
	locked          map[int64]string
	lockCalls       []int64
	unlockCalls     int
}

func NewMockTableLock() *MockTableLock {
	return &MockTableLock{
		lockingSucceeds: true,
		locked:          make(map[int64]string),
	}
}

func (m *MockTableLock) LockTable(ctx context.Context, tableID int64, token string) (bool, error) {
	m.lockCalls = append(m.lockCalls, tableID)
	if !m.lockingSucceeds {
		return false, nil
	}
	m.locked[tableID] = token
	return true, nil
}

func (m *MockTableLock) UnlockTable(ctx context.Context, tableID int64, token string) error {
	m.unlockCalls++
	delete(m.locked, tableID)
	return nil
}

type MockPublisher struct {
	topics []string
}

func (m *MockPublisher) Publish(topic string, key string, value []byte) error {
	m.topics = append(m.topics, topic)
	return nil
}

func newTestService(db *MockOrderDB, lock *MockTableLock, pub *MockPublisher) *order.OrderService {
	return order.NewOrderService(db, lock, pub, logger.NewLogger(), 0)
}

func adminUser() *models.ActingUser {
	return &models.ActingUser{ID: "admin-1", Username: "boss", Role: models.RoleAdmin}
}

func employeeUser() *models.ActingUser {
	return &models.ActingUser{ID: "emp-1", Username: "waiter", Role: models.RoleEmployee, ParentUser: "admin-1"}
}

func validCreateRequest() models.CreateOrderRequest {
	return models.CreateOrderRequest{
		TotalCents:    1500,
		Status:        models.OrderStatusPending,
		PaymentMethod: models.PaymentMethodCash,
		Items: []models.OrderItemInput{
			{ProductID: "prod-1", Quantity: 2, PriceCents: 750},
		},
	}
}

func TestCreateOrderRequiresUser(t *testing.T) {
	db := NewMockOrderDB()
	svc := newTestService(db, NewMockTableLock(), &MockPublisher{})

	_, err := svc.CreateOrder(context.Background(), validCreateRequest(), nil)

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Equal(t, 0, db.createCalls, "no write may happen before authorization")
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	db := NewMockOrderDB()
	svc := newTestService(db, NewMockTableLock(), &MockPublisher{})

	req := validCreateRequest()
	req.Status = "shipped"
	_, err := svc.CreateOrder(context.Background(), req, adminUser())
	assert.ErrorIs(t, err, models.ErrValidation)

	req = validCreateRequest()
	req.Items[0].Quantity = 0
	_, err = svc.CreateOrder(context.Background(), req, adminUser())
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Equal(t, 0, db.createCalls)
}

func TestCreateOrderSetsTenantAndPublishes(t *testing.T) {
	db := NewMockOrderDB()
	pub := &MockPublisher{}
	svc := newTestService(db, NewMockTableLock(), pub)

	created, err := svc.CreateOrder(context.Background(), validCreateRequest(), employeeUser())
	require.NoError(t, err)

	assert.Equal(t, "admin-1", created.AdminUserID, "employee orders belong to the parent tenant")
	assert.Equal(t, "emp-1", created.UserID)
	assert.Contains(t, pub.topics, "pos.order.created")
}

func TestCreateOrderHoldsTableLock(t *testing.T) {
	db := NewMockOrderDB()
	lock := NewMockTableLock()
	svc := newTestService(db, lock, &MockPublisher{})

	tableID := int64(3)
	req := validCreateRequest()
	req.TableID = &tableID

	_, err := svc.CreateOrder(context.Background(), req, adminUser())
	require.NoError(t, err)

	assert.Equal(t, 1, lock.unlockCalls, "lock must be released after the write")
	assert.Empty(t, lock.locked)
}

func TestCreateOrderLockContention(t *testing.T) {
	db := NewMockOrderDB()
	lock := NewMockTableLock()
	lock.lockingSucceeds = false
	svc := newTestService(db, lock, &MockPublisher{})

	tableID := int64(3)
	req := validCreateRequest()
	req.TableID = &tableID

	_, err := svc.CreateOrder(context.Background(), req, adminUser())

	assert.ErrorIs(t, err, models.ErrTransactionFailed)
	assert.Equal(t, 0, db.createCalls, "contended lock must block the write entirely")
}

func TestCreateOrderUnresolvableProductAborts(t *testing.T) {
	db := NewMockOrderDB()
	db.shouldFailOn = "CreateOrderTx"
	db.failWith = models.ErrNotFound
	pub := &MockPublisher{}
	svc := newTestService(db, NewMockTableLock(), pub)

	_, err := svc.CreateOrder(context.Background(), validCreateRequest(), adminUser())

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, pub.topics, "no event for a rolled-back order")
}

func TestStoreFailureIsMasked(t *testing.T) {
	db := NewMockOrderDB()
	db.shouldFailOn = "CreateOrderTx"
	db.failWith = errors.New("pq: connection reset")
	svc := newTestService(db, NewMockTableLock(), &MockPublisher{})

	_, err := svc.CreateOrder(context.Background(), validCreateRequest(), adminUser())

	assert.ErrorIs(t, err, models.ErrTransactionFailed)
	assert.NotContains(t, err.Error(), "pq:", "internal detail must not leak")
}

func TestUpdateOrderCrossTenantReadsAsNotFound(t *testing.T) {
	db := NewMockOrderDB()
	db.orders[7] = &models.Order{ID: 7, AdminUserID: "someone-else", UserID: "someone-else", Status: models.OrderStatusPending}
	svc := newTestService(db, NewMockTableLock(), &MockPublisher{})

	status := models.OrderStatusCompleted
	_, err := svc.UpdateOrder(context.Background(), 7, models.UpdateOrderRequest{Status: &status}, adminUser())

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateOrderEmployeeCannotTouchForeignOrder(t *testing.T) {
	db := NewMockOrderDB()
	db.orders[7] = &models.Order{ID: 7, AdminUserID: "admin-1", UserID: "emp-2", Status: models.OrderStatusPending}
	svc := newTestService(db, NewMockTableLock(), &MockPublisher{})

	status := models.OrderStatusCompleted
	_, err := svc.UpdateOrder(context.Background(), 7, models.UpdateOrderRequest{Status: &status}, employeeUser())

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestUpdateOrderTableMoveLocksBothTables(t *testing.T) {
	db := NewMockOrderDB()
	lock := NewMockTableLock()
	svc := newTestService(db, lock, &MockPublisher{})

	oldTable := int64(5)
	req := validCreateRequest()
	req.TableID = &oldTable
	created, err := svc.CreateOrder(context.Background(), req, adminUser())
	require.NoError(t, err)

	lock.lockCalls = nil
	lock.unlockCalls = 0

	// Moving releases the old table and occupies the new one, so both
	// must be held for the span of the write, always in id order.
	newTable := int64(2)
	_, err = svc.UpdateOrder(context.Background(), created.ID, models.UpdateOrderRequest{TableID: &newTable}, adminUser())
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 5}, lock.lockCalls)
	assert.Equal(t, 2, lock.unlockCalls)
}

func TestUpdateOrderStatusCancelledPublishesCancelTopic(t *testing.T) {
	db := NewMockOrderDB()
	db.orders[7] = &models.Order{ID: 7, AdminUserID: "admin-1", UserID: "admin-1", Status: models.OrderStatusPending}
	pub := &MockPublisher{}
	svc := newTestService(db, NewMockTableLock(), pub)

	updated, err := svc.UpdateOrderStatus(context.Background(), 7, models.OrderStatusCancelled, adminUser())
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusCancelled, updated.Status)
	assert.Contains(t, pub.topics, "pos.order.cancelled")
}

func TestUpdateOrderStatusRejectsUnknownStatus(t *testing.T) {
	db := NewMockOrderDB()
	svc := newTestService(db, NewMockTableLock(), &MockPublisher{})

	_, err := svc.UpdateOrderStatus(context.Background(), 7, "refunded", adminUser())

	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, 0, db.statusCalls)
}
