package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"ms-pos/internal/kafka"
	"ms-pos/internal/logger"
	"ms-pos/internal/models"
	"ms-pos/internal/utils"
)

type DBLayer interface {
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	CreateOrderTx(ctx context.Context, order *models.Order, inputs []models.OrderItemInput) (*models.Order, error)
	UpdateOrderTx(ctx context.Context, order *models.Order, req models.UpdateOrderRequest) (*models.Order, error)
	UpdateOrderStatusTx(ctx context.Context, order *models.Order, newStatus string) (*models.Order, error)
	SavePaymentIntentID(ctx context.Context, orderID int64, intentID string) error
}

type TableLock interface {
	LockTable(ctx context.Context, tableID int64, token string) (bool, error)
	UnlockTable(ctx context.Context, tableID int64, token string) error
}

type Publisher interface {
	Publish(topic string, key string, value []byte) error
}

// OrderService orchestrates order mutations: validation and authorization
// up front, the table advisory lock around the write, one store
// transaction for the rows, events after commit. Dependencies are injected
// so tests can substitute doubles.
type OrderService struct {
	DB           DBLayer
	Lock         TableLock
	Kafka        Publisher
	Logger       *logger.Logger
	StoreTimeout time.Duration
}

func NewOrderService(db DBLayer, lock TableLock, kafkaProd Publisher, log *logger.Logger, storeTimeout time.Duration) *OrderService {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &OrderService{DB: db, Lock: lock, Kafka: kafkaProd, Logger: log, StoreTimeout: storeTimeout}
}

func (s *OrderService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.StoreTimeout)
}

// GetOrder loads one order, scoped to the acting user.
func (s *OrderService) GetOrder(ctx context.Context, id int64, actingUser *models.ActingUser) (*models.Order, error) {
	if actingUser == nil {
		return nil, models.ErrUnauthorized
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	return s.loadScoped(ctx, id, actingUser)
}

// CreateOrder writes a new order with its line items and table link in one
// atomic transaction. Nothing survives a failure at any step.
func (s *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest, actingUser *models.ActingUser) (*models.Order, error) {
	if actingUser == nil {
		return nil, models.ErrUnauthorized
	}
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	order := &models.Order{
		AdminUserID:       actingUser.TenantID(),
		UserID:            actingUser.ID,
		TotalCents:        req.TotalCents,
		Status:            req.Status,
		PaymentMethod:     req.PaymentMethod,
		CashReceivedCents: req.CashReceivedCents,
		TableID:           req.TableID,
		Timestamp:         ts,
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	// Hold the table's advisory lock for the span of the write so a
	// concurrent status update cannot free the table underneath us.
	if req.TableID != nil {
		unlock, err := s.lockTable(ctx, *req.TableID)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	created, err := s.DB.CreateOrderTx(ctx, order, req.Items)
	if err != nil {
		return nil, s.storeError("CREATE", err)
	}

	s.publishOrderEvent(kafka.TopicOrderCreated, created)
	s.Logger.LogOrder("CREATE", created.ID, fmt.Sprintf("%d items, total %s", len(created.Items), utils.FormatAmount(created.TotalCents)))
	return created, nil
}

// UpdateOrder applies a partial update; a supplied item list replaces the
// existing lines wholesale, a nil list keeps them.
func (s *OrderService) UpdateOrder(ctx context.Context, id int64, req models.UpdateOrderRequest, actingUser *models.ActingUser) (*models.Order, error) {
	if actingUser == nil {
		return nil, models.ErrUnauthorized
	}
	if req.Items != nil {
		if err := validateItems(*req.Items); err != nil {
			return nil, err
		}
	}
	if req.Status != nil && !validOrderStatus(*req.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, *req.Status)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	order, err := s.loadScoped(ctx, id, actingUser)
	if err != nil {
		return nil, err
	}

	// An update can touch the held table (snapshot refresh, terminal
	// release) and a requested one (move). Lock every involved table, in
	// id order so two concurrent moves cannot deadlock.
	for _, tableID := range tableLockIDs(order.TableID, req.TableID) {
		unlock, err := s.lockTable(ctx, tableID)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	updated, err := s.DB.UpdateOrderTx(ctx, order, req)
	if err != nil {
		return nil, s.storeError("UPDATE", err)
	}

	s.publishOrderEvent(kafka.TopicOrderUpdated, updated)
	s.Logger.LogOrder("UPDATE", updated.ID, "order updated")
	return updated, nil
}

// UpdateOrderStatus is the single-field transition. Terminal transitions
// release the order's table inside the same store transaction; nothing
// else is touched.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id int64, newStatus string, actingUser *models.ActingUser) (*models.Order, error) {
	if actingUser == nil {
		return nil, models.ErrUnauthorized
	}
	if !validOrderStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, newStatus)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	order, err := s.loadScoped(ctx, id, actingUser)
	if err != nil {
		return nil, err
	}

	if order.TableID != nil {
		unlock, err := s.lockTable(ctx, *order.TableID)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	updated, err := s.DB.UpdateOrderStatusTx(ctx, order, newStatus)
	if err != nil {
		return nil, s.storeError("STATUS", err)
	}

	topic := kafka.TopicOrderUpdated
	if updated.Status == models.OrderStatusCancelled {
		topic = kafka.TopicOrderCancelled
	}
	s.publishOrderEvent(topic, updated)
	s.Logger.LogOrder("STATUS", updated.ID, fmt.Sprintf("status -> %s", updated.Status))
	return updated, nil
}

// loadScoped fetches an order and enforces tenant/ownership visibility.
// Orders of another tenant read as not found rather than forbidden, so ids
// do not leak across tenants.
func (s *OrderService) loadScoped(ctx context.Context, id int64, actingUser *models.ActingUser) (*models.Order, error) {
	order, err := s.DB.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, s.storeError("LOAD", err)
	}

	if order.AdminUserID != actingUser.TenantID() {
		return nil, fmt.Errorf("%w: order %d", models.ErrNotFound, id)
	}
	if !actingUser.Privileged() && order.UserID != actingUser.ID {
		return nil, fmt.Errorf("%w: order %d belongs to another user", models.ErrUnauthorized, id)
	}
	return order, nil
}

// tableLockIDs collects the distinct tables an update may write, sorted
// ascending so every caller acquires the locks in the same order.
func tableLockIDs(current, requested *int64) []int64 {
	var ids []int64
	if current != nil {
		ids = append(ids, *current)
	}
	if requested != nil && (current == nil || *requested != *current) {
		ids = append(ids, *requested)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *OrderService) lockTable(ctx context.Context, tableID int64) (func(), error) {
	token, err := utils.GenerateLockToken()
	if err != nil {
		return nil, s.storeError("LOCK", err)
	}
	ok, err := s.Lock.LockTable(ctx, tableID, token)
	if err != nil {
		return nil, s.storeError("LOCK", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: table %d is being modified", models.ErrTransactionFailed, tableID)
	}
	return func() {
		if err := s.Lock.UnlockTable(context.Background(), tableID, token); err != nil {
			s.Logger.Error("LOCK", fmt.Sprintf("failed to unlock table %d: %v", tableID, err))
		}
	}, nil
}

// storeError logs the internal cause and surfaces the coarse taxonomy:
// business errors pass through, anything else becomes a generic
// transaction failure.
func (s *OrderService) storeError(action string, err error) error {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrValidation) ||
		errors.Is(err, models.ErrUnauthorized) || errors.Is(err, models.ErrTransactionFailed) {
		return err
	}
	s.Logger.Error("ORDER", fmt.Sprintf("[%s] store failure: %v", action, err))
	return models.ErrTransactionFailed
}

func (s *OrderService) publishOrderEvent(topic string, order *models.Order) {
	if s.Kafka == nil {
		return
	}
	value, err := json.Marshal(order)
	if err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to marshal order %d: %v", order.ID, err))
		return
	}
	// Best effort: a missed event only delays the UI until its next poll.
	if err := s.Kafka.Publish(topic, strconv.FormatInt(order.ID, 10), value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("publish to %s failed: %v", topic, err))
	}
}

func validateCreate(req models.CreateOrderRequest) error {
	if !validOrderStatus(req.Status) {
		return fmt.Errorf("%w: unknown status %q", models.ErrValidation, req.Status)
	}
	switch req.PaymentMethod {
	case models.PaymentMethodCash, models.PaymentMethodCard, models.PaymentMethodExternal:
	default:
		return fmt.Errorf("%w: unknown payment method %q", models.ErrValidation, req.PaymentMethod)
	}
	if req.TotalCents < 0 {
		return fmt.Errorf("%w: total must not be negative", models.ErrValidation)
	}
	return validateItems(req.Items)
}

func validateItems(items []models.OrderItemInput) error {
	for _, item := range items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: product_id required", models.ErrValidation)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be > 0", models.ErrValidation)
		}
		if item.PriceCents < 0 {
			return fmt.Errorf("%w: price must be >= 0", models.ErrValidation)
		}
	}
	return nil
}

func validOrderStatus(status string) bool {
	switch status {
	case models.OrderStatusPending, models.OrderStatusCompleted, models.OrderStatusCancelled, models.OrderStatusParked:
		return true
	}
	return false
}
