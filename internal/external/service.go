package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ms-pos/internal/kafka"
	"ms-pos/internal/logger"
	"ms-pos/internal/models"

	"github.com/google/uuid"
)

type DBLayer interface {
	CreateExternalOrderTx(ctx context.Context, order *models.Order, ext *models.ExternalOrder, inputs []models.OrderItemInput) (*models.ExternalOrder, error)
	GetExternalOrderByID(ctx context.Context, id string) (*models.ExternalOrder, error)
	UpdateExternalOrderStatusTx(ctx context.Context, ext *models.ExternalOrder, newStatus, pairedOrderStatus string) (*models.ExternalOrder, error)
	ListPendingExternalOrders(ctx context.Context, adminID string) ([]models.ExternalOrder, error)
	ListActiveProducts(ctx context.Context, adminID string) ([]models.Product, error)
}

type Publisher interface {
	Publish(topic string, key string, value []byte) error
}

type Emitter interface {
	Emit(ext models.ExternalOrder)
}

// Service is the public ingestion pipeline: unauthenticated submissions
// become a first-class Order plus an ExternalOrder shadow record in one
// transaction, then a best-effort event reaches connected staff clients.
type Service struct {
	DB           DBLayer
	Kafka        Publisher
	Emitter      Emitter
	Logger       *logger.Logger
	StoreTimeout time.Duration
}

func NewService(db DBLayer, kafkaProd Publisher, emitter Emitter, log *logger.Logger, storeTimeout time.Duration) *Service {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &Service{DB: db, Kafka: kafkaProd, Emitter: emitter, Logger: log, StoreTimeout: storeTimeout}
}

func (s *Service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.StoreTimeout)
}

// Submit ingests a public order. The only sanitization at this trust
// boundary is resolving every product against the target admin's own
// catalog; an unresolvable product aborts the whole submission, matching
// the authenticated path. Internal failure detail is never echoed back.
func (s *Service) Submit(ctx context.Context, req models.SubmitExternalOrderRequest) (*models.ExternalOrder, error) {
	if err := validateSubmit(req); err != nil {
		return nil, err
	}

	var total int64
	for _, item := range req.Items {
		total += item.PriceCents * int64(item.Quantity)
	}

	now := time.Now()
	order := &models.Order{
		AdminUserID:   req.AdminUserID,
		UserID:        req.AdminUserID,
		TotalCents:    total,
		Status:        models.OrderStatusPending,
		PaymentMethod: models.PaymentMethodExternal,
		Timestamp:     now,
	}
	ext := &models.ExternalOrder{
		ID:            uuid.NewString(),
		AdminUserID:   req.AdminUserID,
		TotalCents:    total,
		Status:        models.ExternalStatusPending,
		Source:        req.Source,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerNote:  req.CustomerNote,
		CreatedAt:     now,
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	created, err := s.DB.CreateExternalOrderTx(ctx, order, ext, req.Items)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrValidation) {
			return nil, err
		}
		s.Logger.Error("EXTERNAL", fmt.Sprintf("submission failed: %v", err))
		return nil, models.ErrTransactionFailed
	}

	s.notify(*created)
	s.Logger.Info("EXTERNAL", fmt.Sprintf("external order %s submitted for admin %s, total %d cents", created.ID, created.AdminUserID, created.TotalCents))
	return created, nil
}

// UpdateStatus transitions a submission on behalf of the given tenant.
// Idempotent: re-applying the current status is a no-op success. Terminal
// transitions complete or cancel the paired Order and free its table in
// the same transaction. Another tenant's submission reads as not found.
func (s *Service) UpdateStatus(ctx context.Context, id, newStatus, adminID string) (*models.ExternalOrder, error) {
	if !models.ValidExternalStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, newStatus)
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	ext, err := s.DB.GetExternalOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		s.Logger.Error("EXTERNAL", fmt.Sprintf("load %s failed: %v", id, err))
		return nil, models.ErrTransactionFailed
	}

	if ext.AdminUserID != adminID {
		return nil, fmt.Errorf("%w: external order %s", models.ErrNotFound, id)
	}

	if ext.Status == newStatus {
		return ext, nil
	}

	pairedStatus := ""
	switch newStatus {
	case models.ExternalStatusCompleted:
		pairedStatus = models.OrderStatusCompleted
	case models.ExternalStatusCancelled:
		pairedStatus = models.OrderStatusCancelled
	}

	updated, err := s.DB.UpdateExternalOrderStatusTx(ctx, ext, newStatus, pairedStatus)
	if err != nil {
		s.Logger.Error("EXTERNAL", fmt.Sprintf("status update %s failed: %v", id, err))
		return nil, models.ErrTransactionFailed
	}

	s.Logger.Info("EXTERNAL", fmt.Sprintf("external order %s status -> %s", id, newStatus))
	return updated, nil
}

// ListPending is the polling fallback for staff clients that missed the
// push channel.
func (s *Service) ListPending(ctx context.Context, adminID string) ([]models.ExternalOrder, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.DB.ListPendingExternalOrders(ctx, adminID)
}

// Menu returns the tenant's active catalog for the public menu page.
func (s *Service) Menu(ctx context.Context, adminID string) ([]models.Product, error) {
	if adminID == "" {
		return nil, fmt.Errorf("%w: admin user id required", models.ErrValidation)
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.DB.ListActiveProducts(ctx, adminID)
}

// notify publishes the submission to Kafka and the in-process emitter.
// Both are best effort; failures are logged and never fail the submission.
func (s *Service) notify(ext models.ExternalOrder) {
	if s.Emitter != nil {
		s.Emitter.Emit(ext)
	}

	if s.Kafka == nil {
		return
	}
	value, err := json.Marshal(ext)
	if err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to marshal external order %s: %v", ext.ID, err))
		return
	}
	if err := s.Kafka.Publish(kafka.TopicExternalOrders, ext.ID, value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("publish external order %s failed: %v", ext.ID, err))
	}
}

func validateSubmit(req models.SubmitExternalOrderRequest) error {
	if req.AdminUserID == "" {
		return fmt.Errorf("%w: admin user id required", models.ErrValidation)
	}
	if req.CustomerName == "" {
		return fmt.Errorf("%w: customer name required", models.ErrValidation)
	}
	if req.CustomerPhone == "" {
		return fmt.Errorf("%w: customer phone required", models.ErrValidation)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: items required", models.ErrValidation)
	}
	for _, item := range req.Items {
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
