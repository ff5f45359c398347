package order

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"ms-pos/internal/models"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// InitStripe initializes the Stripe API with the secret key.
func InitStripe() {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
}

// Per-order guard so two card terminals cannot create duplicate intents
// for the same order.
var paymentIntentLocks = make(map[int64]bool)
var paymentIntentMutex = &sync.Mutex{}

// CreateCardPaymentIntent creates (or retrieves) a Stripe payment intent
// for a pending card order. Amounts are already cents, which is exactly
// what Stripe expects.
func (s *OrderService) CreateCardPaymentIntent(ctx context.Context, orderID int64, actingUser *models.ActingUser) (*stripe.PaymentIntent, error) {
	if actingUser == nil {
		return nil, models.ErrUnauthorized
	}

	s.Logger.Info("PAYMENT", fmt.Sprintf("Creating payment intent for order: %d", orderID))

	paymentIntentMutex.Lock()
	if _, locked := paymentIntentLocks[orderID]; locked {
		paymentIntentMutex.Unlock()
		s.Logger.Warn("PAYMENT", fmt.Sprintf("Payment intent creation for order %d is already in progress", orderID))
		time.Sleep(500 * time.Millisecond)
		return s.CreateCardPaymentIntent(ctx, orderID, actingUser)
	}
	paymentIntentLocks[orderID] = true
	paymentIntentMutex.Unlock()

	defer func() {
		paymentIntentMutex.Lock()
		delete(paymentIntentLocks, orderID)
		paymentIntentMutex.Unlock()
	}()

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	order, err := s.loadScoped(opCtx, orderID, actingUser)
	if err != nil {
		return nil, err
	}

	if order.PaymentMethod != models.PaymentMethodCard {
		return nil, fmt.Errorf("%w: order %d is not a card order", models.ErrValidation, orderID)
	}
	if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusParked {
		return nil, fmt.Errorf("%w: cannot take payment for a %s order", models.ErrValidation, order.Status)
	}

	// Reuse a still-usable intent if the order already has one.
	if order.PaymentIntentID != "" {
		intent, err := paymentintent.Get(order.PaymentIntentID, nil)
		if err != nil {
			s.Logger.Error("PAYMENT", fmt.Sprintf("Failed to retrieve existing payment intent %s: %v", order.PaymentIntentID, err))
		} else if intent.Status != stripe.PaymentIntentStatusCanceled && intent.Status != stripe.PaymentIntentStatusSucceeded {
			s.Logger.Info("PAYMENT", fmt.Sprintf("Reusing payment intent %s with status %s", intent.ID, intent.Status))
			return intent, nil
		}
	}

	currency := os.Getenv("STRIPE_CURRENCY")
	if currency == "" {
		currency = "eur"
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(order.TotalCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("order_id", fmt.Sprintf("%d", order.ID))

	intent, err := paymentintent.New(params)
	if err != nil {
		s.Logger.Error("PAYMENT", fmt.Sprintf("Failed to create payment intent for order %d: %v", orderID, err))
		return nil, models.ErrTransactionFailed
	}

	if err := s.DB.SavePaymentIntentID(opCtx, order.ID, intent.ID); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, models.ErrTransactionFailed
		}
		s.Logger.Error("PAYMENT", fmt.Sprintf("Failed to persist payment intent id for order %d: %v", orderID, err))
		return nil, models.ErrTransactionFailed
	}

	s.Logger.Info("PAYMENT", fmt.Sprintf("Created payment intent %s for order %d", intent.ID, order.ID))
	return intent, nil
}
