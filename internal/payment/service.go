package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-payments/internal/logger"
	"ms-payments/internal/models"
	"ms-payments/internal/payment/gateway"
	"ms-payments/internal/utils"
)

var (
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientStock = errors.New("insufficient ticket stock")
	ErrInvalidPromoCode  = errors.New("invalid promo code")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrStatusCheckFailed = errors.New("payment status check failed")
	ErrIllegalTransition = errors.New("illegal payment status transition")
)

type DBLayer interface {
	CreatePayment(payment *models.Payment) error
	GetPaymentByID(id int64, userID string) (*models.Payment, error)
	GetPaymentByOrderID(orderID string) (*models.Payment, error)
	ListPayments(query models.ListQuery, userID string) ([]models.Payment, models.ListMeta, error)
	UpdatePaymentStatus(orderID string, status models.PaymentStatus) (*models.Payment, error)
	GetTicketByID(id string) (*models.Ticket, error)
	GetUserByID(id string) (*models.User, error)
	GetPromoCodeByCode(code string) (*models.PromoCode, error)
}

type Gateway interface {
	CreateTransaction(ctx context.Context, charge *gateway.ChargeRequest) (*gateway.ChargeResponse, error)
	GetTransactionStatus(ctx context.Context, orderID string) (*gateway.TransactionStatus, error)
}

// ReconcileLock guards against concurrent gateway polls for one order.
type ReconcileLock interface {
	Acquire(ctx context.Context, orderID string) (bool, error)
	Release(ctx context.Context, orderID string) error
}

type Publisher interface {
	PublishPaymentCreated(payment models.Payment) error
	PublishPaymentStatusChanged(payment models.Payment, oldStatus models.PaymentStatus) error
}

type QRGenerator interface {
	CheckoutQR(redirectURL string) ([]byte, error)
}

type PaymentService struct {
	DB      DBLayer
	Gateway Gateway
	Lock    ReconcileLock
	Kafka   Publisher
	QR      QRGenerator
	logger  *logger.Logger

	// staleAfter is how long an unreachable pending payment survives before
	// the staleness fallback marks it failed.
	staleAfter time.Duration
}

func NewPaymentService(db DBLayer, gw Gateway, lock ReconcileLock, kafka Publisher, qr QRGenerator, log *logger.Logger, staleAfter time.Duration) *PaymentService {
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	return &PaymentService{
		DB:         db,
		Gateway:    gw,
		Lock:       lock,
		Kafka:      kafka,
		QR:         qr,
		logger:     log,
		staleAfter: staleAfter,
	}
}

// InitializePayment validates the request, prices it, registers the
// transaction with the gateway and persists a pending payment record.
func (s *PaymentService) InitializePayment(ctx context.Context, userID string, req models.InitializePaymentRequest) (*models.InitializePaymentResult, error) {
	if req.Quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1, got %d", req.Quantity)
	}

	ticket, err := s.DB.GetTicketByID(req.TicketID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up ticket %s: %w", req.TicketID, err)
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}

	user, err := s.DB.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %w", userID, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if req.Quantity > ticket.Stock {
		return nil, ErrInsufficientStock
	}

	// Existence only: the promo service owns validity windows and usage caps.
	var promo *models.PromoCode
	if req.PromoCode != "" {
		promo, err = s.DB.GetPromoCodeByCode(req.PromoCode)
		if err != nil {
			return nil, fmt.Errorf("failed to look up promo code %s: %w", req.PromoCode, err)
		}
		if promo == nil {
			return nil, ErrInvalidPromoCode
		}
	}

	quote := ComputeQuote(ticket.Price, req.Quantity, promo)
	orderID := utils.GenerateOrderID()

	charge := gateway.NewChargeRequest(orderID, quote.Amount, quote.UnitPrice, req.Quantity, quote.Discount, ticket, user, req.PromoCode)
	resp, err := s.Gateway.CreateTransaction(ctx, charge)
	if err != nil {
		// No retry here: the caller sees the gateway failure directly.
		return nil, err
	}

	payment, err := models.NewPayment(orderID, ticket.ID, user.ID, req.Quantity, quote.OriginalAmount, quote.Discount, req.PromoCode)
	if err != nil {
		return nil, err
	}

	if err := s.DB.CreatePayment(payment); err != nil {
		// The gateway transaction already exists; surface the order id so the
		// orphan can be reconciled by hand.
		s.logger.Error("PAYMENT", fmt.Sprintf("store write failed after gateway charge, orphaned transaction %s: %v", orderID, err))
		return nil, fmt.Errorf("failed to persist payment %s: %w", orderID, err)
	}

	s.logger.LogPayment("INIT", orderID, fmt.Sprintf("payment created for ticket %s x%d, amount %d", ticket.ID, req.Quantity, quote.Amount))

	if err := s.Kafka.PublishPaymentCreated(*payment); err != nil {
		s.logger.Warn("KAFKA", fmt.Sprintf("failed to publish payment created event for %s: %v", orderID, err))
	}

	result := &models.InitializePaymentResult{
		Payment:          payment,
		TransactionToken: resp.Token,
		RedirectURL:      resp.RedirectURL,
	}

	if s.QR != nil && resp.RedirectURL != "" {
		png, err := s.QR.CheckoutQR(resp.RedirectURL)
		if err != nil {
			s.logger.Warn("PAYMENT", fmt.Sprintf("failed to render checkout QR for %s: %v", orderID, err))
		} else {
			result.CheckoutQR = png
		}
	}

	return result, nil
}

// CheckAndUpdatePaymentStatus reconciles one payment against the gateway's
// authoritative transaction state. Terminal payments are trusted and returned
// without a gateway call.
func (s *PaymentService) CheckAndUpdatePaymentStatus(ctx context.Context, orderID string) (*models.Payment, error) {
	payment, err := s.DB.GetPaymentByOrderID(orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStatusCheckFailed, err)
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	if payment.Status.Terminal() {
		return payment, nil
	}

	if s.Lock != nil {
		acquired, err := s.Lock.Acquire(ctx, orderID)
		if err != nil {
			s.logger.Warn("RECONCILE", fmt.Sprintf("lock unavailable for %s, proceeding unguarded: %v", orderID, err))
		} else if !acquired {
			// Someone else is already polling the gateway for this order.
			return payment, nil
		} else {
			defer func() {
				if err := s.Lock.Release(ctx, orderID); err != nil {
					s.logger.Warn("RECONCILE", fmt.Sprintf("failed to release lock for %s: %v", orderID, err))
				}
			}()
		}
	}

	status, err := s.Gateway.GetTransactionStatus(ctx, orderID)
	if err != nil {
		// Grace period: a transient gateway outage must not fail a recent
		// payment, but nothing stays pending forever.
		if time.Since(payment.PaymentDate) > s.staleAfter {
			s.logger.Warn("RECONCILE", fmt.Sprintf("gateway unreachable and payment %s stale, marking failed: %v", orderID, err))
			return s.transition(payment, models.StatusFailed)
		}
		s.logger.Warn("RECONCILE", fmt.Sprintf("gateway query failed for %s, keeping current status: %v", orderID, err))
		return payment, nil
	}

	next := status.Internal()
	if next == payment.Status || next == models.StatusPending {
		// Unmapped and still-processing gateway states both map to pending,
		// which carries no new information; a challenge payment must not be
		// knocked back to pending by them.
		return payment, nil
	}

	return s.transition(payment, next)
}

// transition validates the state machine and persists the new status.
func (s *PaymentService) transition(payment *models.Payment, next models.PaymentStatus) (*models.Payment, error) {
	if !payment.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s: %s -> %s", ErrStatusCheckFailed, ErrIllegalTransition, payment.Status, next)
	}

	oldStatus := payment.Status
	updated, err := s.DB.UpdatePaymentStatus(payment.OrderID, next)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStatusCheckFailed, err)
	}

	s.logger.LogPayment("STATUS", payment.OrderID, fmt.Sprintf("%s -> %s", oldStatus, next))

	if err := s.Kafka.PublishPaymentStatusChanged(*updated, oldStatus); err != nil {
		s.logger.Warn("KAFKA", fmt.Sprintf("failed to publish status change for %s: %v", payment.OrderID, err))
	}

	return updated, nil
}

// ReconcileOutcome records one per-record reconciliation attempt inside a
// list call, so skipped records are visible values instead of swallowed
// exceptions.
type ReconcileOutcome struct {
	OrderID string
	Err     error
}

// ReconcilePending drives reconciliation for every pending record in the
// slice. A failure on one record never aborts the others.
func (s *PaymentService) ReconcilePending(ctx context.Context, payments []models.Payment) []ReconcileOutcome {
	var outcomes []ReconcileOutcome
	for _, p := range payments {
		if p.Status.Terminal() {
			continue
		}
		_, err := s.CheckAndUpdatePaymentStatus(ctx, p.OrderID)
		if err != nil {
			s.logger.Warn("RECONCILE", fmt.Sprintf("skipping %s: %v", p.OrderID, err))
		}
		outcomes = append(outcomes, ReconcileOutcome{OrderID: p.OrderID, Err: err})
	}
	return outcomes
}

// GetAllPayments returns one page of all payments, reconciling pending ones
// first. The page is re-fetched after reconciliation so it reflects persisted
// state, not patched memory.
func (s *PaymentService) GetAllPayments(ctx context.Context, query models.ListQuery) (*models.PaymentList, error) {
	payments, _, err := s.DB.ListPayments(query, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	s.ReconcilePending(ctx, payments)

	payments, meta, err := s.DB.ListPayments(query, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return &models.PaymentList{Payments: payments, Meta: meta}, nil
}

// GetUserPaymentHistory is GetAllPayments scoped to one user. The caller
// layer owns deciding whose history may be requested.
func (s *PaymentService) GetUserPaymentHistory(ctx context.Context, userID string, query models.ListQuery) (*models.PaymentList, error) {
	payments, _, err := s.DB.ListPayments(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for user %s: %w", userID, err)
	}

	s.ReconcilePending(ctx, payments)

	payments, meta, err := s.DB.ListPayments(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for user %s: %w", userID, err)
	}
	return &models.PaymentList{Payments: payments, Meta: meta}, nil
}

// GetPaymentByID fetches one payment, reconciling it when still pending. If
// reconciliation fails the stored record is returned as-is.
func (s *PaymentService) GetPaymentByID(ctx context.Context, id int64, userID string) (*models.Payment, error) {
	payment, err := s.DB.GetPaymentByID(id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up payment %d: %w", id, err)
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	if payment.Status.Terminal() {
		return payment, nil
	}

	reconciled, err := s.CheckAndUpdatePaymentStatus(ctx, payment.OrderID)
	if err != nil {
		s.logger.Warn("RECONCILE", fmt.Sprintf("returning stored record for %s, reconciliation failed: %v", payment.OrderID, err))
		return payment, nil
	}
	return reconciled, nil
}
