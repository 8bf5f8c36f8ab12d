package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusSuccess   PaymentStatus = "success"
	StatusFailed    PaymentStatus = "failed"
	StatusChallenge PaymentStatus = "challenge"
)

// Terminal reports whether no further gateway checks are needed for this status.
func (s PaymentStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// CanTransitionTo validates the payment state machine:
// pending -> success|failed|challenge, challenge -> success|failed.
// Re-applying the current status is allowed (idempotent reconciliation writes).
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusSuccess || next == StatusFailed || next == StatusChallenge
	case StatusChallenge:
		return next == StatusSuccess || next == StatusFailed
	default:
		return false
	}
}

type Payment struct {
	bun.BaseModel `bun:"table:payments"`

	ID             int64         `json:"id" bun:"id,pk,autoincrement"`
	OrderID        string        `json:"order_id" bun:"order_id,unique,notnull"`
	OriginalAmount int64         `json:"original_amount" bun:"original_amount,notnull"`
	Discount       int64         `json:"discount" bun:"discount,notnull"`
	Amount         int64         `json:"amount" bun:"amount,notnull"`
	Status         PaymentStatus `json:"status" bun:"status,notnull"`
	TicketID       string        `json:"ticket_id" bun:"ticket_id,notnull"`
	UserID         string        `json:"user_id" bun:"user_id,notnull"`
	Quantity       int           `json:"quantity" bun:"quantity,notnull"`
	PromoCode      string        `json:"promo_code,omitempty" bun:"promo_code,nullzero"`
	PaymentDate    time.Time     `json:"payment_date" bun:"payment_date,notnull"`
	CreatedAt      time.Time     `json:"created_at" bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time     `json:"updated_at,omitempty" bun:"updated_at,nullzero"`
}

// NewPayment builds a pending payment and rejects inconsistent amounts
// before anything reaches the store.
func NewPayment(orderID, ticketID, userID string, quantity int, originalAmount, discount int64, promoCode string) (*Payment, error) {
	if discount < 0 {
		return nil, fmt.Errorf("discount must not be negative, got %d", discount)
	}
	amount := originalAmount - discount
	if amount < 0 {
		return nil, fmt.Errorf("discount %d exceeds original amount %d", discount, originalAmount)
	}
	return &Payment{
		OrderID:        orderID,
		OriginalAmount: originalAmount,
		Discount:       discount,
		Amount:         amount,
		Status:         StatusPending,
		TicketID:       ticketID,
		UserID:         userID,
		Quantity:       quantity,
		PromoCode:      promoCode,
		PaymentDate:    time.Now(),
	}, nil
}

type InitializePaymentRequest struct {
	TicketID  string `json:"ticket_id"`
	Quantity  int    `json:"quantity"`
	PromoCode string `json:"promo_code,omitempty"`
}

type InitializePaymentResult struct {
	Payment          *Payment `json:"payment"`
	TransactionToken string   `json:"transaction_token"`
	RedirectURL      string   `json:"redirect_url"`
	CheckoutQR       []byte   `json:"checkout_qr,omitempty"`
}

type ListQuery struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Normalize clamps paging parameters to sane values.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return q
}

type ListMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type PaymentList struct {
	Payments []Payment `json:"payments"`
	Meta     ListMeta  `json:"meta"`
}

type PaymentEvent struct {
	EventID   string        `json:"event_id"`
	Type      string        `json:"type"`
	OrderID   string        `json:"order_id"`
	OldStatus PaymentStatus `json:"old_status,omitempty"`
	Payment   *Payment      `json:"payment"`
	Timestamp time.Time     `json:"timestamp"`
}
