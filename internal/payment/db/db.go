package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-payments/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- PAYMENTS ----------------

// CreatePayment inserts a new payment row. The unique constraint on order_id
// is the collision guard for generated order codes.
func (d *DB) CreatePayment(payment *models.Payment) error {
	payment.CreatedAt = time.Now()
	_, err := d.Bun.NewInsert().Model(payment).Exec(context.Background())
	return err
}

// GetPaymentByID fetches one payment by its numeric id. A non-empty userID
// additionally scopes the lookup to that owner.
func (d *DB) GetPaymentByID(id int64, userID string) (*models.Payment, error) {
	var payment models.Payment
	q := d.Bun.NewSelect().
		Model(&payment).
		Where("id = ?", id)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	err := q.Limit(1).Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (d *DB) GetPaymentByOrderID(orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := d.Bun.NewSelect().
		Model(&payment).
		Where("order_id = ?", orderID).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListPayments returns one page of payments, newest first. A non-empty userID
// filters to that user's history.
func (d *DB) ListPayments(query models.ListQuery, userID string) ([]models.Payment, models.ListMeta, error) {
	query = query.Normalize()

	var payments []models.Payment
	q := d.Bun.NewSelect().Model(&payments)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}

	total, err := q.
		Order("payment_date DESC").
		Limit(query.Limit).
		Offset((query.Page - 1) * query.Limit).
		ScanAndCount(context.Background())
	if err != nil {
		return nil, models.ListMeta{}, err
	}

	meta := models.ListMeta{
		Page:       query.Page,
		Limit:      query.Limit,
		Total:      total,
		TotalPages: (total + query.Limit - 1) / query.Limit,
	}
	return payments, meta, nil
}

// UpdatePaymentStatus writes the new status for an order and returns the
// refreshed row.
func (d *DB) UpdatePaymentStatus(orderID string, status models.PaymentStatus) (*models.Payment, error) {
	_, err := d.Bun.NewUpdate().
		Model((*models.Payment)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("order_id = ?", orderID).
		Exec(context.Background())
	if err != nil {
		return nil, err
	}
	return d.GetPaymentByOrderID(orderID)
}

// ---------------- COLLABORATOR LOOKUPS ----------------

func (d *DB) GetTicketByID(id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) GetUserByID(id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) GetPromoCodeByCode(code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := d.Bun.NewSelect().
		Model(&promo).
		Where("code = ?", code).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}
