package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PromoCode holds a percentage discount. The validity window is enforced by
// the promo service; payment initialization only checks existence.
type PromoCode struct {
	bun.BaseModel `bun:"table:promo_codes"`

	ID         string    `json:"id" bun:"id,pk"`
	Code       string    `json:"code" bun:"code,unique,notnull"`
	Discount   float64   `json:"discount" bun:"discount,notnull"`
	ValidFrom  time.Time `json:"valid_from" bun:"valid_from,nullzero"`
	ValidUntil time.Time `json:"valid_until" bun:"valid_until,nullzero"`
	CreatedAt  time.Time `json:"created_at" bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
