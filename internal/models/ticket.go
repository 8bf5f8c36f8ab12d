package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket is read-only to the payment service: it is consulted for price,
// stock and line-item labels. Stock decrement is owned by the ticket service.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID        string    `json:"id" bun:"id,pk"`
	EventID   string    `json:"event_id" bun:"event_id,notnull"`
	Name      string    `json:"name" bun:"name,notnull"`
	Category  string    `json:"category" bun:"category,notnull"`
	Price     float64   `json:"price" bun:"price,notnull"`
	Stock     int       `json:"stock" bun:"stock,notnull"`
	CreatedAt time.Time `json:"created_at" bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
