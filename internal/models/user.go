package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID          string    `json:"id" bun:"id,pk"`
	FullName    string    `json:"full_name" bun:"full_name,notnull"`
	Email       string    `json:"email" bun:"email,unique,notnull"`
	PhoneNumber string    `json:"phone_number" bun:"phone_number,nullzero"`
	CreatedAt   time.Time `json:"created_at" bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
