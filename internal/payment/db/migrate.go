package db

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"ms-payments/internal/models"
)

// Migrate creates the payments table and its lookup indexes. Collaborator
// tables (tickets, users, promo_codes) are owned by their services; the
// bootstrap tool under cmd/migrate seeds them for local development.
func Migrate(db *bun.DB) {
	ctx := context.Background()

	_, err := db.NewCreateTable().
		Model((*models.Payment)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		log.Fatalf("create payments table failed: %v", err)
	}

	indexes := []struct {
		name   string
		column string
	}{
		{"idx_payments_order_id", "order_id"},
		{"idx_payments_user_id", "user_id"},
		{"idx_payments_status", "status"},
	}
	for _, idx := range indexes {
		_, err = db.NewCreateIndex().
			Model((*models.Payment)(nil)).
			Index(idx.name).
			IfNotExists().
			Column(idx.column).
			Exec(ctx)
		if err != nil {
			log.Fatalf("create index %s failed: %v", idx.name, err)
		}
	}

	log.Println("payments table ready")
}
