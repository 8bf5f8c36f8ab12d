package payment

import (
	"math"

	"ms-payments/internal/models"
)

// Quote holds the integer amounts sent to the gateway and persisted on the
// payment record. Invariant: Amount + Discount == OriginalAmount.
type Quote struct {
	UnitPrice      int64
	OriginalAmount int64
	Discount       int64
	Amount         int64
}

// ComputeQuote prices quantity units of a ticket, applying the promo's
// percentage discount when one is present.
//
// The gateway requires integer currency amounts. OriginalAmount and Discount
// are rounded independently and Amount is their difference; rounding the final
// amount instead can disagree by one unit for fractional prices, and the
// gateway ledger reconciles against this exact order of operations.
func ComputeQuote(unitPrice float64, quantity int, promo *models.PromoCode) Quote {
	gross := unitPrice * float64(quantity)

	var discount float64
	if promo != nil {
		discount = gross * promo.Discount / 100
	}

	original := int64(math.Round(gross))
	rounded := int64(math.Round(discount))

	return Quote{
		UnitPrice:      int64(math.Round(unitPrice)),
		OriginalAmount: original,
		Discount:       rounded,
		Amount:         original - rounded,
	}
}
