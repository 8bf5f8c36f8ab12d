package gateway

import (
	"strings"

	"ms-payments/internal/models"
)

// ChargeRequest is the transaction-creation payload the gateway expects.
// The sum of item prices must equal the gross amount; the gateway validates it.
type ChargeRequest struct {
	TransactionDetails TransactionDetails `json:"transaction_details"`
	CustomerDetails    CustomerDetails    `json:"customer_details"`
	ItemDetails        []LineItem         `json:"item_details"`
}

type TransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type CustomerDetails struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type LineItem struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type ChargeResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// TransactionStatus carries the gateway's authoritative view of a transaction.
type TransactionStatus struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status,omitempty"`
}

// NewChargeRequest assembles the gateway payload for quantity units of a
// ticket. When a promo discount applies, a synthetic negative line item keeps
// the item sum equal to the gross amount.
func NewChargeRequest(orderID string, grossAmount int64, unitPrice int64, quantity int, discount int64, ticket *models.Ticket, user *models.User, promoCode string) *ChargeRequest {
	firstName, lastName := splitName(user.FullName)

	items := []LineItem{
		{
			ID:       ticket.ID,
			Price:    unitPrice,
			Quantity: quantity,
			Name:     ticket.Name,
			Category: ticket.Category,
		},
	}
	// Fractional ticket prices round per unit, so the line total can drift
	// from the rounded gross. The adjustment item absorbs the difference and
	// keeps the item sum equal to gross_amount.
	original := grossAmount + discount
	if delta := original - unitPrice*int64(quantity); delta != 0 {
		items = append(items, LineItem{
			ID:       "ADJUSTMENT",
			Price:    delta,
			Quantity: 1,
			Name:     "Rounding adjustment",
			Category: "Adjustment",
		})
	}
	if discount > 0 {
		items = append(items, LineItem{
			ID:       "DISCOUNT",
			Price:    -discount,
			Quantity: 1,
			Name:     "Promo: " + promoCode,
			Category: "Discount",
		})
	}

	return &ChargeRequest{
		TransactionDetails: TransactionDetails{
			OrderID:     orderID,
			GrossAmount: grossAmount,
		},
		CustomerDetails: CustomerDetails{
			FirstName: firstName,
			LastName:  lastName,
			Email:     user.Email,
			Phone:     user.PhoneNumber,
		},
		ItemDetails: items,
	}
}

// splitName cuts a full name on the first space; a single token leaves the
// last name empty.
func splitName(fullName string) (string, string) {
	first, last, found := strings.Cut(fullName, " ")
	if !found {
		return fullName, ""
	}
	return first, last
}
