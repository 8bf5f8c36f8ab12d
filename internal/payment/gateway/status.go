package gateway

import "ms-payments/internal/models"

// MapStatus translates the gateway's transaction vocabulary into a payment
// status. Anything unrecognized leaves the payment pending.
func MapStatus(transactionStatus, fraudStatus string) models.PaymentStatus {
	switch transactionStatus {
	case "capture":
		if fraudStatus == "challenge" {
			return models.StatusChallenge
		}
		if fraudStatus == "accept" {
			return models.StatusSuccess
		}
		return models.StatusPending
	case "settlement":
		return models.StatusSuccess
	case "cancel", "deny", "expire":
		return models.StatusFailed
	default:
		return models.StatusPending
	}
}

// Internal maps a polled transaction to the payment status it implies.
func (t *TransactionStatus) Internal() models.PaymentStatus {
	return MapStatus(t.TransactionStatus, t.FraudStatus)
}
