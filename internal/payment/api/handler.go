package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-payments/internal/auth"
	"ms-payments/internal/logger"
	"ms-payments/internal/models"
	"ms-payments/internal/payment"
	"ms-payments/internal/payment/gateway"
	"ms-payments/internal/utils"
)

type Handler struct {
	PaymentService *payment.PaymentService
	Logger         *logger.Logger
	AdminRole      string
}

func NewHandler(service *payment.PaymentService, log *logger.Logger, adminRole string) *Handler {
	if adminRole == "" {
		adminRole = "admin"
	}
	return &Handler{PaymentService: service, Logger: log, AdminRole: adminRole}
}

// RegisterRoutes mounts the payment endpoints on a router that already has
// the auth middleware applied.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Post("/", h.InitializePayment)
		r.Get("/", h.GetAllPayments)
		r.Get("/me", h.GetUserPaymentHistory)
		r.Get("/id/{id}", h.GetPaymentByID)
		r.Get("/{orderId}/status", h.CheckPaymentStatus)
	})
}

func (h *Handler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", "no authenticated user"))
		return
	}

	var req models.InitializePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if req.TicketID == "" || req.Quantity < 1 {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", "ticket_id and a positive quantity are required"))
		return
	}

	result, err := h.PaymentService.InitializePayment(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, utils.SuccessResponse("Payment initialized", result))
}

func (h *Handler) CheckPaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	p, err := h.PaymentService.CheckAndUpdatePaymentStatus(r.Context(), orderID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Payment status", p))
}

func (h *Handler) GetAllPayments(w http.ResponseWriter, r *http.Request) {
	if !auth.HasRole(r.Context(), h.AdminRole) {
		writeJSON(w, http.StatusForbidden, utils.ErrorResponse("Forbidden", "admin role required"))
		return
	}

	list, err := h.PaymentService.GetAllPayments(r.Context(), listQueryFromRequest(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Payments", list))
}

func (h *Handler) GetUserPaymentHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", "no authenticated user"))
		return
	}

	list, err := h.PaymentService.GetUserPaymentHistory(r.Context(), userID, listQueryFromRequest(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Payment history", list))
}

func (h *Handler) GetPaymentByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid payment id", err.Error()))
		return
	}

	// Admins see any payment; everyone else is scoped to their own records.
	scopeUserID := ""
	if !auth.HasRole(r.Context(), h.AdminRole) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", "no authenticated user"))
			return
		}
		scopeUserID = userID
	}

	p, err := h.PaymentService.GetPaymentByID(r.Context(), id, scopeUserID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Payment", p))
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payment.ErrTicketNotFound),
		errors.Is(err, payment.ErrUserNotFound),
		errors.Is(err, payment.ErrPaymentNotFound):
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Not found", err.Error()))
	case errors.Is(err, payment.ErrInsufficientStock),
		errors.Is(err, payment.ErrInvalidPromoCode):
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request", err.Error()))
	case errors.Is(err, payment.ErrStatusCheckFailed):
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Status check failed", err.Error()))
	case errors.Is(err, gateway.ErrGatewayRequest),
		errors.Is(err, gateway.ErrGatewayUnavailable):
		h.Logger.Error("API", "gateway failure: "+err.Error())
		writeJSON(w, http.StatusBadGateway, utils.ErrorResponse("Payment gateway failure", err.Error()))
	default:
		h.Logger.Error("API", "payment request failed: "+err.Error())
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Payment processing failed", err.Error()))
	}
}

func listQueryFromRequest(r *http.Request) models.ListQuery {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return models.ListQuery{Page: page, Limit: limit}.Normalize()
}

func writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
