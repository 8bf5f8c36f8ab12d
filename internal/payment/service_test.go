package payment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ms-payments/internal/logger"
	"ms-payments/internal/models"
	"ms-payments/internal/payment"
	"ms-payments/internal/payment/gateway"
)

// Mock implementations

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) CreatePayment(p *models.Payment) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *MockDBLayer) GetPaymentByID(id int64, userID string) (*models.Payment, error) {
	args := m.Called(id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockDBLayer) GetPaymentByOrderID(orderID string) (*models.Payment, error) {
	args := m.Called(orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockDBLayer) ListPayments(query models.ListQuery, userID string) ([]models.Payment, models.ListMeta, error) {
	args := m.Called(query, userID)
	if args.Get(0) == nil {
		return nil, models.ListMeta{}, args.Error(2)
	}
	return args.Get(0).([]models.Payment), args.Get(1).(models.ListMeta), args.Error(2)
}

func (m *MockDBLayer) UpdatePaymentStatus(orderID string, status models.PaymentStatus) (*models.Payment, error) {
	args := m.Called(orderID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockDBLayer) GetTicketByID(id string) (*models.Ticket, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockDBLayer) GetUserByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockDBLayer) GetPromoCodeByCode(code string) (*models.PromoCode, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PromoCode), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateTransaction(ctx context.Context, charge *gateway.ChargeRequest) (*gateway.ChargeResponse, error) {
	args := m.Called(ctx, charge)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ChargeResponse), args.Error(1)
}

func (m *MockGateway) GetTransactionStatus(ctx context.Context, orderID string) (*gateway.TransactionStatus, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.TransactionStatus), args.Error(1)
}

type MockLock struct {
	mock.Mock
}

func (m *MockLock) Acquire(ctx context.Context, orderID string) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLock) Release(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishPaymentCreated(p models.Payment) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *MockPublisher) PublishPaymentStatusChanged(p models.Payment, oldStatus models.PaymentStatus) error {
	args := m.Called(p, oldStatus)
	return args.Error(0)
}

// Test fixtures

func newTestService(db *MockDBLayer, gw *MockGateway, lock *MockLock, pub *MockPublisher) *payment.PaymentService {
	return payment.NewPaymentService(db, gw, lock, pub, nil, logger.NewLogger(), 24*time.Hour)
}

func openLock() *MockLock {
	lock := new(MockLock)
	lock.On("Acquire", mock.Anything, mock.Anything).Return(true, nil)
	lock.On("Release", mock.Anything, mock.Anything).Return(nil)
	return lock
}

func testTicket() *models.Ticket {
	return &models.Ticket{
		ID:       "ticket001",
		EventID:  "event001",
		Name:     "Summer Fest - Regular",
		Category: "Regular",
		Price:    100000,
		Stock:    10,
	}
}

func testUser() *models.User {
	return &models.User{
		ID:          "user001",
		FullName:    "Alice Wonderland",
		Email:       "alice@example.com",
		PhoneNumber: "+628111111111",
	}
}

// ---------------- InitializePayment ----------------

func TestInitializePaymentSuccess(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)
	pub := new(MockPublisher)

	db.On("GetTicketByID", "ticket001").Return(testTicket(), nil)
	db.On("GetUserByID", "user001").Return(testUser(), nil)
	db.On("CreatePayment", mock.AnythingOfType("*models.Payment")).Return(nil)
	pub.On("PublishPaymentCreated", mock.AnythingOfType("models.Payment")).Return(nil)

	var captured *gateway.ChargeRequest
	gw.On("CreateTransaction", mock.Anything, mock.AnythingOfType("*gateway.ChargeRequest")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*gateway.ChargeRequest)
		}).
		Return(&gateway.ChargeResponse{Token: "tok_123", RedirectURL: "https://gateway.example/pay/tok_123"}, nil)

	svc := newTestService(db, gw, openLock(), pub)

	result, err := svc.InitializePayment(context.Background(), "user001", models.InitializePaymentRequest{
		TicketID: "ticket001",
		Quantity: 2,
	})

	assert.NoError(t, err)
	assert.Equal(t, "tok_123", result.TransactionToken)
	assert.Equal(t, "https://gateway.example/pay/tok_123", result.RedirectURL)
	assert.Equal(t, int64(200000), result.Payment.OriginalAmount)
	assert.Equal(t, int64(0), result.Payment.Discount)
	assert.Equal(t, int64(200000), result.Payment.Amount)
	assert.Equal(t, models.StatusPending, result.Payment.Status)
	assert.Regexp(t, `^ORDER-[0-9A-F]{10}$`, result.Payment.OrderID)

	// The gateway request must carry the ticket line item summing to the
	// gross amount.
	assert.Equal(t, int64(200000), captured.TransactionDetails.GrossAmount)
	assert.Len(t, captured.ItemDetails, 1)
	assert.Equal(t, int64(100000), captured.ItemDetails[0].Price)
	assert.Equal(t, 2, captured.ItemDetails[0].Quantity)
	assert.Equal(t, "Regular", captured.ItemDetails[0].Category)
	assert.Equal(t, "Alice", captured.CustomerDetails.FirstName)
	assert.Equal(t, "Wonderland", captured.CustomerDetails.LastName)

	db.AssertCalled(t, "CreatePayment", mock.AnythingOfType("*models.Payment"))
	pub.AssertCalled(t, "PublishPaymentCreated", mock.AnythingOfType("models.Payment"))
}

func TestInitializePaymentWithPromo(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)
	pub := new(MockPublisher)

	promo := &models.PromoCode{ID: "promo001", Code: "SUMMER20", Discount: 20}

	db.On("GetTicketByID", "ticket001").Return(testTicket(), nil)
	db.On("GetUserByID", "user001").Return(testUser(), nil)
	db.On("GetPromoCodeByCode", "SUMMER20").Return(promo, nil)
	db.On("CreatePayment", mock.AnythingOfType("*models.Payment")).Return(nil)
	pub.On("PublishPaymentCreated", mock.AnythingOfType("models.Payment")).Return(nil)

	var captured *gateway.ChargeRequest
	gw.On("CreateTransaction", mock.Anything, mock.AnythingOfType("*gateway.ChargeRequest")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*gateway.ChargeRequest)
		}).
		Return(&gateway.ChargeResponse{Token: "tok_456", RedirectURL: "https://gateway.example/pay/tok_456"}, nil)

	svc := newTestService(db, gw, openLock(), pub)

	result, err := svc.InitializePayment(context.Background(), "user001", models.InitializePaymentRequest{
		TicketID:  "ticket001",
		Quantity:  2,
		PromoCode: "SUMMER20",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(200000), result.Payment.OriginalAmount)
	assert.Equal(t, int64(40000), result.Payment.Discount)
	assert.Equal(t, int64(160000), result.Payment.Amount)

	assert.Equal(t, int64(160000), captured.TransactionDetails.GrossAmount)
	assert.Len(t, captured.ItemDetails, 2)
	discountItem := captured.ItemDetails[1]
	assert.Equal(t, "DISCOUNT", discountItem.ID)
	assert.Equal(t, int64(-40000), discountItem.Price)
	assert.Equal(t, 1, discountItem.Quantity)
	assert.Equal(t, "Promo: SUMMER20", discountItem.Name)
	assert.Equal(t, "Discount", discountItem.Category)

	// Item prices still sum to the gross amount.
	var sum int64
	for _, item := range captured.ItemDetails {
		sum += item.Price * int64(item.Quantity)
	}
	assert.Equal(t, captured.TransactionDetails.GrossAmount, sum)
}

func TestInitializePaymentTicketNotFound(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)

	db.On("GetTicketByID", "missing").Return(nil, nil)

	svc := newTestService(db, gw, openLock(), new(MockPublisher))

	_, err := svc.InitializePayment(context.Background(), "user001", models.InitializePaymentRequest{
		TicketID: "missing",
		Quantity: 1,
	})

	assert.ErrorIs(t, err, payment.ErrTicketNotFound)
	gw.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything)
}

func TestInitializePaymentUserNotFound(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)

	db.On("GetTicketByID", "ticket001").Return(testTicket(), nil)
	db.On("GetUserByID", "ghost").Return(nil, nil)

	svc := newTestService(db, gw, openLock(), new(MockPublisher))

	_, err := svc.InitializePayment(context.Background(), "ghost", models.InitializePaymentRequest{
		TicketID: "ticket001",
		Quantity: 1,
	})

	assert.ErrorIs(t, err, payment.ErrUserNotFound)
}

func TestInitializePaymentStockBoundary(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)
	pub := new(MockPublisher)

	db.On("GetTicketByID", "ticket001").Return(testTicket(), nil)
	db.On("GetUserByID", "user001").Return(testUser(), nil)
	db.On("CreatePayment", mock.AnythingOfType("*models.Payment")).Return(nil)
	pub.On("PublishPaymentCreated", mock.AnythingOfType("models.Payment")).Return(nil)
	gw.On("CreateTransaction", mock.Anything, mock.Anything).
		Return(&gateway.ChargeResponse{Token: "tok", RedirectURL: "https://gateway.example/pay"}, nil)

	svc := newTestService(db, gw, openLock(), pub)

	// One above stock fails.
	_, err := svc.InitializePayment(context.Background(), "user001", models.InitializePaymentRequest{
		TicketID: "ticket001",
		Quantity: 11,
	})
	assert.ErrorIs(t, err, payment.ErrInsufficientStock)

	// Exactly the stock succeeds.
	_, err = svc.InitializePayment(context.Background(), "user001", models.InitializePaymentRequest{
		TicketID: "ticket001",
		Quantity: 10,
	})
	assert.NoError(t, err)
}

func TestInitializePaymentInvalidPromo(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)

	db.On("GetTicketByID", "ticket001").Return(testTicket(), nil)
	db.On("GetUserByID", "user001").Return(testUser(), nil)
	db.On("GetPromoCodeByCode", "NOPE").Return(nil, nil)

	svc := newTestService(db, gw, openLock(), new(MockPublisher))

	_, err := svc.InitializePayment(context.Background(), "user001", models.InitializePaymentRequest{
		TicketID:  "ticket001",
		Quantity:  1,
		PromoCode: "NOPE",
	})

	assert.ErrorIs(t, err, payment.ErrInvalidPromoCode)
	gw.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything)
}

func TestInitializePaymentGatewayFailurePropagated(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)

	gatewayErr := errors.New("gateway request failed: status 500")

	db.On("GetTicketByID", "ticket001").Return(testTicket(), nil)
	db.On("GetUserByID", "user001").Return(testUser(), nil)
	gw.On("CreateTransaction", mock.Anything, mock.Anything).Return(nil, gatewayErr)

	svc := newTestService(db, gw, openLock(), new(MockPublisher))

	_, err := svc.InitializePayment(context.Background(), "user001", models.InitializePaymentRequest{
		TicketID: "ticket001",
		Quantity: 1,
	})

	assert.Equal(t, gatewayErr, err)
	// No partial persistence when the gateway refuses the charge.
	db.AssertNotCalled(t, "CreatePayment", mock.Anything)
}

// ---------------- CheckAndUpdatePaymentStatus ----------------

func pendingPayment(orderID string, age time.Duration) *models.Payment {
	return &models.Payment{
		ID:             1,
		OrderID:        orderID,
		OriginalAmount: 200000,
		Discount:       0,
		Amount:         200000,
		Status:         models.StatusPending,
		TicketID:       "ticket001",
		UserID:         "user001",
		Quantity:       2,
		PaymentDate:    time.Now().Add(-age),
	}
}

func TestCheckStatusTerminalShortCircuit(t *testing.T) {
	for _, status := range []models.PaymentStatus{models.StatusSuccess, models.StatusFailed} {
		db := new(MockDBLayer)
		gw := new(MockGateway)

		stored := pendingPayment("ORDER-AAAAAAAAAA", time.Hour)
		stored.Status = status
		db.On("GetPaymentByOrderID", "ORDER-AAAAAAAAAA").Return(stored, nil)

		svc := newTestService(db, gw, openLock(), new(MockPublisher))

		result, err := svc.CheckAndUpdatePaymentStatus(context.Background(), "ORDER-AAAAAAAAAA")

		assert.NoError(t, err)
		assert.Equal(t, status, result.Status)
		gw.AssertNotCalled(t, "GetTransactionStatus", mock.Anything, mock.Anything)
		db.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything)
	}
}

func TestCheckStatusSettlementTransition(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)
	pub := new(MockPublisher)

	stored := pendingPayment("ORDER-BBBBBBBBBB", time.Hour)
	updated := *stored
	updated.Status = models.StatusSuccess

	db.On("GetPaymentByOrderID", "ORDER-BBBBBBBBBB").Return(stored, nil)
	db.On("UpdatePaymentStatus", "ORDER-BBBBBBBBBB", models.StatusSuccess).Return(&updated, nil)
	gw.On("GetTransactionStatus", mock.Anything, "ORDER-BBBBBBBBBB").
		Return(&gateway.TransactionStatus{OrderID: "ORDER-BBBBBBBBBB", TransactionStatus: "settlement"}, nil)
	pub.On("PublishPaymentStatusChanged", mock.AnythingOfType("models.Payment"), models.StatusPending).Return(nil)

	svc := newTestService(db, gw, openLock(), pub)

	result, err := svc.CheckAndUpdatePaymentStatus(context.Background(), "ORDER-BBBBBBBBBB")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, result.Status)
	db.AssertCalled(t, "UpdatePaymentStatus", "ORDER-BBBBBBBBBB", models.StatusSuccess)
	pub.AssertCalled(t, "PublishPaymentStatusChanged", mock.AnythingOfType("models.Payment"), models.StatusPending)
}

func TestCheckStatusCaptureChallenge(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)
	pub := new(MockPublisher)

	stored := pendingPayment("ORDER-CCCCCCCCCC", time.Hour)
	updated := *stored
	updated.Status = models.StatusChallenge

	db.On("GetPaymentByOrderID", "ORDER-CCCCCCCCCC").Return(stored, nil)
	db.On("UpdatePaymentStatus", "ORDER-CCCCCCCCCC", models.StatusChallenge).Return(&updated, nil)
	gw.On("GetTransactionStatus", mock.Anything, "ORDER-CCCCCCCCCC").
		Return(&gateway.TransactionStatus{OrderID: "ORDER-CCCCCCCCCC", TransactionStatus: "capture", FraudStatus: "challenge"}, nil)
	pub.On("PublishPaymentStatusChanged", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(db, gw, openLock(), pub)

	result, err := svc.CheckAndUpdatePaymentStatus(context.Background(), "ORDER-CCCCCCCCCC")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusChallenge, result.Status)
}

func TestCheckStatusStillPendingNoWrite(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)

	stored := pendingPayment("ORDER-DDDDDDDDDD", time.Hour)
	db.On("GetPaymentByOrderID", "ORDER-DDDDDDDDDD").Return(stored, nil)
	gw.On("GetTransactionStatus", mock.Anything, "ORDER-DDDDDDDDDD").
		Return(&gateway.TransactionStatus{OrderID: "ORDER-DDDDDDDDDD", TransactionStatus: "authorize"}, nil)

	svc := newTestService(db, gw, openLock(), new(MockPublisher))

	result, err := svc.CheckAndUpdatePaymentStatus(context.Background(), "ORDER-DDDDDDDDDD")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, result.Status)
	db.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything)
}

func TestCheckStatusChallengeUnmappedStateKeepsChallenge(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)

	stored := pendingPayment("ORDER-DDDDDDDDDE", time.Hour)
	stored.Status = models.StatusChallenge
	db.On("GetPaymentByOrderID", "ORDER-DDDDDDDDDE").Return(stored, nil)
	gw.On("GetTransactionStatus", mock.Anything, "ORDER-DDDDDDDDDE").
		Return(&gateway.TransactionStatus{OrderID: "ORDER-DDDDDDDDDE", TransactionStatus: "authorize"}, nil)

	svc := newTestService(db, gw, openLock(), new(MockPublisher))

	result, err := svc.CheckAndUpdatePaymentStatus(context.Background(), "ORDER-DDDDDDDDDE")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusChallenge, result.Status)
	db.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything)
}

func TestCheckStatusStalenessFallback(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)
	pub := new(MockPublisher)

	stored := pendingPayment("ORDER-EEEEEEEEEE", 25*time.Hour)
	updated := *stored
	updated.Status = models.StatusFailed

	db.On("GetPaymentByOrderID", "ORDER-EEEEEEEEEE").Return(stored, nil)
	db.On("UpdatePaymentStatus", "ORDER-EEEEEEEEEE", models.StatusFailed).Return(&updated, nil)
	gw.On("GetTransactionStatus", mock.Anything, "ORDER-EEEEEEEEEE").
		Return(nil, errors.New("gateway unreachable"))
	pub.On("PublishPaymentStatusChanged", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(db, gw, openLock(), pub)

	result, err := svc.CheckAndUpdatePaymentStatus(context.Background(), "ORDER-EEEEEEEEEE")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusFailed, result.Status)
	db.AssertCalled(t, "UpdatePaymentStatus", "ORDER-EEEEEEEEEE", models.StatusFailed)
}

func TestCheckStatusRecentOutageKeepsPending(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)

	stored := pendingPayment("ORDER-FFFFFFFFFF", time.Hour)
	db.On("GetPaymentByOrderID", "ORDER-FFFFFFFFFF").Return(stored, nil)
	gw.On("GetTransactionStatus", mock.Anything, "ORDER-FFFFFFFFFF").
		Return(nil, errors.New("gateway unreachable"))

	svc := newTestService(db, gw, openLock(), new(MockPublisher))

	result, err := svc.CheckAndUpdatePaymentStatus(context.Background(), "ORDER-FFFFFFFFFF")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, result.Status)
	db.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything)
}

func TestCheckStatusPaymentNotFound(t *testing.T) {
	db := new(MockDBLayer)
	db.On("GetPaymentByOrderID", "ORDER-0000000000").Return(nil, nil)

	svc := newTestService(db, new(MockGateway), openLock(), new(MockPublisher))

	_, err := svc.CheckAndUpdatePaymentStatus(context.Background(), "ORDER-0000000000")

	assert.ErrorIs(t, err, payment.ErrPaymentNotFound)
}

func TestCheckStatusLockHeldSkipsGateway(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)
	lock := new(MockLock)

	stored := pendingPayment("ORDER-GGGGGGGGGG", time.Hour)
	db.On("GetPaymentByOrderID", "ORDER-GGGGGGGGGG").Return(stored, nil)
	lock.On("Acquire", mock.Anything, "ORDER-GGGGGGGGGG").Return(false, nil)

	svc := newTestService(db, gw, lock, new(MockPublisher))

	result, err := svc.CheckAndUpdatePaymentStatus(context.Background(), "ORDER-GGGGGGGGGG")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, result.Status)
	gw.AssertNotCalled(t, "GetTransactionStatus", mock.Anything, mock.Anything)
}

func TestCheckStatusUpdateFailureWrapped(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)

	stored := pendingPayment("ORDER-HHHHHHHHHH", time.Hour)
	db.On("GetPaymentByOrderID", "ORDER-HHHHHHHHHH").Return(stored, nil)
	db.On("UpdatePaymentStatus", "ORDER-HHHHHHHHHH", models.StatusSuccess).
		Return(nil, errors.New("write conflict"))
	gw.On("GetTransactionStatus", mock.Anything, "ORDER-HHHHHHHHHH").
		Return(&gateway.TransactionStatus{TransactionStatus: "settlement"}, nil)

	svc := newTestService(db, gw, openLock(), new(MockPublisher))

	_, err := svc.CheckAndUpdatePaymentStatus(context.Background(), "ORDER-HHHHHHHHHH")

	assert.ErrorIs(t, err, payment.ErrStatusCheckFailed)
	assert.Contains(t, err.Error(), "write conflict")
}

// ---------------- List operations ----------------

func TestGetAllPaymentsResilientToReconcileFailure(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)
	pub := new(MockPublisher)

	bad := pendingPayment("ORDER-1111111111", time.Hour)
	good := pendingPayment("ORDER-2222222222", time.Hour)
	goodUpdated := *good
	goodUpdated.Status = models.StatusSuccess

	page := []models.Payment{*bad, *good}
	refreshed := []models.Payment{*bad, goodUpdated}
	meta := models.ListMeta{Page: 1, Limit: 10, Total: 2, TotalPages: 1}

	db.On("ListPayments", mock.Anything, "").Return(page, meta, nil).Once()
	db.On("GetPaymentByOrderID", "ORDER-1111111111").Return(bad, nil)
	db.On("GetPaymentByOrderID", "ORDER-2222222222").Return(good, nil)
	// Reconciling the first record blows up on the store write; the list call
	// must survive it.
	db.On("UpdatePaymentStatus", "ORDER-1111111111", models.StatusSuccess).
		Return(nil, errors.New("write conflict"))
	db.On("UpdatePaymentStatus", "ORDER-2222222222", models.StatusSuccess).
		Return(&goodUpdated, nil)
	db.On("ListPayments", mock.Anything, "").Return(refreshed, meta, nil).Once()

	gw.On("GetTransactionStatus", mock.Anything, mock.Anything).
		Return(&gateway.TransactionStatus{TransactionStatus: "settlement"}, nil)
	pub.On("PublishPaymentStatusChanged", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(db, gw, openLock(), pub)

	list, err := svc.GetAllPayments(context.Background(), models.ListQuery{Page: 1, Limit: 10})

	assert.NoError(t, err)
	assert.Len(t, list.Payments, 2)
	assert.Equal(t, 2, list.Meta.Total)
}

func TestReconcilePendingOutcomes(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)
	pub := new(MockPublisher)

	done := pendingPayment("ORDER-3333333333", time.Hour)
	done.Status = models.StatusSuccess
	ok := pendingPayment("ORDER-4444444444", time.Hour)
	okUpdated := *ok
	okUpdated.Status = models.StatusSuccess
	broken := pendingPayment("ORDER-5555555555", time.Hour)

	db.On("GetPaymentByOrderID", "ORDER-4444444444").Return(ok, nil)
	db.On("GetPaymentByOrderID", "ORDER-5555555555").Return(broken, nil)
	db.On("UpdatePaymentStatus", "ORDER-4444444444", models.StatusSuccess).Return(&okUpdated, nil)
	db.On("UpdatePaymentStatus", "ORDER-5555555555", models.StatusSuccess).
		Return(nil, errors.New("write conflict"))
	gw.On("GetTransactionStatus", mock.Anything, mock.Anything).
		Return(&gateway.TransactionStatus{TransactionStatus: "settlement"}, nil)
	pub.On("PublishPaymentStatusChanged", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(db, gw, openLock(), pub)

	outcomes := svc.ReconcilePending(context.Background(), []models.Payment{*done, *ok, *broken})

	// Terminal records are skipped entirely; the rest each get an outcome.
	assert.Len(t, outcomes, 2)
	assert.Equal(t, "ORDER-4444444444", outcomes[0].OrderID)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, "ORDER-5555555555", outcomes[1].OrderID)
	assert.ErrorIs(t, outcomes[1].Err, payment.ErrStatusCheckFailed)
}

func TestGetUserPaymentHistoryScopesToUser(t *testing.T) {
	db := new(MockDBLayer)

	meta := models.ListMeta{Page: 1, Limit: 10, Total: 0, TotalPages: 0}
	db.On("ListPayments", mock.Anything, "user001").Return([]models.Payment{}, meta, nil)

	svc := newTestService(db, new(MockGateway), openLock(), new(MockPublisher))

	list, err := svc.GetUserPaymentHistory(context.Background(), "user001", models.ListQuery{})

	assert.NoError(t, err)
	assert.Empty(t, list.Payments)
	db.AssertCalled(t, "ListPayments", mock.Anything, "user001")
}

func TestGetPaymentByIDReturnsStoredOnReconcileFailure(t *testing.T) {
	db := new(MockDBLayer)
	gw := new(MockGateway)

	stored := pendingPayment("ORDER-6666666666", time.Hour)
	db.On("GetPaymentByID", int64(1), "user001").Return(stored, nil)
	db.On("GetPaymentByOrderID", "ORDER-6666666666").Return(stored, nil)
	db.On("UpdatePaymentStatus", "ORDER-6666666666", models.StatusSuccess).
		Return(nil, errors.New("write conflict"))
	gw.On("GetTransactionStatus", mock.Anything, "ORDER-6666666666").
		Return(&gateway.TransactionStatus{TransactionStatus: "settlement"}, nil)

	svc := newTestService(db, gw, openLock(), new(MockPublisher))

	result, err := svc.GetPaymentByID(context.Background(), 1, "user001")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, result.Status)
}

func TestGetPaymentByIDNotFound(t *testing.T) {
	db := new(MockDBLayer)
	db.On("GetPaymentByID", int64(42), "").Return(nil, nil)

	svc := newTestService(db, new(MockGateway), openLock(), new(MockPublisher))

	_, err := svc.GetPaymentByID(context.Background(), 42, "")

	assert.ErrorIs(t, err, payment.ErrPaymentNotFound)
}
