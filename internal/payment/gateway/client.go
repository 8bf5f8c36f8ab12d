package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ms-payments/internal/config"
	"ms-payments/internal/logger"
)

var (
	ErrGatewayRequest     = errors.New("gateway request failed")
	ErrGatewayUnavailable = errors.New("gateway unreachable")
)

// Client talks to the payment gateway's Snap-style HTTP API. The checkout UI
// itself is hosted by the gateway; we only create transactions and poll their
// authoritative status.
type Client struct {
	baseURL   string
	serverKey string
	http      *http.Client
	log       *logger.Logger
}

func NewClient(cfg config.GatewayConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		serverKey: cfg.ServerKey,
		http:      &http.Client{Timeout: cfg.Timeout},
		log:       log,
	}
}

// CreateTransaction registers the transaction with the gateway and returns
// the checkout token and hosted redirect URL.
func (c *Client) CreateTransaction(ctx context.Context, charge *ChargeRequest) (*ChargeResponse, error) {
	body, err := json.Marshal(charge)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal charge request: %v", ErrGatewayRequest, err)
	}

	url := c.baseURL + "/snap/v1/transactions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.serverKey, "")

	c.log.LogGateway("CHARGE", charge.TransactionDetails.OrderID,
		fmt.Sprintf("creating transaction for gross amount %d", charge.TransactionDetails.GrossAmount))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrGatewayRequest, resp.StatusCode, string(payload))
	}

	var out ChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode charge response: %v", ErrGatewayRequest, err)
	}
	return &out, nil
}

// GetTransactionStatus asks the gateway for the current transaction state of
// an order.
func (c *Client) GetTransactionStatus(ctx context.Context, orderID string) (*TransactionStatus, error) {
	url := fmt.Sprintf("%s/v2/%s/status", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.serverKey, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrGatewayRequest, resp.StatusCode, string(payload))
	}

	var out TransactionStatus
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode status response: %v", ErrGatewayRequest, err)
	}
	return &out, nil
}
