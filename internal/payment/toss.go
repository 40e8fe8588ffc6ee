// Package payment confirms widget payments with Toss Payments.
package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bigmove/backend/internal/apperr"
)

type ConfirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

type Confirmation struct {
	PaymentKey  string `json:"paymentKey"`
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	Method      string `json:"method"`
	TotalAmount int64  `json:"totalAmount"`
	ApprovedAt  string `json:"approvedAt"`
}

// GatewayError is the error body Toss returns for rejected confirmations.
type GatewayError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("toss confirm status=%d code=%s: %s", e.Status, e.Code, e.Message)
}

// Unwrap classifies client errors as declines and the rest as upstream
// failures.
func (e *GatewayError) Unwrap() error {
	if e.Status >= 400 && e.Status < 500 {
		return apperr.ErrPaymentDeclined
	}
	return apperr.ErrUpstream
}

type TossClient struct {
	secretKey  string
	confirmURL string
	client     *http.Client
}

func NewTossClient(secretKey, confirmURL string) *TossClient {
	return &TossClient{
		secretKey:  strings.TrimSpace(secretKey),
		confirmURL: strings.TrimSpace(confirmURL),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Confirm approves a payment. The order id doubles as the idempotency key.
func (c *TossClient) Confirm(ctx context.Context, in ConfirmRequest) (*Confirmation, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.confirmURL, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.secretKey + ":"))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", in.OrderID)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("toss confirm: %w: %v", apperr.ErrUpstream, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("toss confirm read: %w: %v", apperr.ErrUpstream, err)
	}
	if res.StatusCode != http.StatusOK {
		ge := &GatewayError{Status: res.StatusCode}
		_ = json.Unmarshal(body, ge)
		return nil, ge
	}

	var out Confirmation
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("toss confirm decode: %w: %v", apperr.ErrUpstream, err)
	}
	return &out, nil
}
