package api

import (
	"context"
	"fmt"
	"net/http"
)

const (
	initiatePaymentPath = "/api/v1/payments/initiate"
	paymentStatusPath   = "/api/v1/payments/%s/status"
)

// PaymentStatus is the server-owned state of a push-payment attempt.
// The client observes it exclusively through polling; a client-side
// poll timeout is a distinct, client-only outcome and deliberately not
// part of this enum.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
)

// Terminal reports whether the backend will never move the payment
// past s.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed
}

// InitiatePaymentParams starts an STK-style push payment: the backend
// prompts the payer's phone for a PIN-confirmed payment. Amount is in
// whole currency units.
type InitiatePaymentParams struct {
	Amount      int    `json:"amount" validate:"required,gt=0"`
	Phone       string `json:"phone" validate:"required,e164"`
	Purpose     string `json:"purpose" validate:"required"`
	PropertyID  string `json:"property_id" validate:"required"`
	Description string `json:"description,omitempty"`
}

type InitiatePaymentResponse struct {
	PaymentID string `json:"payment_id"`
	Message   string `json:"message"`
}

// InitiatePayment requests the push payment and returns the
// server-assigned payment identifier used for status polling.
func (c *Client) InitiatePayment(ctx context.Context, p InitiatePaymentParams) (*InitiatePaymentResponse, error) {
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("invalid payment params: %w", err)
	}
	var resp InitiatePaymentResponse
	if err := c.doJSON(ctx, http.MethodPost, initiatePaymentPath, p, &resp); err != nil {
		return nil, fmt.Errorf("InitiatePayment error: %w", err)
	}
	return &resp, nil
}

// GetPaymentStatus fetches the current status of one payment attempt.
func (c *Client) GetPaymentStatus(ctx context.Context, paymentID string) (PaymentStatus, error) {
	var resp struct {
		Status PaymentStatus `json:"status"`
	}
	endpoint := fmt.Sprintf(paymentStatusPath, paymentID)
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", fmt.Errorf("GetPaymentStatus error: %w", err)
	}
	return resp.Status, nil
}
