package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

const (
	sendCodePath  = "/api/v1/verification/send-code"
	submitKYCPath = "/api/v1/verification/submit"
)

// SendCodeResponse carries the opaque code-session token the backend
// issues for one phone number. The token must travel back with the
// final KYC submit together with the code the user received.
type SendCodeResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

type sendCodeRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

// SendVerificationCode asks the backend to deliver a one-time code to
// phone. The workflow has already enforced the international prefix;
// the struct tags are the last line before bytes leave the client.
func (c *Client) SendVerificationCode(ctx context.Context, phone string) (*SendCodeResponse, error) {
	body := sendCodeRequest{Phone: phone}
	if err := validate.Struct(body); err != nil {
		return nil, fmt.Errorf("invalid phone number: %w", err)
	}
	var resp SendCodeResponse
	if err := c.doJSON(ctx, http.MethodPost, sendCodePath, body, &resp); err != nil {
		return nil, fmt.Errorf("SendVerificationCode error: %w", err)
	}
	return &resp, nil
}

// SubmitVerificationParams is the full KYC submission: identity fields,
// both document images, the one-time code and its session token, and
// the irrevocable consent flag.
type SubmitVerificationParams struct {
	FirstName      string
	MiddleName     string
	LastName       string
	DocumentNumber string
	Phone          string
	Code           string
	CodeToken      string
	Consent        bool
	FrontDocument  Attachment
	BackDocument   Attachment
}

type SubmitVerificationResponse struct {
	Message string `json:"message"`
}

// SubmitVerification posts the assembled KYC request as one multipart
// submission.
func (c *Client) SubmitVerification(ctx context.Context, p SubmitVerificationParams) (*SubmitVerificationResponse, error) {
	fields := []multipartField{
		{Name: "first_name", Value: p.FirstName},
		{Name: "middle_name", Value: p.MiddleName},
		{Name: "last_name", Value: p.LastName},
		{Name: "document_number", Value: p.DocumentNumber},
		{Name: "phone", Value: p.Phone},
		{Name: "code", Value: p.Code},
		{Name: "code_token", Value: p.CodeToken},
		{Name: "consent", Value: strconv.FormatBool(p.Consent)},
	}
	files := []multipartFile{
		{Name: "document_front", Attachment: p.FrontDocument},
		{Name: "document_back", Attachment: p.BackDocument},
	}

	var resp SubmitVerificationResponse
	if err := c.doMultipart(ctx, submitKYCPath, fields, files, &resp); err != nil {
		return nil, fmt.Errorf("SubmitVerification error: %w", err)
	}
	return &resp, nil
}
