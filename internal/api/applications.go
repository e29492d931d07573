package api

import (
	"context"
	"fmt"
	"strconv"
)

const createApplicationPath = "/api/v1/applications"

// CreateApplicationParams is the full tenancy application: identity
// fields, both ID documents, the signed agreement when the property
// requires one, and the completed payment reference when the property
// charges an agreement fee.
type CreateApplicationParams struct {
	FirstName       string
	LastName        string
	DocumentNumber  string
	Phone           string
	PropertyID      string
	PaymentID       string // empty when the property has no agreement fee
	Consent         bool
	FrontDocument   Attachment
	BackDocument    Attachment
	SignedAgreement *Attachment // nil when the property has no agreement template
}

type CreateApplicationResponse struct {
	ApplicationID string `json:"application_id"`
	Message       string `json:"message"`
}

// CreateApplication posts the assembled tenancy application as one
// multipart submission.
func (c *Client) CreateApplication(ctx context.Context, p CreateApplicationParams) (*CreateApplicationResponse, error) {
	fields := []multipartField{
		{Name: "first_name", Value: p.FirstName},
		{Name: "last_name", Value: p.LastName},
		{Name: "document_number", Value: p.DocumentNumber},
		{Name: "phone", Value: p.Phone},
		{Name: "property_id", Value: p.PropertyID},
		{Name: "consent", Value: strconv.FormatBool(p.Consent)},
	}
	if p.PaymentID != "" {
		fields = append(fields, multipartField{Name: "payment_id", Value: p.PaymentID})
	}

	files := []multipartFile{
		{Name: "document_front", Attachment: p.FrontDocument},
		{Name: "document_back", Attachment: p.BackDocument},
	}
	if p.SignedAgreement != nil {
		files = append(files, multipartFile{Name: "signed_agreement", Attachment: *p.SignedAgreement})
	}

	var resp CreateApplicationResponse
	if err := c.doMultipart(ctx, createApplicationPath, fields, files, &resp); err != nil {
		return nil, fmt.Errorf("CreateApplication error: %w", err)
	}
	return &resp, nil
}
