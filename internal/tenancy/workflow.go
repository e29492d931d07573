// Package tenancy drives a tenant through applying for a property: an
// optional agreement-fee payment confirmed by polling, then identity
// and document capture, then submission. The payment gate is decided by
// the target property, not the user.
package tenancy

import (
	"context"
	"fmt"
	"time"

	"github.com/wachira567/victorsprings-client/internal/api"
	"github.com/wachira567/victorsprings-client/internal/notify"
	"github.com/wachira567/victorsprings-client/internal/session"
	"github.com/wachira567/victorsprings-client/internal/utils"
)

// State is the client-side position in the application machine.
type State string

const (
	StatePayment State = "payment"
	StateForm    State = "form"
	StateSuccess State = "success"
)

// Property is the slice of the target property listing the workflow
// needs: the fee that gates entry and the template that makes a signed
// agreement mandatory.
type Property struct {
	ID                   string
	AgreementFee         int // whole currency units; zero means no payment gate
	AgreementTemplateURL string
}

func (p Property) HasFee() bool            { return p.AgreementFee > 0 }
func (p Property) RequiresAgreement() bool { return p.AgreementTemplateURL != "" }

// Draft is the client-held application being assembled.
type Draft struct {
	FirstName      string
	LastName       string
	DocumentNumber string
	Phone          string

	FrontDocument   *api.Attachment
	BackDocument    *api.Attachment
	SignedAgreement *api.Attachment

	Consent bool
}

// Backend is the slice of the API client this workflow drives.
type Backend interface {
	InitiatePayment(ctx context.Context, p api.InitiatePaymentParams) (*api.InitiatePaymentResponse, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (api.PaymentStatus, error)
	CreateApplication(ctx context.Context, p api.CreateApplicationParams) (*api.CreateApplicationResponse, error)
}

const (
	paymentPurposeAgreementFee = "agreement_fee"

	fallbackInitiatePayment = "We could not start the payment. Please try again."
	fallbackCreateApp       = "We could not submit your application. Please try again."

	// Failed and timed-out payments return the user to the same step
	// but mean different next actions, so the copy stays distinct.
	msgPaymentFailed  = "Payment failed or was cancelled. Please try again."
	msgPaymentTimeout = "We could not confirm your payment in time. If you completed the prompt, please wait a moment and try again."
	msgPaymentPrompt  = "Check your phone and enter your PIN to approve the payment."
)

// Workflow is one application attempt against one property. Not safe
// for concurrent use; re-entrancy is gated by the submitting flag.
type Workflow struct {
	backend  Backend
	sess     *session.Session
	notifier notify.Notifier
	property Property

	pollInterval    time.Duration
	pollMaxAttempts int

	// OnClose fires when the user dismisses the terminal success
	// state, typically closing the modal. May be nil.
	OnClose func()

	state      State
	draft      Draft
	paymentID  string
	submitting bool
	poller     *Poller
}

func NewWorkflow(backend Backend, sess *session.Session, notifier notify.Notifier, property Property, pollInterval time.Duration, pollMaxAttempts int) *Workflow {
	return &Workflow{
		backend:         backend,
		sess:            sess,
		notifier:        notifier,
		property:        property,
		pollInterval:    pollInterval,
		pollMaxAttempts: pollMaxAttempts,
	}
}

// Start positions the machine: properties with an agreement fee enter
// at the payment step, everything else goes straight to the form.
func (w *Workflow) Start() (State, error) {
	if w.sess.Expired() {
		return "", utils.ErrSessionExpired
	}
	if w.property.HasFee() {
		w.state = StatePayment
	} else {
		w.state = StateForm
	}
	return w.state, nil
}

func (w *Workflow) State() State      { return w.state }
func (w *Workflow) Draft() *Draft     { return &w.draft }
func (w *Workflow) PaymentID() string { return w.paymentID }

// ConfirmPayment initiates the push payment and blocks on the polling
// coordinator until it resolves. The payment control stays disabled
// (submitting) for the whole run, so no duplicate initiation can fire.
func (w *Workflow) ConfirmPayment(ctx context.Context, payerPhone string) error {
	if w.state != StatePayment {
		return utils.ErrInvalidTransition
	}
	if w.submitting {
		return utils.ErrAlreadySubmitting
	}
	if !utils.HasIntlPrefix(payerPhone) || !utils.IsE164(payerPhone) {
		w.notifier.Error("Please enter the paying phone number in international format, e.g. +254712345678.")
		return utils.ErrInvalidPhone
	}

	w.submitting = true
	defer func() { w.submitting = false }()

	resp, err := w.backend.InitiatePayment(ctx, api.InitiatePaymentParams{
		Amount:      w.property.AgreementFee,
		Phone:       payerPhone,
		Purpose:     paymentPurposeAgreementFee,
		PropertyID:  w.property.ID,
		Description: fmt.Sprintf("Agreement fee for property %s", w.property.ID),
	})
	if err != nil {
		w.notifier.Error(api.UserMessage(err, fallbackInitiatePayment))
		return err
	}

	w.paymentID = resp.PaymentID
	w.notifier.Info(msgPaymentPrompt)

	outcome, err := w.awaitPayment(ctx, resp.PaymentID)
	if err != nil {
		return err
	}

	switch outcome {
	case OutcomeCompleted:
		w.state = StateForm
		w.notifier.Success("Payment received.")
		return nil
	case OutcomeFailed:
		w.paymentID = ""
		w.notifier.Error(msgPaymentFailed)
		return utils.ErrPaymentRequired
	default:
		w.paymentID = ""
		w.notifier.Error(msgPaymentTimeout)
		return utils.ErrPaymentRequired
	}
}

// awaitPayment runs the polling coordinator inline. Teardown through
// Close cancels it; a canceled run surfaces as the context error.
func (w *Workflow) awaitPayment(ctx context.Context, paymentID string) (Outcome, error) {
	resolved := make(chan Outcome, 1)

	w.poller = NewPoller(w.backend, w.pollInterval, w.pollMaxAttempts)
	w.poller.Start(ctx, paymentID, func(o Outcome) { resolved <- o })

	select {
	case o := <-resolved:
		return o, nil
	case <-w.poller.Done():
		// The goroutine may have resolved and exited before this
		// select ran; prefer the outcome if one was delivered.
		select {
		case o := <-resolved:
			return o, nil
		default:
		}
		// Canceled before resolution (teardown or parent context).
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", context.Canceled
	}
}

// UpdateDetails records the identity fields.
func (w *Workflow) UpdateDetails(first, last, documentNumber, phone string) {
	w.draft.FirstName = first
	w.draft.LastName = last
	w.draft.DocumentNumber = documentNumber
	w.draft.Phone = phone
}

// AttachFront replaces the front ID document.
func (w *Workflow) AttachFront(att api.Attachment) { w.draft.FrontDocument = &att }

// AttachBack replaces the back ID document.
func (w *Workflow) AttachBack(att api.Attachment) { w.draft.BackDocument = &att }

// AttachSignedAgreement replaces the signed agreement document.
func (w *Workflow) AttachSignedAgreement(att api.Attachment) { w.draft.SignedAgreement = &att }

// SetConsent records the consent flag.
func (w *Workflow) SetConsent(consent bool) { w.draft.Consent = consent }

// SubmitForm validates the form step and posts the application as one
// multipart submission. No network call is made unless every gate
// passes, including the completed-payment invariant for fee-charging
// properties.
func (w *Workflow) SubmitForm(ctx context.Context) error {
	if w.state != StateForm {
		return utils.ErrInvalidTransition
	}
	if w.submitting {
		return utils.ErrAlreadySubmitting
	}
	if err := w.validateForm(); err != nil {
		return err
	}

	w.submitting = true
	defer func() { w.submitting = false }()

	resp, err := w.backend.CreateApplication(ctx, api.CreateApplicationParams{
		FirstName:       w.draft.FirstName,
		LastName:        w.draft.LastName,
		DocumentNumber:  w.draft.DocumentNumber,
		Phone:           w.draft.Phone,
		PropertyID:      w.property.ID,
		PaymentID:       w.paymentID,
		Consent:         w.draft.Consent,
		FrontDocument:   *w.draft.FrontDocument,
		BackDocument:    *w.draft.BackDocument,
		SignedAgreement: w.draft.SignedAgreement,
	})
	if err != nil {
		w.notifier.Error(api.UserMessage(err, fallbackCreateApp))
		return err
	}

	w.state = StateSuccess
	if resp.Message != "" {
		w.notifier.Success(resp.Message)
	} else {
		w.notifier.Success("Your application has been submitted.")
	}
	return nil
}

func (w *Workflow) validateForm() error {
	switch {
	case w.draft.FirstName == "":
		w.notifier.Error("Please enter your first name.")
		return utils.ErrMissingField
	case w.draft.LastName == "":
		w.notifier.Error("Please enter your last name.")
		return utils.ErrMissingField
	case w.draft.DocumentNumber == "":
		w.notifier.Error("Please enter your national ID or passport number.")
		return utils.ErrMissingField
	}
	if !utils.HasIntlPrefix(w.draft.Phone) || !utils.IsE164(w.draft.Phone) {
		w.notifier.Error("Please enter your phone number in international format, e.g. +254712345678.")
		return utils.ErrInvalidPhone
	}
	if w.draft.FrontDocument == nil || w.draft.BackDocument == nil {
		w.notifier.Error("Please attach both the front and the back of your ID document.")
		return utils.ErrMissingDocument
	}
	if w.property.RequiresAgreement() && w.draft.SignedAgreement == nil {
		w.notifier.Error("Please upload the signed agreement for this property.")
		return utils.ErrMissingAgreement
	}
	if w.property.HasFee() && w.paymentID == "" {
		w.notifier.Error("Please complete the agreement fee payment first.")
		return utils.ErrPaymentRequired
	}
	if !w.draft.Consent {
		w.notifier.Error("Please confirm that your information is accurate before submitting.")
		return utils.ErrConsentRequired
	}
	return nil
}

// CloseSuccess dismisses the terminal success state.
func (w *Workflow) CloseSuccess() error {
	if w.state != StateSuccess {
		return utils.ErrInvalidTransition
	}
	if w.OnClose != nil {
		w.OnClose()
	}
	return nil
}

// Close tears the workflow down. Any active polling run is canceled so
// no periodic work outlives the owning screen.
func (w *Workflow) Close() {
	if w.poller != nil {
		w.poller.Cancel()
	}
}
