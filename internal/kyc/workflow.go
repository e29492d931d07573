// Package kyc drives a landlord through identity verification: personal
// details, phone one-time-code, document capture and consent, ending in
// a server-side "pending review" state. The backend decides verified or
// rejected; this workflow only ever produces a pending request.
package kyc

import (
	"context"
	"regexp"

	"github.com/wachira567/victorsprings-client/internal/api"
	"github.com/wachira567/victorsprings-client/internal/notify"
	"github.com/wachira567/victorsprings-client/internal/session"
	"github.com/wachira567/victorsprings-client/internal/utils"
)

// State is the client-side position in the verification machine.
type State string

const (
	StateDetails   State = "details"
	StateOtpVerify State = "otp_verify"
	StateConsent   State = "consent"
	StatePending   State = "pending"
)

// Gate is the entry decision taken from the externally observed
// verification status before the machine is entered at all.
type Gate string

const (
	// GateHidden: already verified, render nothing.
	GateHidden Gate = "hidden"
	// GateUnderReview: a submitted request awaits an administrator.
	GateUnderReview Gate = "under_review"
	// GateRejected: static notice plus a restart action.
	GateRejected Gate = "rejected"
	// GateEnter: the workflow starts at the details step.
	GateEnter Gate = "enter"
)

// Backend is the slice of the API client this workflow drives.
type Backend interface {
	SendVerificationCode(ctx context.Context, phone string) (*api.SendCodeResponse, error)
	SubmitVerification(ctx context.Context, p api.SubmitVerificationParams) (*api.SubmitVerificationResponse, error)
}

const (
	fallbackSendCode  = "We could not send a verification code. Please try again."
	fallbackSubmitKYC = "We could not submit your verification. Please try again."

	msgCodeSent = "We've sent a 6-digit code to your phone."
)

// The user-facing copy says "6-digit code" and the send endpoint issues
// exactly that, so the shape check is a strict 6 digits. The server
// re-validates regardless.
var codeShape = regexp.MustCompile(`^\d{6}$`)

// Workflow is one verification attempt. It is not safe for concurrent
// use; the app runs it on its single UI thread of control and the
// submitting flag gates re-entrant transitions.
type Workflow struct {
	backend  Backend
	sess     *session.Session
	notifier notify.Notifier

	// OnComplete fires after a successful submit, typically prompting
	// the caller to re-fetch the verification status. May be nil.
	OnComplete func()

	// OnPreviewReleased fires when a document attachment is replaced
	// or removed, so the embedding UI can drop its preview resource
	// for the old attachment. May be nil.
	OnPreviewReleased func(old api.Attachment)

	gate       Gate
	state      State
	draft      Draft
	submitting bool
}

func NewWorkflow(backend Backend, sess *session.Session, notifier notify.Notifier) *Workflow {
	return &Workflow{
		backend:  backend,
		sess:     sess,
		notifier: notifier,
	}
}

// Start applies the entry gate for the externally observed status and,
// when the gate admits, positions the machine at the details step.
func (w *Workflow) Start(status session.VerificationStatus) (Gate, error) {
	if w.sess.Expired() {
		return "", utils.ErrSessionExpired
	}

	switch status {
	case session.VerificationVerified:
		w.gate = GateHidden
	case session.VerificationPending:
		w.gate = GateUnderReview
	case session.VerificationRejected:
		w.gate = GateRejected
	default:
		w.gate = GateEnter
		w.state = StateDetails
	}
	return w.gate, nil
}

// Restart re-enters the workflow from a rejected status with a blank
// draft. Prior attachments are never reused: they may be what caused
// the rejection.
func (w *Workflow) Restart() error {
	if w.gate != GateRejected {
		return utils.ErrInvalidTransition
	}
	w.releasePreview(w.draft.FrontDocument)
	w.releasePreview(w.draft.BackDocument)
	w.draft = Draft{}
	w.gate = GateEnter
	w.state = StateDetails
	return nil
}

func (w *Workflow) State() State  { return w.state }
func (w *Workflow) Draft() *Draft { return &w.draft }

// UpdateDetails records the identity fields. A phone change invalidates
// any held code session: the token was issued for the old number and
// must never be submitted with the new one.
func (w *Workflow) UpdateDetails(first, middle, last, documentNumber, phone string) {
	w.draft.FirstName = first
	w.draft.MiddleName = middle
	w.draft.LastName = last
	w.draft.DocumentNumber = documentNumber
	if phone != w.draft.Phone {
		w.draft.clearCodeSession()
	}
	w.draft.Phone = phone
}

// AttachFront replaces the front document. The previous attachment's
// preview resource is released.
func (w *Workflow) AttachFront(att api.Attachment) {
	w.releasePreview(w.draft.FrontDocument)
	w.draft.FrontDocument = &att
}

// AttachBack replaces the back document.
func (w *Workflow) AttachBack(att api.Attachment) {
	w.releasePreview(w.draft.BackDocument)
	w.draft.BackDocument = &att
}

func (w *Workflow) releasePreview(old *api.Attachment) {
	if old != nil && w.OnPreviewReleased != nil {
		w.OnPreviewReleased(*old)
	}
}

// SubmitDetails validates the details step and, on pass, asks the
// backend to send a one-time code to the draft phone. No network call
// is made unless every required field and both documents are present.
func (w *Workflow) SubmitDetails(ctx context.Context) error {
	if w.state != StateDetails {
		return utils.ErrInvalidTransition
	}
	if w.submitting {
		return utils.ErrAlreadySubmitting
	}

	if err := w.validateDetails(); err != nil {
		return err
	}

	w.submitting = true
	defer func() { w.submitting = false }()

	resp, err := w.backend.SendVerificationCode(ctx, w.draft.Phone)
	if err != nil {
		w.notifier.Error(api.UserMessage(err, fallbackSendCode))
		return err
	}

	w.draft.setCodeSession(resp.Token, w.draft.Phone)
	w.state = StateOtpVerify
	if resp.Message != "" {
		w.notifier.Info(resp.Message)
	} else {
		w.notifier.Info(msgCodeSent)
	}
	return nil
}

func (w *Workflow) validateDetails() error {
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
		w.notifier.Error("Please attach both the front and the back of your document.")
		return utils.ErrMissingDocument
	}
	return nil
}

// VerifyCode records the entered code and advances to the consent step.
// Only the shape is checked here; the code travels with its session
// token on the final submit, where the backend validates it for real.
func (w *Workflow) VerifyCode(code string) error {
	if w.state != StateOtpVerify {
		return utils.ErrInvalidTransition
	}
	if !codeShape.MatchString(code) {
		w.notifier.Error("Please enter the 6-digit code we sent to your phone.")
		return utils.ErrInvalidCode
	}
	w.draft.Code = code
	w.state = StateConsent
	return nil
}

// Back returns from the code step to the details step. Always
// available.
func (w *Workflow) Back() error {
	if w.state != StateOtpVerify {
		return utils.ErrInvalidTransition
	}
	w.state = StateDetails
	return nil
}

// SetConsent records the irrevocable-consent flag.
func (w *Workflow) SetConsent(consent bool) {
	w.draft.Consent = consent
}

// Confirm assembles the full multipart submission and posts it. On
// success the machine reaches its terminal pending state and the
// completion callback fires; on failure the user stays on the consent
// step and may retry.
func (w *Workflow) Confirm(ctx context.Context) error {
	if w.state != StateConsent {
		return utils.ErrInvalidTransition
	}
	if w.submitting {
		return utils.ErrAlreadySubmitting
	}
	if !w.draft.Consent {
		w.notifier.Error("Please confirm that your information is accurate before submitting.")
		return utils.ErrConsentRequired
	}

	// The token is bound to the phone it was issued for. If the phone
	// was edited after the code step, the session is void and the user
	// must request a fresh code.
	token := w.draft.CodeSession()
	if token == "" {
		w.notifier.Error("Your phone number changed since the code was sent. Please request a new code.")
		w.state = StateDetails
		return utils.ErrCodeSessionExpired
	}

	w.submitting = true
	defer func() { w.submitting = false }()

	resp, err := w.backend.SubmitVerification(ctx, api.SubmitVerificationParams{
		FirstName:      w.draft.FirstName,
		MiddleName:     w.draft.MiddleName,
		LastName:       w.draft.LastName,
		DocumentNumber: w.draft.DocumentNumber,
		Phone:          w.draft.Phone,
		Code:           w.draft.Code,
		CodeToken:      token,
		Consent:        w.draft.Consent,
		FrontDocument:  *w.draft.FrontDocument,
		BackDocument:   *w.draft.BackDocument,
	})
	if err != nil {
		w.notifier.Error(api.UserMessage(err, fallbackSubmitKYC))
		return err
	}

	w.state = StatePending
	if resp.Message != "" {
		w.notifier.Success(resp.Message)
	} else {
		w.notifier.Success("Your verification has been submitted for review.")
	}
	w.sess.RequestRefresh()
	if w.OnComplete != nil {
		w.OnComplete()
	}
	return nil
}
