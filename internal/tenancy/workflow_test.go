package tenancy_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wachira567/victorsprings-client/internal/api"
	"github.com/wachira567/victorsprings-client/internal/notify"
	"github.com/wachira567/victorsprings-client/internal/session"
	"github.com/wachira567/victorsprings-client/internal/tenancy"
	"github.com/wachira567/victorsprings-client/internal/testbackend"
	"github.com/wachira567/victorsprings-client/internal/utils"
)

const (
	testInterval    = 2 * time.Millisecond
	testMaxAttempts = 12
)

type fixture struct {
	backend *testbackend.Server
	sess    *session.Session
	rec     *notify.Recorder
	wf      *tenancy.Workflow
}

func newFixture(t *testing.T, property tenancy.Property) *fixture {
	t.Helper()
	backend := testbackend.New()
	t.Cleanup(backend.Close)

	sess := session.New(session.User{ID: "user_0001"},
		testbackend.BearerToken(time.Now().Add(time.Hour)))
	client, err := api.NewClient(backend.URL, sess, 5*time.Second)
	require.NoError(t, err)

	rec := &notify.Recorder{}
	wf := tenancy.NewWorkflow(client, sess, rec, property, testInterval, testMaxAttempts)
	t.Cleanup(wf.Close)
	return &fixture{backend: backend, sess: sess, rec: rec, wf: wf}
}

func attachment(name string) api.Attachment {
	return api.Attachment{Filename: name, ContentType: "image/jpeg", Data: []byte("jpeg-" + name)}
}

func feeProperty() tenancy.Property {
	return tenancy.Property{
		ID:                   "prop_0001",
		AgreementFee:         1500,
		AgreementTemplateURL: "https://res.cloudinary.com/vs/raw/upload/v1/templates/lease.pdf",
	}
}

func freeProperty() tenancy.Property {
	return tenancy.Property{ID: "prop_0002"}
}

// fillForm populates a complete, valid form step for property.
func (f *fixture) fillForm(property tenancy.Property) {
	f.wf.UpdateDetails("Amina", "Odhiambo", "12345678", "+254712345678")
	f.wf.AttachFront(attachment("front.jpg"))
	f.wf.AttachBack(attachment("back.jpg"))
	if property.RequiresAgreement() {
		f.wf.AttachSignedAgreement(api.Attachment{
			Filename: "signed-lease.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 signed"),
		})
	}
	f.wf.SetConsent(true)
}

// payAgreementFee drives the payment step to completion.
func (f *fixture) payAgreementFee(t *testing.T) {
	t.Helper()
	f.backend.StatusScript = []testbackend.StatusStep{{Status: api.PaymentCompleted}}
	require.NoError(t, f.wf.ConfirmPayment(context.Background(), "+254712345678"))
	require.Equal(t, tenancy.StateForm, f.wf.State())
}

func TestStartChoosesEntryState(t *testing.T) {
	f := newFixture(t, feeProperty())
	state, err := f.wf.Start()
	require.NoError(t, err)
	require.Equal(t, tenancy.StatePayment, state)

	f = newFixture(t, freeProperty())
	state, err = f.wf.Start()
	require.NoError(t, err)
	require.Equal(t, tenancy.StateForm, state)
}

func TestStartRejectsExpiredSession(t *testing.T) {
	f := newFixture(t, freeProperty())
	f.sess.BearerToken = testbackend.BearerToken(time.Now().Add(-time.Hour))
	_, err := f.wf.Start()
	require.ErrorIs(t, err, utils.ErrSessionExpired)
}

func TestConfirmPaymentRejectsPhoneWithoutPrefix(t *testing.T) {
	f := newFixture(t, feeProperty())
	_, err := f.wf.Start()
	require.NoError(t, err)

	err = f.wf.ConfirmPayment(context.Background(), "0712345678")
	require.ErrorIs(t, err, utils.ErrInvalidPhone)
	require.Zero(t, f.backend.Count("initiate"))
}

func TestConfirmPaymentCompletedAdvancesToForm(t *testing.T) {
	f := newFixture(t, feeProperty())
	_, err := f.wf.Start()
	require.NoError(t, err)

	f.backend.StatusScript = []testbackend.StatusStep{
		{Status: api.PaymentPending},
		{Status: api.PaymentProcessing},
		{Status: api.PaymentCompleted},
	}
	require.NoError(t, f.wf.ConfirmPayment(context.Background(), "+254712345678"))

	require.Equal(t, tenancy.StateForm, f.wf.State())
	require.Equal(t, "pay_0001", f.wf.PaymentID())
	require.Equal(t, 3, f.backend.StatusPolls())

	// The initiate call carried the property's fee and purpose tag.
	require.NotNil(t, f.backend.LastInitiate)
	require.Equal(t, 1500, f.backend.LastInitiate.Amount)
	require.Equal(t, "agreement_fee", f.backend.LastInitiate.Purpose)
	require.Equal(t, "prop_0001", f.backend.LastInitiate.PropertyID)
}

func TestConfirmPaymentFailedStaysOnPaymentWithDistinctMessage(t *testing.T) {
	f := newFixture(t, feeProperty())
	_, err := f.wf.Start()
	require.NoError(t, err)

	f.backend.StatusScript = []testbackend.StatusStep{{Status: api.PaymentFailed}}
	err = f.wf.ConfirmPayment(context.Background(), "+254712345678")
	require.ErrorIs(t, err, utils.ErrPaymentRequired)

	require.Equal(t, tenancy.StatePayment, f.wf.State())
	require.Empty(t, f.wf.PaymentID())
	require.Contains(t, f.rec.LastError(), "failed or was cancelled")
}

func TestConfirmPaymentTimeoutStaysOnPaymentWithDistinctMessage(t *testing.T) {
	f := newFixture(t, feeProperty())
	_, err := f.wf.Start()
	require.NoError(t, err)

	f.backend.StatusScript = []testbackend.StatusStep{{Status: api.PaymentPending}}
	err = f.wf.ConfirmPayment(context.Background(), "+254712345678")
	require.ErrorIs(t, err, utils.ErrPaymentRequired)

	require.Equal(t, tenancy.StatePayment, f.wf.State())
	require.Equal(t, testMaxAttempts, f.backend.StatusPolls())
	require.Contains(t, f.rec.LastError(), "could not confirm your payment in time")

	// Failed and timed-out runs must read differently to the user.
	require.NotContains(t, f.rec.LastError(), "cancelled")
}

func TestConfirmPaymentTransientPollErrorStillCompletes(t *testing.T) {
	f := newFixture(t, feeProperty())
	_, err := f.wf.Start()
	require.NoError(t, err)

	f.backend.StatusScript = []testbackend.StatusStep{
		{Status: api.PaymentPending},
		{Err: true},
		{Status: api.PaymentCompleted},
	}
	require.NoError(t, f.wf.ConfirmPayment(context.Background(), "+254712345678"))
	require.Equal(t, tenancy.StateForm, f.wf.State())
}

func TestConfirmPaymentInitiateFailureSurfacesMessage(t *testing.T) {
	f := newFixture(t, feeProperty())
	_, err := f.wf.Start()
	require.NoError(t, err)

	f.backend.InitiateFail = &testbackend.Failure{
		Status:  http.StatusBadRequest,
		Code:    "invalid_phone",
		Message: "This number is not registered for mobile money.",
	}
	require.Error(t, f.wf.ConfirmPayment(context.Background(), "+254712345678"))
	require.Equal(t, "This number is not registered for mobile money.", f.rec.LastError())
	require.Equal(t, tenancy.StatePayment, f.wf.State())
	require.Zero(t, f.backend.StatusPolls())
}

func TestSubmitFormBlockedBeforePaymentCompletes(t *testing.T) {
	f := newFixture(t, feeProperty())
	_, err := f.wf.Start()
	require.NoError(t, err)

	f.fillForm(feeProperty())
	require.ErrorIs(t, f.wf.SubmitForm(context.Background()), utils.ErrInvalidTransition)
	require.Zero(t, f.backend.Count("create-application"))
}

func TestSubmitFormGates(t *testing.T) {
	// With a fee and a template, removing any one requirement
	// independently blocks submission.
	mutations := map[string]func(f *fixture){
		"missing front document":   func(f *fixture) { f.wf.Draft().FrontDocument = nil },
		"missing back document":    func(f *fixture) { f.wf.Draft().BackDocument = nil },
		"missing signed agreement": func(f *fixture) { f.wf.Draft().SignedAgreement = nil },
		"consent withdrawn":        func(f *fixture) { f.wf.SetConsent(false) },
		"missing first name":       func(f *fixture) { f.wf.UpdateDetails("", "Odhiambo", "12345678", "+254712345678") },
		"missing last name":        func(f *fixture) { f.wf.UpdateDetails("Amina", "", "12345678", "+254712345678") },
		"missing document number":  func(f *fixture) { f.wf.UpdateDetails("Amina", "Odhiambo", "", "+254712345678") },
		"phone without prefix":     func(f *fixture) { f.wf.UpdateDetails("Amina", "Odhiambo", "12345678", "0712") },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, feeProperty())
			_, err := f.wf.Start()
			require.NoError(t, err)
			f.payAgreementFee(t)
			f.fillForm(feeProperty())
			mutate(f)

			require.Error(t, f.wf.SubmitForm(context.Background()))
			require.Zero(t, f.backend.Count("create-application"))
			require.NotEmpty(t, f.rec.LastError())
			require.Equal(t, tenancy.StateForm, f.wf.State())
		})
	}
}

func TestSubmitFormCarriesPaymentAndAgreement(t *testing.T) {
	f := newFixture(t, feeProperty())
	_, err := f.wf.Start()
	require.NoError(t, err)
	f.payAgreementFee(t)
	f.fillForm(feeProperty())

	require.NoError(t, f.wf.SubmitForm(context.Background()))
	require.Equal(t, tenancy.StateSuccess, f.wf.State())

	sub := f.backend.LastApplication
	require.NotNil(t, sub)
	require.Equal(t, "pay_0001", sub.Fields["payment_id"])
	require.Equal(t, "prop_0001", sub.Fields["property_id"])
	require.Equal(t, "true", sub.Fields["consent"])
	require.Equal(t, []byte("%PDF-1.4 signed"), sub.Files["signed_agreement"])
	require.Len(t, sub.Files, 3)
}

func TestSubmitFormWithoutFeeOrTemplate(t *testing.T) {
	f := newFixture(t, freeProperty())
	_, err := f.wf.Start()
	require.NoError(t, err)
	f.fillForm(freeProperty())

	require.NoError(t, f.wf.SubmitForm(context.Background()))
	require.Equal(t, tenancy.StateSuccess, f.wf.State())

	sub := f.backend.LastApplication
	require.NotNil(t, sub)
	_, hasPayment := sub.Fields["payment_id"]
	require.False(t, hasPayment)
	_, hasAgreement := sub.Files["signed_agreement"]
	require.False(t, hasAgreement)
}

func TestSubmitFormFailureAllowsRetry(t *testing.T) {
	f := newFixture(t, freeProperty())
	_, err := f.wf.Start()
	require.NoError(t, err)
	f.fillForm(freeProperty())

	f.backend.CreateAppFail = &testbackend.Failure{
		Status:  http.StatusConflict,
		Code:    "duplicate_application",
		Message: "You have already applied for this property.",
	}
	require.Error(t, f.wf.SubmitForm(context.Background()))
	require.Equal(t, "You have already applied for this property.", f.rec.LastError())
	require.Equal(t, tenancy.StateForm, f.wf.State())

	f.backend.CreateAppFail = nil
	require.NoError(t, f.wf.SubmitForm(context.Background()))
	require.Equal(t, tenancy.StateSuccess, f.wf.State())
}

func TestCloseSuccessFiresCallback(t *testing.T) {
	f := newFixture(t, freeProperty())
	closed := false
	f.wf.OnClose = func() { closed = true }

	_, err := f.wf.Start()
	require.NoError(t, err)
	require.ErrorIs(t, f.wf.CloseSuccess(), utils.ErrInvalidTransition)

	f.fillForm(freeProperty())
	require.NoError(t, f.wf.SubmitForm(context.Background()))
	require.NoError(t, f.wf.CloseSuccess())
	require.True(t, closed)
}

func TestTeardownCancelsActivePolling(t *testing.T) {
	f := newFixture(t, feeProperty())
	_, err := f.wf.Start()
	require.NoError(t, err)

	// Keep the payment unresolved for much longer than the test runs.
	f.backend.StatusScript = []testbackend.StatusStep{{Status: api.PaymentPending}}

	errCh := make(chan error, 1)
	go func() {
		errCh <- f.wf.ConfirmPayment(context.Background(), "+254712345678")
	}()

	// Let a few polls land, then tear the workflow down mid-run.
	require.Eventually(t, func() bool { return f.backend.StatusPolls() >= 2 },
		time.Second, time.Millisecond)
	f.wf.Close()

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("ConfirmPayment did not return after teardown")
	}

	pollsAtClose := f.backend.StatusPolls()
	time.Sleep(20 * testInterval)
	require.LessOrEqual(t, f.backend.StatusPolls(), pollsAtClose+1, "polling leaked past teardown")
}
