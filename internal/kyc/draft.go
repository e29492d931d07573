package kyc

import (
	"github.com/wachira567/victorsprings-client/internal/api"
)

// Draft is the client-held verification request being assembled across
// steps. It owns both document attachments exclusively until the final
// submit hands them to the backend.
//
// The code-session token is unexported and bound to the phone number it
// was issued for: changing the phone through the workflow invalidates
// it, so a code issued for one number can never be submitted with
// another.
type Draft struct {
	FirstName      string
	MiddleName     string
	LastName       string
	DocumentNumber string
	Phone          string

	FrontDocument *api.Attachment
	BackDocument  *api.Attachment

	Code    string
	Consent bool

	codeToken string
	codePhone string
}

// CodeSession returns the backend-issued code-session token, or ""
// when none is held or the one held no longer matches the draft phone.
func (d *Draft) CodeSession() string {
	if d.codeToken == "" || d.codePhone != d.Phone {
		return ""
	}
	return d.codeToken
}

func (d *Draft) setCodeSession(token, phone string) {
	d.codeToken = token
	d.codePhone = phone
}

func (d *Draft) clearCodeSession() {
	d.codeToken = ""
	d.codePhone = ""
	d.Code = ""
}
