// Package session holds the authenticated principal and bearer
// credential for the running app. Workflows read it; only the external
// login/logout lifecycle writes it.
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wachira567/victorsprings-client/internal/utils"
)

// VerificationStatus is the server-owned landlord KYC status as last
// observed by the client.
type VerificationStatus string

const (
	VerificationUnsubmitted VerificationStatus = "unsubmitted"
	VerificationPending     VerificationStatus = "pending"
	VerificationVerified    VerificationStatus = "verified"
	VerificationRejected    VerificationStatus = "rejected"
)

// User is the current-user record as returned by the auth service.
type User struct {
	ID                 string
	FirstName          string
	LastName           string
	Email              string
	Phone              string
	VerificationStatus VerificationStatus
}

// TokenSource supplies the bearer credential attached to every
// authenticated backend call.
type TokenSource interface {
	Token() string
}

// Session is constructed once at login and passed to workflows at
// construction time rather than looked up ambiently, so they stay
// testable in isolation.
type Session struct {
	User        User
	BearerToken string

	// OnRefresh is invoked after a status-changing action (e.g. a KYC
	// submit) so the embedding app can re-fetch the user record. May be
	// nil.
	OnRefresh func()
}

func New(user User, bearerToken string) *Session {
	return &Session{User: user, BearerToken: bearerToken}
}

// Token implements TokenSource.
func (s *Session) Token() string { return s.BearerToken }

// Expired reports whether the bearer token carries an exp claim in the
// past. The token is parsed without signature verification: the client
// never holds the signing key, and the backend re-checks every request
// anyway. A token that fails to parse at all is treated as expired.
func (s *Session) Expired() bool {
	if s.BearerToken == "" {
		return true
	}
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(s.BearerToken, claims)
	if err != nil {
		utils.Logger.WithError(err).Debug("Bearer token did not parse; treating as expired")
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

// RequestRefresh asks the embedding app to reload the user record.
func (s *Session) RequestRefresh() {
	if s.OnRefresh != nil {
		s.OnRefresh()
	}
}
