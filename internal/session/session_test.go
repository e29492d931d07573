package session_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/wachira567/victorsprings-client/internal/session"
	"github.com/wachira567/victorsprings-client/internal/testbackend"
)

func TestExpired(t *testing.T) {
	sess := session.New(session.User{}, testbackend.BearerToken(time.Now().Add(time.Hour)))
	require.False(t, sess.Expired())

	sess.BearerToken = testbackend.BearerToken(time.Now().Add(-time.Minute))
	require.True(t, sess.Expired())

	sess.BearerToken = ""
	require.True(t, sess.Expired())

	sess.BearerToken = "not-a-jwt"
	require.True(t, sess.Expired())
}

func TestExpiredToleratesMissingExpClaim(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user_0001"})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	sess := session.New(session.User{}, signed)
	require.False(t, sess.Expired())
}

func TestRequestRefresh(t *testing.T) {
	sess := session.New(session.User{}, "")
	sess.RequestRefresh() // nil callback is a no-op

	called := false
	sess.OnRefresh = func() { called = true }
	sess.RequestRefresh()
	require.True(t, called)
}

func TestTokenSource(t *testing.T) {
	sess := session.New(session.User{}, "bearer-value")
	var src session.TokenSource = sess
	require.Equal(t, "bearer-value", src.Token())
}
