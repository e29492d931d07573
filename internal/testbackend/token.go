package testbackend

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// BearerToken mints an HS256 token for tests. The client never checks
// the signature, only the exp claim.
func BearerToken(exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user_0001",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return signed
}
