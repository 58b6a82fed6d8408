package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier map[string]*auth.Token

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := f[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("token rejected")
}

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, header string) (echo.Context, bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	called := false
	err := mw(func(echo.Context) error {
		called = true
		return nil
	})(c)
	return c, called, err
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, status, he.Code)
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	verifier := fakeVerifier{
		"good":     {UID: "u1", Claims: map[string]interface{}{"email": "u1@example.com"}},
		"no-email": {UID: "u2", Claims: map[string]interface{}{}},
	}
	mw := FirebaseAuthMiddleware(verifier)

	c, called, err := runMiddleware(t, mw, "Bearer good")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "u1", c.Get(ContextUID))
	assert.Equal(t, "u1@example.com", c.Get(ContextEmail))

	c, called, err = runMiddleware(t, mw, "bearer no-email")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "u2", c.Get(ContextUID))
	assert.Nil(t, c.Get(ContextEmail))

	_, called, err = runMiddleware(t, mw, "")
	assertStatus(t, err, http.StatusUnauthorized)
	assert.False(t, called)

	_, called, err = runMiddleware(t, mw, "Bearer forged")
	assertStatus(t, err, http.StatusUnauthorized)
	assert.False(t, called)

	_, called, err = runMiddleware(t, mw, "Basic abc")
	assertStatus(t, err, http.StatusUnauthorized)
	assert.False(t, called)
}

func signEventToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestEventTokenMiddleware(t *testing.T) {
	const secret = "event-secret"
	mw := EventTokenMiddleware(secret)
	valid := jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{EventAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}

	_, called, err := runMiddleware(t, mw, "Bearer "+signEventToken(t, secret, valid))
	require.NoError(t, err)
	assert.True(t, called)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing", header: ""},
		{name: "wrong secret", header: "Bearer " + signEventToken(t, "other", valid)},
		{name: "expired", header: "Bearer " + signEventToken(t, secret, jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{EventAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		})},
		{name: "wrong audience", header: "Bearer " + signEventToken(t, secret, jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{"someone-else"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		})},
		{name: "no expiry", header: "Bearer " + signEventToken(t, secret, jwt.RegisteredClaims{
			Audience: jwt.ClaimStrings{EventAudience},
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, called, err := runMiddleware(t, mw, tt.header)
			assertStatus(t, err, http.StatusUnauthorized)
			assert.False(t, called)
		})
	}
}
