package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/studyspace/apps/api/echo"
	"github.com/trezcool/studyspace/core/account"
)

type tokenBody struct {
	Token   string          `json:"token"`
	Account account.Account `json:"account"`
}

func Test_accountAPI_signup(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "Taken", "taken@test.dev")

	tests := []struct {
		name     string
		body     interface{}
		wantCode int
		wantErr  httpErr
	}{
		{
			name:     "valid",
			body:     account.NewAccount{DisplayName: "Alice", Email: "alice@test.dev", Password: goodPwd, PasswordConfirm: goodPwd},
			wantCode: http.StatusCreated,
		},
		{
			name:     "email in use",
			body:     account.NewAccount{Email: "taken@test.dev", Password: goodPwd, PasswordConfirm: goodPwd},
			wantCode: http.StatusBadRequest,
			wantErr:  httpErr{Error: "Email already in use", Code: account.CodeEmailInUse},
		},
		{
			name:     "weak password",
			body:     account.NewAccount{Email: "bob@test.dev", Password: "123", PasswordConfirm: "123"},
			wantCode: http.StatusBadRequest,
			wantErr:  httpErr{Error: "Password is too weak", Code: account.CodeWeakPassword},
		},
		{
			name:     "malformed body",
			body:     "{",
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, request{method: http.MethodPost, path: "/v1/accounts/signup", body: tt.body})
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.wantCode != http.StatusCreated {
				if tt.wantErr.Error != "" {
					var got httpErr
					decode(t, rec, &got)
					assert.Equal(t, tt.wantErr, got)
				}
				return
			}

			var got tokenBody
			decode(t, rec, &got)
			assert.NotEmpty(t, got.Token)
			assert.Equal(t, "alice@test.dev", got.Account.Email)

			// the profile is created with the account
			prof := app.do(t, request{path: "/v1/profile", token: got.Token})
			assert.Equal(t, http.StatusOK, prof.Code)
			assert.Contains(t, prof.Body.String(), `"full_name":"Alice"`)
		})
	}
}

func Test_accountAPI_login(t *testing.T) {
	app := newTestApp(t)
	alice, _ := app.createAccount(t, "Alice", "alice@test.dev")

	rec := app.do(t, request{method: http.MethodPost, path: "/v1/accounts/login", body: map[string]string{
		"email": "ALICE@test.dev", "password": goodPwd,
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got tokenBody
	decode(t, rec, &got)
	assert.Equal(t, alice.UID, got.Account.UID)
	assert.False(t, got.Account.LastLogin.IsZero())

	claims := new(Claims)
	_, err := jwt.ParseWithClaims(got.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(app.conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, alice.UID, claims.Subject)
	assert.Equal(t, "Alice", claims.DisplayName)

	rec = app.do(t, request{method: http.MethodPost, path: "/v1/accounts/login", body: map[string]string{
		"email": "alice@test.dev", "password": "nope",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var authErr httpErr
	decode(t, rec, &authErr)
	assert.Equal(t, httpErr{Error: "Incorrect password", Code: account.CodeWrongPassword}, authErr)
}

func Test_accountAPI_login_tooManyAttempts(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "Alice", "alice@test.dev")

	var last int
	for i := 0; i < 6; i++ {
		rec := app.do(t, request{method: http.MethodPost, path: "/v1/accounts/login", body: map[string]string{
			"email": "alice@test.dev", "password": "nope",
		}})
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func Test_accountAPI_refreshToken(t *testing.T) {
	app := newTestApp(t)
	alice, token := app.createAccount(t, "Alice", "alice@test.dev")

	rec := app.do(t, request{method: http.MethodPost, path: "/v1/accounts/token-refresh"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "missing token")

	rec = app.do(t, request{method: http.MethodPost, path: "/v1/accounts/token-refresh", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got map[string]string
	decode(t, rec, &got)
	assert.NotEmpty(t, got["token"])

	// outside of the refresh window
	expired := &Claims{
		StandardClaims: jwt.StandardClaims{Subject: alice.UID, ExpiresAt: time.Now().Add(time.Hour).Unix()},
		OrigIssuedAt:   time.Now().Add(-2 * app.conf.Server.JWTRefreshExpirationDelta).Unix(),
	}
	oldToken, err := GenerateToken(app.conf, expired)
	require.NoError(t, err)
	rec = app.do(t, request{method: http.MethodPost, path: "/v1/accounts/token-refresh", token: oldToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
