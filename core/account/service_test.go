package account_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studyspace/core/account"
	inmemdb "github.com/trezcool/studyspace/storage/database/inmem"
	testutil "github.com/trezcool/studyspace/tests"
)

const goodPwd = "Tr0ub4dor&3x"

func newService(t *testing.T) (*account.Service, account.Repository) {
	t.Helper()
	validate, _ := testutil.NewValidator()
	repo := inmemdb.NewAccountRepository(inmemdb.Open())
	return account.NewService(repo, validate), repo
}

func authCode(err error) string {
	var authErr *account.AuthError
	if errors.As(err, &authErr) {
		return authErr.Code
	}
	return ""
}

func TestService_SignUp(t *testing.T) {
	svc, repo := newService(t)
	testutil.CreateAccount(t, repo, "Taken", "taken@test.dev", goodPwd)

	tests := []struct {
		name     string
		na       account.NewAccount
		wantErr  bool
		wantCode string
	}{
		{
			name: "valid",
			na:   account.NewAccount{DisplayName: " Alice ", Email: " Alice@Test.dev", Password: goodPwd, PasswordConfirm: goodPwd},
		},
		{
			name:     "invalid email",
			na:       account.NewAccount{Email: "alice", Password: goodPwd, PasswordConfirm: goodPwd},
			wantErr:  true,
			wantCode: account.CodeInvalidEmail,
		},
		{
			name:     "weak password",
			na:       account.NewAccount{Email: "bob@test.dev", Password: "short", PasswordConfirm: "short"},
			wantErr:  true,
			wantCode: account.CodeWeakPassword,
		},
		{
			name:     "email in use",
			na:       account.NewAccount{Email: "TAKEN@test.dev", Password: goodPwd, PasswordConfirm: goodPwd},
			wantErr:  true,
			wantCode: account.CodeEmailInUse,
		},
		{
			name:    "confirmation mismatch",
			na:      account.NewAccount{Email: "carol@test.dev", Password: goodPwd, PasswordConfirm: goodPwd + "!"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := svc.SignUp(context.Background(), tt.na)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.NotEmpty(t, acc.UID)
				assert.Equal(t, "Alice", acc.DisplayName)
				assert.Equal(t, "alice@test.dev", acc.Email)
				assert.NoError(t, acc.CheckPassword(goodPwd))
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, authCode(err))
		})
	}
}

func TestService_SignIn(t *testing.T) {
	svc, repo := newService(t)
	alice := testutil.CreateAccount(t, repo, "Alice", "alice@test.dev", goodPwd)
	ctx := context.Background()

	acc, err := svc.SignIn(ctx, " ALICE@test.dev ", goodPwd)
	require.NoError(t, err)
	assert.Equal(t, alice.UID, acc.UID)
	assert.False(t, acc.LastLogin.IsZero())

	_, err = svc.SignIn(ctx, "nobody@test.dev", goodPwd)
	assert.Equal(t, account.CodeUserNotFound, authCode(err))

	_, err = svc.SignIn(ctx, "alice@test.dev", "wrong")
	assert.Equal(t, account.CodeWrongPassword, authCode(err))

	_, err = svc.SignIn(ctx, "", goodPwd)
	assert.Equal(t, account.CodeInvalidEmail, authCode(err))
}

func TestService_SignIn_tooManyAttempts(t *testing.T) {
	svc, repo := newService(t)
	testutil.CreateAccount(t, repo, "Alice", "alice@test.dev", goodPwd)
	ctx := context.Background()

	var codes []string
	for i := 0; i < 6; i++ {
		_, err := svc.SignIn(ctx, "alice@test.dev", "wrong")
		codes = append(codes, authCode(err))
	}
	assert.Equal(t, account.CodeTooManyRequests, codes[5])
	for _, code := range codes[:5] {
		assert.Equal(t, account.CodeWrongPassword, code)
	}

	// other emails keep their own budget
	_, err := svc.SignIn(ctx, "bob@test.dev", goodPwd)
	assert.Equal(t, account.CodeUserNotFound, authCode(err))
}

func TestService_SetPassword(t *testing.T) {
	svc, repo := newService(t)
	alice := testutil.CreateAccount(t, repo, "Alice Wonderland", "alice@test.dev", goodPwd)
	ctx := context.Background()

	_, err := svc.SetPassword(ctx, alice, account.NewPassword{Password: "Alice_Wonderland1", PasswordConfirm: "Alice_Wonderland1"})
	assert.Error(t, err, "too similar to the name")

	newPwd := "N3w&Impr0ved"
	acc, err := svc.SetPassword(ctx, alice, account.NewPassword{Password: newPwd, PasswordConfirm: newPwd})
	require.NoError(t, err)
	assert.NoError(t, acc.CheckPassword(newPwd))

	_, err = svc.SignIn(ctx, "alice@test.dev", newPwd)
	assert.NoError(t, err)
}

func TestFriendlyMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "email in use", err: &account.AuthError{Code: account.CodeEmailInUse}, want: "Email already in use"},
		{name: "invalid email", err: &account.AuthError{Code: account.CodeInvalidEmail}, want: "Invalid email address"},
		{name: "weak password", err: &account.AuthError{Code: account.CodeWeakPassword}, want: "Password is too weak"},
		{name: "user not found", err: &account.AuthError{Code: account.CodeUserNotFound}, want: "No user found with that email"},
		{name: "wrong password", err: &account.AuthError{Code: account.CodeWrongPassword}, want: "Incorrect password"},
		{name: "too many requests", err: &account.AuthError{Code: account.CodeTooManyRequests}, want: "Too many attempts. Try again later"},
		{name: "not allowed", err: &account.AuthError{Code: account.CodeOperationNotAllowed}, want: "Operation not allowed"},
		{name: "wrapped", err: errors.Wrap(&account.AuthError{Code: account.CodeWrongPassword}, "signing in"), want: "Incorrect password"},
		{name: "unknown code", err: &account.AuthError{Code: "auth/network-request-failed"}, want: "Authentication failed: auth/network-request-failed"},
		{name: "plain error", err: errors.New("boom"), want: "Authentication failed: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, account.FriendlyMessage(tt.err))
		})
	}
}
