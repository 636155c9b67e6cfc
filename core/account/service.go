// Package account is the authentication provider: sign-up, sign-in and password changes.
package account

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

var (
	// errors
	ErrNotFound    = errors.New("account not found")
	ErrEmailExists = errors.New("an account with this email already exists")

	// sign-in attempts allowed per email
	signInEvery = rate.Every(time.Minute)
	signInBurst = 5
)

type (
	Repository interface {
		// CreateAccount returns ErrEmailExists when the email is taken.
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccountByUID(ctx context.Context, uid string) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		UpdateAccount(ctx context.Context, acc Account) (Account, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		nowFunc  func() time.Time

		mu       sync.Mutex
		attempts map[string]*rate.Limiter
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{
		repo:     repo,
		validate: validate,
		nowFunc:  time.Now,
		attempts: make(map[string]*rate.Limiter),
	}
}

func (svc *Service) now() time.Time { return svc.nowFunc().UTC() }

func (svc *Service) limiter(email string) *rate.Limiter {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	lim, ok := svc.attempts[email]
	if !ok {
		lim = rate.NewLimiter(signInEvery, signInBurst)
		svc.attempts[email] = lim
	}
	return lim
}

// SignUp creates an account. Failures the client can act on are *AuthError.
func (svc *Service) SignUp(ctx context.Context, na NewAccount) (Account, error) {
	if err := na.Validate(svc.validate); err != nil {
		return Account{}, authErrorFromValidation(err)
	}

	now := svc.now()
	acc := Account{
		UID:         uuid.NewString(),
		DisplayName: na.DisplayName,
		Email:       na.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLogin:   now,
	}
	if err := acc.SetPassword(na.Password); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}

	acc, err := svc.repo.CreateAccount(ctx, acc)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return Account{}, newAuthError(CodeEmailInUse, err)
		}
		return Account{}, errors.Wrap(err, "creating account")
	}
	return acc, nil
}

// SignIn checks the credentials and records the login.
func (svc *Service) SignIn(ctx context.Context, email, pwd string) (Account, error) {
	email = cleanEmail(email)
	if email == "" {
		return Account{}, newAuthError(CodeInvalidEmail, nil)
	}
	if !svc.limiter(email).Allow() {
		return Account{}, newAuthError(CodeTooManyRequests, nil)
	}

	acc, err := svc.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Account{}, newAuthError(CodeUserNotFound, err)
		}
		return Account{}, errors.Wrap(err, "getting account")
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return Account{}, newAuthError(CodeWrongPassword, err)
	}
	return svc.SetLastLogin(ctx, acc)
}

func (svc *Service) GetByUID(ctx context.Context, uid string) (Account, error) {
	return svc.repo.GetAccountByUID(ctx, uid)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccountByEmail(ctx, cleanEmail(email))
}

// SetPassword validates np against the password policy and replaces acc's password.
func (svc *Service) SetPassword(ctx context.Context, acc Account, np NewPassword) (Account, error) {
	np.DisplayName = acc.DisplayName
	np.Email = acc.Email
	if err := np.Validate(svc.validate); err != nil {
		return Account{}, err
	}
	if err := acc.SetPassword(np.Password); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	acc.UpdatedAt = svc.now()
	return svc.repo.UpdateAccount(ctx, acc)
}

func (svc *Service) SetLastLogin(ctx context.Context, acc Account) (Account, error) {
	acc.LastLogin = svc.now()
	return svc.repo.UpdateAccount(ctx, acc)
}
