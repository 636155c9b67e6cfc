package account

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/studyspace/core"
)

type Account struct {
	UID          string    `json:"uid"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

// Identity is who the account acts as in workspaces, spaces and ratings.
func (a Account) Identity() core.Identity {
	return core.Identity{UID: a.UID, DisplayName: a.DisplayName, Email: a.Email}
}

// NewAccount contains information needed to sign up.
type NewAccount struct {
	DisplayName     string `json:"display_name" validate:"max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (na *NewAccount) Validate(validate *validator.Validate) error {
	na.DisplayName = core.CleanString(na.DisplayName)
	na.Email = core.CleanString(na.Email, true /* lower */)
	return validate.Struct(na)
}

// NewPassword replaces the password of an existing account.
type NewPassword struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	// account attributes the password must not resemble
	DisplayName string `json:"-"`
	Email       string `json:"-"`
}

func (np NewPassword) Validate(validate *validator.Validate) error { return validate.Struct(np) }

func cleanEmail(email string) string { return core.CleanString(email, true /* lower */) }
