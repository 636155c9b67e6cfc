package account_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/studyspace/core/account"
	appfs "github.com/trezcool/studyspace/fs"
	testutil "github.com/trezcool/studyspace/tests"
)

func TestPasswordPolicy(t *testing.T) {
	validate, _ := testutil.NewValidator()
	account.LoadCommonPasswords(appfs.FS, appfs.CommonPasswordsFile, new(testutil.Logger))

	tests := []struct {
		name    string
		pwd     string
		wantTag string
	}{
		{name: "valid", pwd: goodPwd},
		{name: "too short", pwd: "Ab1!", wantTag: "pwdminlen"},
		{name: "whitespace", pwd: "Ab1! Ab1! Ab1!", wantTag: "pwdnospace"},
		{name: "all numeric", pwd: "1234567890", wantTag: "pwdnotallnum"},
		{name: "no special", pwd: "Abcdefgh1", wantTag: "pwdcplx"},
		{name: "no upper", pwd: "abcdefg1!", wantTag: "pwdcplx"},
		{name: "similar to name", pwd: "Alice_Wonderland1", wantTag: "pwdtoosim"},
		{name: "similar to email", pwd: "Alice.Wonder@land1", wantTag: "pwdtoosim"},
		{name: "common", pwd: "P@ssw0rd", wantTag: "pwdnocommon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			np := account.NewPassword{
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
				DisplayName:     "Alice Wonderland",
				Email:           "alice.wonderland@test.dev",
			}
			err := np.Validate(validate)
			if tt.wantTag == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}

			var vErrs validator.ValidationErrors
			if !errors.As(err, &vErrs) || len(vErrs) != 1 {
				t.Fatalf("Validate() error = %v, want one %s error", err, tt.wantTag)
			}
			if got := vErrs[0].Tag(); got != tt.wantTag {
				t.Errorf("Validate() tag = %s, want %s", got, tt.wantTag)
			}
		})
	}
}
