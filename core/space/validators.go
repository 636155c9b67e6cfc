package space

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/studyspace/core"
)

var (
	starsTag  = "stars"
	starsText = fmt.Sprintf("{0} must be between 1 and %d", MaxStars)
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(starsTag, starsValidation)
	core.RegisterCustomTranslation(validate, translator, starsTag, starsText)
}

func starsValidation(fl validator.FieldLevel) bool {
	stars := fl.Field().Int()
	return stars >= 1 && stars <= MaxStars
}
