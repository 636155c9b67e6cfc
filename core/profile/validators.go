package profile

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/studyspace/core"
)

var (
	streamTag  = "stream"
	streamText = "{0} must be one of CSE, ECE, ME, IT, EEE, CE, Chemical, Biotech"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(streamTag, streamValidation)
	core.RegisterCustomTranslation(validate, translator, streamTag, streamText)
}

func IsStream(s string) bool {
	for _, stream := range Streams {
		if s == stream {
			return true
		}
	}
	return false
}

func streamValidation(fl validator.FieldLevel) bool {
	return IsStream(fl.Field().String())
}
