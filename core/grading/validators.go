package grading

import (
	"github.com/go-playground/validator/v10"

	"github.com/pensezy/edutrack/core"
)

var (
	gradeKindTag  = "gradekind"
	gradeKindText = "invalid grade kind"
)

func init() {
	_ = core.Validate.RegisterValidation(gradeKindTag, gradeKindValidation)
	core.RegisterCustomTranslation(gradeKindTag, gradeKindText)
}

// gradeKindValidation checks that the provided kind is in AllKinds.
func gradeKindValidation(fl validator.FieldLevel) bool {
	kind := fl.Field().String()
	for _, k := range AllKinds {
		if kind == k {
			return true
		}
	}
	return false
}
