package guardian

import (
	"github.com/go-playground/validator/v10"

	"github.com/pensezy/edutrack/core"
)

var (
	relKindTag  = "relkind"
	relKindText = "invalid relationship kind"

	emailOrPhoneTag  = "email_or_phone"
	emailOrPhoneText = "one of email or phone is required"
)

func init() {
	_ = core.Validate.RegisterValidation(relKindTag, relKindValidation)
	core.RegisterCustomTranslation(relKindTag, relKindText)

	core.Validate.RegisterStructValidation(newGuardianStructValidation, NewGuardian{})
	core.RegisterCustomTranslation(emailOrPhoneTag, emailOrPhoneText)
}

// relKindValidation checks that the provided kind is in AllKinds.
func relKindValidation(fl validator.FieldLevel) bool {
	kind := fl.Field().String()
	for _, k := range AllKinds {
		if kind == k {
			return true
		}
	}
	return false
}

// newGuardianStructValidation checks that a dedup key can be derived:
// one of Email or Phone must be provided.
func newGuardianStructValidation(sl validator.StructLevel) {
	ng := sl.Current().Interface().(NewGuardian)
	if ng.Contact.DedupKey() == "" {
		sl.ReportError(ng.Contact.Email, "email", "Email", emailOrPhoneTag, "")
		sl.ReportError(ng.Contact.Phone, "phone", "Phone", emailOrPhoneTag, "")
	}
}
