package account

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/borisstroganov/accessible-health-dashboard/core"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdMaxLen     = 72 // bytes, bcrypt rejects longer input
	pwdMaxLenTag  = "pwdmaxlen"
	pwdMaxLenText = fmt.Sprintf("password must be at most %d bytes long", pwdMaxLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character and 1 digit"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to your name or email"

	pwdPolicyTexts = map[string]string{
		pwdMinLenTag:     pwdMinLenText,
		pwdMaxLenTag:     pwdMaxLenText,
		pwdNoSpaceTag:    pwdNoSpaceText,
		pwdNotAllNumTag:  pwdNotAllNumText,
		pwdComplexityTag: pwdComplexityText,
		pwdAttrSimTag:    pwdAttrSimText,
	}
)

// InitValidators registers the account validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(accountStructValidation, NewAccount{})
	for tag, text := range pwdPolicyTexts {
		core.RegisterCustomTranslation(validate, translator, tag, text)
	}
}

// accountStructValidation does struct level validation on NewAccount.
func accountStructValidation(sl validator.StructLevel) {
	if na, ok := sl.Current().Interface().(NewAccount); ok {
		if tag := passwordPolicyViolation(na.Password, na.Name, na.Email); tag != "" {
			sl.ReportError(na.Password, "password", "Password", tag, "")
		}
	}
}

// passwordPolicyViolation applies the password policy to pwd and returns the tag of the first violated rule:
// - minLen: 8
// - maxLen: 72 bytes
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit
// - no similarity with the account's name or email
func passwordPolicyViolation(pwd string, attrs ...string) string {
	var (
		digitCount         int
		hasUpper, hasLower bool
	)

	chars := []rune(pwd)
	if len(chars) < pwdMinLen {
		return pwdMinLenTag
	}
	if len(pwd) > pwdMaxLen {
		return pwdMaxLenTag
	}
	for _, char := range chars {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	if digitCount == len(chars) {
		return pwdNotAllNumTag
	}
	if !(hasUpper && hasLower && digitCount > 0) {
		return pwdComplexityTag
	}

	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(strings.ToLower(attr), "")).QuickRatio()
		if ratio >= pwdMaxSim {
			return pwdAttrSimTag
		}
	}
	return ""
}
