package user

import (
	"regexp"
	"strings"
)

// emailPattern accepts local@label.rest where the local part allows letters,
// digits and _.+- and the part after the first dot allows letters, digits, - and dots.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// IsValidEmail reports whether email is syntactically acceptable.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ExtractDomain returns everything after the last '@'. ok is false when the
// address has no '@'.
func ExtractDomain(email string) (domain string, ok bool) {
	i := strings.LastIndexByte(email, '@')
	if i < 0 {
		return "", false
	}
	return email[i+1:], true
}
