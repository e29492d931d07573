package utils

import "regexp"

var e164Regex = regexp.MustCompile(`^\+[1-9]\d{7,14}$`) // ITU-T E.164

// IsE164 reports basic E.164 compliance.
func IsE164(number string) bool { return e164Regex.MatchString(number) }

// HasIntlPrefix reports whether a number carries an international
// country-code prefix. Every backend call carrying a phone number is
// gated on this check client-side.
func HasIntlPrefix(number string) bool {
	return len(number) > 1 && number[0] == '+'
}
