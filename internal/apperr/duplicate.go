package apperr

import (
	"strings"
	"unicode"
)

// Duplicate reports a unique-constraint violation on field, which is given
// in camelCase ("contactNumber" -> "Contact number already exists").
func Duplicate(field string) *Error {
	return Conflict(camelToTitle(field) + " already exists")
}

func camelToTitle(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	out := []rune(b.String())
	if len(out) > 0 {
		out[0] = unicode.ToUpper(out[0])
	}
	return string(out)
}
