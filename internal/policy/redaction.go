// Package policy holds data-handling rules applied before patient input is persisted.
package policy

import (
	"regexp"

	"github.com/antoniostano/smartdoc/internal/clinical"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
)

// RedactPII masks common high-risk PII patterns.
func RedactPII(input string) (redacted string, changed bool) {
	out := input

	next := emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	changed = changed || next != out
	out = next

	// Card before phone so long digit runs are not classified as phone numbers.
	next = cardPattern.ReplaceAllString(out, "[REDACTED_CARD]")
	changed = changed || next != out
	out = next

	next = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out
	out = next

	return out, changed
}

// RedactFields applies RedactPII to every free-text clinical field.
// The second result reports whether anything was masked.
func RedactFields(f clinical.Fields) (clinical.Fields, bool) {
	var redacted bool
	for _, p := range []*string{
		&f.PresentingComplaint,
		&f.AssociatedSymptoms,
		&f.Onset,
		&f.Duration,
		&f.AdditionalInformation,
		&f.OtherMedicalOrDentalInformation,
	} {
		var changed bool
		*p, changed = RedactPII(*p)
		redacted = redacted || changed
	}
	return f, redacted
}
