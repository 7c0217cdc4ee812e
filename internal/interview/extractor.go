package interview

import (
	"strings"

	"github.com/antoniostano/smartdoc/internal/clinical"
)

const headacheKeyword = "headache"

// headacheRule updates one field when the utterance contains any of its keywords.
type headacheRule struct {
	keywords []string
	apply    func(f *clinical.Fields, utterance string)
}

// Order matters: later rules may overwrite fields set by earlier ones.
var headacheRules = []headacheRule{
	{
		keywords: []string{"throbbing"},
		apply:    func(f *clinical.Fields, _ string) { f.AssociatedSymptoms = "Throbbing quality" },
	},
	{
		keywords: []string{"day", "days"},
		apply:    func(f *clinical.Fields, u string) { f.Duration = u },
	},
	{
		keywords: []string{"side", "left", "right"},
		apply:    func(f *clinical.Fields, u string) { f.AdditionalInformation = "Location: " + u },
	},
	{
		keywords: []string{"sudden", "gradual"},
		apply:    func(f *clinical.Fields, u string) { f.Onset = u },
	},
}

// Extract updates s.Fields from the latest user utterance. It expects the
// utterance to already be appended to s.Messages.
func Extract(s *State, utterance string) {
	if utterance == "" || isGreeting(utterance) {
		return
	}

	lower := strings.ToLower(utterance)
	if headacheScoped(s.Messages, lower) {
		if s.Fields.PresentingComplaint == "" {
			s.Fields.PresentingComplaint = "Headache"
		}
		for _, r := range headacheRules {
			if containsAny(lower, r.keywords) {
				r.apply(&s.Fields, utterance)
			}
		}
	} else if s.Fields.PresentingComplaint == "" {
		s.Fields.PresentingComplaint = utterance
	}

	s.Fields.OtherMedicalOrDentalInformation = clinical.Transcript(s.Messages)
}

func isGreeting(utterance string) bool {
	return strings.ToLower(strings.TrimSpace(utterance)) == "hello"
}

func headacheScoped(msgs []clinical.Message, lowerUtterance string) bool {
	if strings.Contains(lowerUtterance, headacheKeyword) {
		return true
	}
	for _, m := range msgs {
		if strings.Contains(strings.ToLower(m.Content), headacheKeyword) {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
