package interview

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/antoniostano/smartdoc/internal/clinical"
)

func say(s *State, utterance string) {
	if utterance != "" {
		s.appendUser(utterance)
	}
	Extract(s, utterance)
}

func TestExtractSkipsEmptyAndGreeting(t *testing.T) {
	s := NewState()
	say(s, "")
	assert.Equal(t, clinical.Fields{}, s.Fields)

	say(s, "  Hello ")
	assert.Equal(t, clinical.Fields{}, s.Fields)
}

func TestExtractFirstUtteranceBecomesComplaint(t *testing.T) {
	s := NewState()
	s.appendAssistant(OpeningQuestion)
	say(s, "I have chest pain")
	assert.Equal(t, "I have chest pain", s.Fields.PresentingComplaint)

	say(s, "It started yesterday")
	assert.Equal(t, "I have chest pain", s.Fields.PresentingComplaint)
	assert.Empty(t, s.Fields.Duration)
}

func TestExtractHeadacheRules(t *testing.T) {
	s := NewState()
	say(s, "I have a HEADACHE")
	assert.Equal(t, "Headache", s.Fields.PresentingComplaint)

	say(s, "It is throbbing on the left side")
	assert.Equal(t, "Throbbing quality", s.Fields.AssociatedSymptoms)
	assert.Equal(t, "Location: It is throbbing on the left side", s.Fields.AdditionalInformation)
	assert.Empty(t, s.Fields.Duration)

	say(s, "Sudden start, 2 days ago")
	assert.Equal(t, "Sudden start, 2 days ago", s.Fields.Duration)
	assert.Equal(t, "Sudden start, 2 days ago", s.Fields.Onset)
	assert.Equal(t, "Headache", s.Fields.PresentingComplaint)
}

func TestExtractHeadacheFromAssistantMessage(t *testing.T) {
	s := NewState()
	s.appendAssistant("Does the headache get worse in light?")
	say(s, "Yes, for a day now")
	assert.Equal(t, "Headache", s.Fields.PresentingComplaint)
	assert.Equal(t, "Yes, for a day now", s.Fields.Duration)
}

func TestExtractKeepsEarlierComplaintWhenHeadacheArrivesLater(t *testing.T) {
	s := NewState()
	say(s, "I feel dizzy")
	say(s, "and a headache too")
	assert.Equal(t, "I feel dizzy", s.Fields.PresentingComplaint)
}

func TestExtractRebuildsTranscriptEveryTurn(t *testing.T) {
	s := NewState()
	s.appendAssistant(OpeningQuestion)
	say(s, "30, male")
	assert.Equal(t, "assistant: "+OpeningQuestion+"\nuser: 30, male", s.Fields.OtherMedicalOrDentalInformation)

	s.appendAssistant("What brings you in?")
	say(s, "cough")
	assert.Equal(t, clinical.Transcript(s.Messages), s.Fields.OtherMedicalOrDentalInformation)
}
