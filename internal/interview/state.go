package interview

import "github.com/antoniostano/smartdoc/internal/clinical"

// GateFlags records which mandatory questions have already been asked.
// Each flag flips to true at most once per conversation.
type GateFlags struct {
	PastMedicalHistory bool
	SystemicReview     bool
	AdditionalInfo     bool
	// FamilyHistory is carried for token compatibility only; no policy rule reads or sets it.
	FamilyHistory bool
}

// State is the complete interview memory. Between turns it lives only inside the
// caller-held continuation token.
type State struct {
	Messages               []clinical.Message
	Fields                 clinical.Fields
	AssistantQuestionCount int
	Gates                  GateFlags
}

// NewState returns an empty interview.
func NewState() *State {
	return &State{Messages: []clinical.Message{}}
}

func (s *State) appendUser(text string) {
	s.Messages = append(s.Messages, clinical.Message{Role: clinical.RoleUser, Content: text})
}

func (s *State) appendAssistant(text string) {
	s.Messages = append(s.Messages, clinical.Message{Role: clinical.RoleAssistant, Content: text})
	s.AssistantQuestionCount++
}
