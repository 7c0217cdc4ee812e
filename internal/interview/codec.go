package interview

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/antoniostano/smartdoc/internal/clinical"
)

var (
	ErrMalformedToken    = errors.New("malformed continuation token")
	ErrIncompleteState   = errors.New("continuation token is missing required fields")
	ErrInconsistentState = errors.New("continuation token state is inconsistent")
)

// wireState is the token payload. Pointer fields let decoding tell an absent
// field apart from an empty one.
type wireState struct {
	Messages                *[]clinical.Message `json:"messages"`
	ClinicalFields          *clinical.Fields    `json:"clinicalFields"`
	AssistantQuestionCount  int                 `json:"assistantQuestionCount"`
	AskedSystemicReview     bool                `json:"askedSystemicReview"`
	AskedFamilyHistory      bool                `json:"askedFamilyHistory"`
	AskedPastMedicalHistory bool                `json:"askedPastMedicalHistory"`
	AskedAdditionalInfo     bool                `json:"askedAdditionalInfo"`
}

var tokenEncoding = base64.RawURLEncoding

// Encode serializes s into an opaque continuation token.
func Encode(s *State) (string, error) {
	msgs := s.Messages
	if msgs == nil {
		msgs = []clinical.Message{}
	}
	fields := s.Fields
	w := wireState{
		Messages:                &msgs,
		ClinicalFields:          &fields,
		AssistantQuestionCount:  s.AssistantQuestionCount,
		AskedSystemicReview:     s.Gates.SystemicReview,
		AskedFamilyHistory:      s.Gates.FamilyHistory,
		AskedPastMedicalHistory: s.Gates.PastMedicalHistory,
		AskedAdditionalInfo:     s.Gates.AdditionalInfo,
	}
	raw, err := sonic.ConfigStd.Marshal(&w)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	return tokenEncoding.EncodeToString(raw), nil
}

// Decode parses a continuation token produced by Encode. Callers treat any
// error as a request to start a fresh interview.
func Decode(token string) (*State, error) {
	raw, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	var w wireState
	if err := sonic.ConfigStd.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if w.Messages == nil || w.ClinicalFields == nil {
		return nil, ErrIncompleteState
	}
	for i, m := range *w.Messages {
		if !m.Role.Valid() {
			return nil, fmt.Errorf("%w: message %d has role %q", ErrInconsistentState, i, m.Role)
		}
	}
	if w.AssistantQuestionCount < 0 {
		return nil, fmt.Errorf("%w: negative question count", ErrInconsistentState)
	}
	if n := clinical.CountRole(*w.Messages, clinical.RoleAssistant); n != w.AssistantQuestionCount {
		return nil, fmt.Errorf("%w: count %d but %d assistant messages", ErrInconsistentState, w.AssistantQuestionCount, n)
	}

	msgs := *w.Messages
	if msgs == nil {
		msgs = []clinical.Message{}
	}
	return &State{
		Messages:               msgs,
		Fields:                 *w.ClinicalFields,
		AssistantQuestionCount: w.AssistantQuestionCount,
		Gates: GateFlags{
			PastMedicalHistory: w.AskedPastMedicalHistory,
			SystemicReview:     w.AskedSystemicReview,
			AdditionalInfo:     w.AskedAdditionalInfo,
			FamilyHistory:      w.AskedFamilyHistory,
		},
	}, nil
}
