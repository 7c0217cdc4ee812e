package clinical

import (
	"fmt"
	"strings"
)

// Role identifies the author of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known transcript roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single transcript entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Fields holds the structured clinical record assembled during an interview.
// It is also the input accepted by the diagnosis generator.
type Fields struct {
	PresentingComplaint             string `json:"presentingComplaint"`
	AssociatedSymptoms              string `json:"associatedSymptoms"`
	Onset                           string `json:"onset"`
	Duration                        string `json:"duration"`
	AdditionalInformation           string `json:"additionalInformation"`
	OtherMedicalOrDentalInformation string `json:"otherMedicalOrDentalInformation"`
}

// Diagnosis is one differential-diagnosis candidate.
type Diagnosis struct {
	Name          string `json:"name"`
	Explanation   string `json:"explanation"`
	TreatmentPlan string `json:"treatmentPlan"`
}

// Transcript renders messages as "role: content" lines.
func Transcript(msgs []Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(lines, "\n")
}

// CountRole returns the number of messages authored by role.
func CountRole(msgs []Message, role Role) int {
	n := 0
	for _, m := range msgs {
		if m.Role == role {
			n++
		}
	}
	return n
}
