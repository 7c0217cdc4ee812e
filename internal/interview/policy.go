package interview

// Gate thresholds are absolute assistant-question counts.
const (
	PastMedicalHistoryThreshold = 15
	SystemicReviewThreshold     = 17
	AdditionalInfoThreshold     = 18
	MaxQuestions                = 20
)

const (
	OpeningQuestion = "Please tell me your age and biological sex to get started."

	PastMedicalHistoryQuestion = "Now, let's discuss your past medical history. What is your genotype, Do you have any history of major illnesses, injuries, previous surgeries, psychiatric problems, hospitalizations, or drug allergies. Any history of hypertension, diabetes, asthma, pepetic ulcer, epilepsy?"

	SystemicReviewQuestion = "To complete our assessment, let's perform a brief review of systems. Do you have any issues with your vision, hearing, breathing, digestion, urination,  or any other systems in your body?"

	AdditionalInfoQuestion = "Is there any additional medical information you'd like to share before I provide an assessment?"

	AssessmentMessage = "Here is my assessment based on your symptoms."
)

// DecisionKind is the branch selected by the question policy for one turn.
type DecisionKind string

const (
	DecisionInitial   DecisionKind = "initial_question"
	DecisionGate      DecisionKind = "gate_question"
	DecisionGenerated DecisionKind = "generated_question"
	DecisionTerminate DecisionKind = "terminate"
)

// Gate names a mandatory question.
type Gate string

const (
	GatePastMedicalHistory Gate = "past_medical_history"
	GateSystemicReview     Gate = "systemic_review"
	GateAdditionalInfo     Gate = "additional_info"
)

// Decision is computed per turn and never persisted.
type Decision struct {
	Kind DecisionKind
	Gate Gate
	// Question is the fixed text for initial and gate decisions. Generated
	// questions are filled in by the orchestrator after the oracle call.
	Question string
}

type rule struct {
	name   string
	when   func(s *State) bool
	decide Decision
}

// rules is evaluated top to bottom; the first matching rule wins.
var rules = []rule{
	{
		name:   "empty_transcript",
		when:   func(s *State) bool { return len(s.Messages) == 0 },
		decide: Decision{Kind: DecisionInitial, Question: OpeningQuestion},
	},
	gateRule(GatePastMedicalHistory, PastMedicalHistoryThreshold, PastMedicalHistoryQuestion),
	gateRule(GateSystemicReview, SystemicReviewThreshold, SystemicReviewQuestion),
	gateRule(GateAdditionalInfo, AdditionalInfoThreshold, AdditionalInfoQuestion),
	{
		name:   "max_questions",
		when:   func(s *State) bool { return s.AssistantQuestionCount >= MaxQuestions },
		decide: Decision{Kind: DecisionTerminate},
	},
	{
		name:   "default",
		when:   func(*State) bool { return true },
		decide: Decision{Kind: DecisionGenerated},
	},
}

func gateRule(g Gate, threshold int, question string) rule {
	return rule{
		name: string(g),
		when: func(s *State) bool {
			return !*s.Gates.flag(g) && s.AssistantQuestionCount >= threshold
		},
		decide: Decision{Kind: DecisionGate, Gate: g, Question: question},
	}
}

func (g *GateFlags) flag(gate Gate) *bool {
	switch gate {
	case GatePastMedicalHistory:
		return &g.PastMedicalHistory
	case GateSystemicReview:
		return &g.SystemicReview
	case GateAdditionalInfo:
		return &g.AdditionalInfo
	default:
		panic("interview: unknown gate " + string(gate))
	}
}

// Decide selects the branch for the next assistant turn. It depends only on
// the question count, the gate flags and whether the transcript is empty.
func Decide(s *State) Decision {
	for _, r := range rules {
		if r.when(s) {
			return r.decide
		}
	}
	return Decision{Kind: DecisionGenerated}
}

// Apply records a non-terminal decision: it appends the assistant question,
// bumps the question count and sets the gate flag when one fired.
func Apply(s *State, d Decision) {
	if d.Kind == DecisionTerminate {
		return
	}
	if d.Kind == DecisionGate {
		*s.Gates.flag(d.Gate) = true
	}
	s.appendAssistant(d.Question)
}
