package oracle

import (
	"context"
	"hash/fnv"
)

var mockQuestions = []string{
	"What specific symptoms are you experiencing right now?",
	"When did these symptoms first start?",
	"How severe is it on a scale from 0 to 10?",
	"Does anything make it better or worse?",
	"Have you taken any medication for this so far?",
}

const mockSummary = "The patient described their symptoms during a brief interview; detailed clinical information is limited."

const mockDiagnoses = `{"diagnoses":[` +
	`{"name":"Tension-type headache","explanation":"Common, often stress related.","treatmentPlan":"Rest, hydration and simple analgesics."},` +
	`{"name":"Viral illness","explanation":"Self-limiting infection with general symptoms.","treatmentPlan":"Supportive care and review if worsening."}` +
	`]}`

// MockGenerator returns deterministic canned text when no real oracle is configured.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

func (g *MockGenerator) Name() string { return "mock" }

func (g *MockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	switch req.Purpose {
	case PurposeSummary:
		return mockSummary, nil
	case PurposeDiagnosis:
		return "```json\n" + mockDiagnoses + "\n```", nil
	default:
		h := fnv.New32a()
		_, _ = h.Write([]byte(req.Prompt))
		return mockQuestions[h.Sum32()%uint32(len(mockQuestions))], nil
	}
}
