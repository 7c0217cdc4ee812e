// Package oracle adapts external text-generation services to the interview engine.
package oracle

import (
	"context"
	"errors"
)

// Purpose labels what a generation request is for. Mock output and logs key off it.
type Purpose string

const (
	PurposeQuestion  Purpose = "next_question"
	PurposeSummary   Purpose = "summarize"
	PurposeDiagnosis Purpose = "diagnose"
)

var (
	// ErrNoCandidates is returned when the service answered without any candidate text.
	ErrNoCandidates = errors.New("oracle returned no candidates")
	// ErrEmptyCandidate is returned when the first candidate carries no text part.
	ErrEmptyCandidate = errors.New("oracle candidate has no text parts")
)

// Request is a single-prompt generation call.
type Request struct {
	Purpose         Purpose
	Prompt          string
	Temperature     float64
	TopP            float64
	MaxOutputTokens int
}

// Generator is a text-generation backend. Implementations return the raw
// first-candidate text; callers trim and interpret it.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

var (
	questionParams  = Request{Purpose: PurposeQuestion, Temperature: 0.7, TopP: 0.9, MaxOutputTokens: 100}
	summaryParams   = Request{Purpose: PurposeSummary, Temperature: 0.7, TopP: 0.9, MaxOutputTokens: 200}
	diagnosisParams = Request{Purpose: PurposeDiagnosis, Temperature: 0.7, TopP: 0.9, MaxOutputTokens: 2000}
)

// DiagnosisRequest returns a request carrying the sampling parameters used for diagnosis prompts.
func DiagnosisRequest(prompt string) Request {
	req := diagnosisParams
	req.Prompt = prompt
	return req
}
