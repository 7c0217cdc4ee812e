package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/antoniostano/smartdoc/internal/apperr"
	"github.com/antoniostano/smartdoc/internal/clinical"
)

const questionPrompt = `You are a professional medical AI acting as a doctor. Based on the following conversation:
%s

Ask the single most relevant and critical follow-up question to clarify the patient's issue and gather essential information for a differential diagnosis. The question should be empathetic, professional, and highly specific to the patient's reported symptoms or context. If no specific symptoms are provided, prioritize questions about primary complaints or general health. Return ONLY the question as plain text.

Examples of relevant questions:
- For a headache: 'Is the headache on one side or both sides of your head?'
- For chest pain: 'Does the chest pain feel sharp, dull, or like pressure?'
- For vague input: 'What specific symptoms are you experiencing right now?'`

const summaryPrompt = `You are a professional medical AI acting as a doctor. Based on the following conversation:
%s

Summarize the patient's complaints in a concise paragraph. If no specific symptoms were provided, note the lack of detailed information. Return ONLY the summary as plain text.`

// Gateway issues the interview's two oracle request shapes.
type Gateway struct {
	gen Generator
}

func NewGateway(gen Generator) *Gateway {
	return &Gateway{gen: gen}
}

func (g *Gateway) NextQuestion(ctx context.Context, transcript []clinical.Message) (string, error) {
	return g.ask(ctx, questionParams, questionPrompt, transcript)
}

func (g *Gateway) Summarize(ctx context.Context, transcript []clinical.Message) (string, error) {
	return g.ask(ctx, summaryParams, summaryPrompt, transcript)
}

func (g *Gateway) ask(ctx context.Context, params Request, template string, transcript []clinical.Message) (string, error) {
	embedded, err := renderTranscript(transcript)
	if err != nil {
		return "", apperr.External("oracle", string(params.Purpose), err)
	}
	req := params
	req.Prompt = fmt.Sprintf(template, embedded)

	text, err := g.gen.Generate(ctx, req)
	if err != nil {
		return "", apperr.External("oracle", string(params.Purpose), err)
	}
	return strings.TrimSpace(text), nil
}

func renderTranscript(transcript []clinical.Message) (string, error) {
	if transcript == nil {
		transcript = []clinical.Message{}
	}
	raw, err := json.Marshal(transcript)
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	return string(raw), nil
}
