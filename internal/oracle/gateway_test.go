package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoniostano/smartdoc/internal/apperr"
	"github.com/antoniostano/smartdoc/internal/clinical"
)

type recordingGenerator struct {
	text string
	err  error
	reqs []Request
}

func (g *recordingGenerator) Name() string { return "recording" }

func (g *recordingGenerator) Generate(_ context.Context, req Request) (string, error) {
	g.reqs = append(g.reqs, req)
	return g.text, g.err
}

var sampleTranscript = []clinical.Message{
	{Role: clinical.RoleAssistant, Content: "Please tell me your age and biological sex to get started."},
	{Role: clinical.RoleUser, Content: "29, female. I have a headache"},
}

func TestGatewayNextQuestion(t *testing.T) {
	gen := &recordingGenerator{text: "\n Is it on one side? \n"}
	q, err := NewGateway(gen).NextQuestion(context.Background(), sampleTranscript)
	require.NoError(t, err)
	assert.Equal(t, "Is it on one side?", q)

	require.Len(t, gen.reqs, 1)
	req := gen.reqs[0]
	assert.Equal(t, PurposeQuestion, req.Purpose)
	assert.Equal(t, 100, req.MaxOutputTokens)
	assert.Equal(t, 0.7, req.Temperature)
	assert.Equal(t, 0.9, req.TopP)
	assert.Contains(t, req.Prompt, `{"role":"user","content":"29, female. I have a headache"}`)
	assert.Contains(t, req.Prompt, "Return ONLY the question as plain text.")
}

func TestGatewaySummarize(t *testing.T) {
	gen := &recordingGenerator{text: "Headache in a 29 year old woman."}
	s, err := NewGateway(gen).Summarize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Headache in a 29 year old woman.", s)

	req := gen.reqs[0]
	assert.Equal(t, PurposeSummary, req.Purpose)
	assert.Equal(t, 200, req.MaxOutputTokens)
	assert.True(t, strings.Contains(req.Prompt, "conversation:\n[]"))
	assert.Contains(t, req.Prompt, "note the lack of detailed information")
}

func TestGatewayWrapsFailuresAsExternal(t *testing.T) {
	gen := &recordingGenerator{err: ErrNoCandidates}
	_, err := NewGateway(gen).NextQuestion(context.Background(), sampleTranscript)
	require.Error(t, err)
	assert.True(t, apperr.IsExternal(err))
	assert.True(t, errors.Is(err, ErrNoCandidates))

	var ext *apperr.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "oracle", ext.Service)
	assert.Equal(t, string(PurposeQuestion), ext.Op)
}

func TestMockGeneratorIsDeterministic(t *testing.T) {
	g := NewMockGenerator()
	a, err := g.Generate(context.Background(), Request{Purpose: PurposeQuestion, Prompt: "same"})
	require.NoError(t, err)
	b, err := g.Generate(context.Background(), Request{Purpose: PurposeQuestion, Prompt: "same"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, mockQuestions, a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx, Request{Purpose: PurposeSummary})
	assert.ErrorIs(t, err, context.Canceled)
}
