package interview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/antoniostano/smartdoc/internal/apperr"
	"github.com/antoniostano/smartdoc/internal/clinical"
	"github.com/antoniostano/smartdoc/internal/observability"
)

// DefaultCallTimeout bounds each external call made during a turn.
const DefaultCallTimeout = 30 * time.Second

// Questioner produces model-generated follow-up questions and the closing summary.
type Questioner interface {
	NextQuestion(ctx context.Context, transcript []clinical.Message) (string, error)
	Summarize(ctx context.Context, transcript []clinical.Message) (string, error)
}

// Diagnoser turns the accumulated clinical fields into differential diagnoses.
type Diagnoser interface {
	Diagnose(ctx context.Context, fields clinical.Fields, userID string) ([]clinical.Diagnosis, error)
}

// TurnRequest is one caller turn.
type TurnRequest struct {
	UserID         string `json:"userId"`
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

// DiagnosisResult is returned on the terminal turn.
type DiagnosisResult struct {
	Summary   string               `json:"summary"`
	Diagnoses []clinical.Diagnosis `json:"diagnoses"`
}

// TurnResult carries either a continuation token or, on the terminal turn, a diagnosis.
type TurnResult struct {
	Message        string           `json:"message"`
	ConversationID string           `json:"conversationId,omitempty"`
	Diagnosis      *DiagnosisResult `json:"diagnosis,omitempty"`
	IsComplete     bool             `json:"isComplete"`
}

// Orchestrator runs one interview turn per call. It holds no per-conversation
// state; everything needed for the next turn is in the returned token.
type Orchestrator struct {
	questioner  Questioner
	diagnoser   Diagnoser
	metrics     *observability.Metrics
	log         zerolog.Logger
	callTimeout time.Duration
}

func NewOrchestrator(
	questioner Questioner,
	diagnoser Diagnoser,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	callTimeout time.Duration,
) *Orchestrator {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Orchestrator{
		questioner:  questioner,
		diagnoser:   diagnoser,
		metrics:     metrics,
		log:         logger.With().Str("component", "interview").Logger(),
		callTimeout: callTimeout,
	}
}

// Advance runs decode, extract, decide, (oracle), encode for one turn.
func (o *Orchestrator) Advance(ctx context.Context, req TurnRequest) (TurnResult, error) {
	start := time.Now()
	res, decision, err := o.advance(ctx, req)
	if err != nil {
		switch {
		case apperr.IsValidation(err):
			o.metrics.ObserveTurnError("validation")
		case apperr.IsExternal(err):
			o.metrics.ObserveTurnError("external")
		default:
			o.metrics.ObserveTurnError("internal")
		}
		return TurnResult{}, err
	}
	o.metrics.ObserveTurn(string(decision.Kind), time.Since(start))
	return res, nil
}

func (o *Orchestrator) advance(ctx context.Context, req TurnRequest) (TurnResult, Decision, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return TurnResult{}, Decision{}, apperr.Required("userId")
	}

	decodeStart := time.Now()
	state := o.restore(req.ConversationID)
	o.metrics.ObserveStage("decode", time.Since(decodeStart))

	if req.Message != "" {
		// The token codec rewrites invalid UTF-8, so the stored transcript
		// and the extractor must see the same text.
		req.Message = strings.ToValidUTF8(req.Message, "\uFFFD")
		state.appendUser(req.Message)
		Extract(state, req.Message)
	}

	decision := Decide(state)
	log := o.log.With().
		Str("user_id", req.UserID).
		Str("decision", string(decision.Kind)).
		Int("question_count", state.AssistantQuestionCount).
		Logger()

	switch decision.Kind {
	case DecisionTerminate:
		result, err := o.conclude(ctx, state, req.UserID)
		if err != nil {
			log.Error().Err(err).Msg("terminal turn failed")
			return TurnResult{}, decision, err
		}
		log.Info().Int("diagnoses", len(result.Diagnoses)).Msg("interview complete")
		return TurnResult{
			Message:    AssessmentMessage,
			Diagnosis:  result,
			IsComplete: true,
		}, decision, nil
	case DecisionGenerated:
		q, err := o.nextQuestion(ctx, state.Messages)
		if err != nil {
			log.Error().Err(err).Msg("follow-up question failed")
			return TurnResult{}, decision, err
		}
		decision.Question = q
	case DecisionGate:
		log.Debug().Str("gate", string(decision.Gate)).Msg("mandatory question")
	}

	Apply(state, decision)
	token, err := Encode(state)
	if err != nil {
		return TurnResult{}, decision, fmt.Errorf("encode state: %w", err)
	}
	return TurnResult{
		Message:        decision.Question,
		ConversationID: token,
		IsComplete:     false,
	}, decision, nil
}

// restore never fails: a missing or unreadable token starts a new interview.
func (o *Orchestrator) restore(token string) *State {
	if token == "" {
		return NewState()
	}
	state, err := Decode(token)
	if err != nil {
		o.metrics.ObserveTokenRejected()
		o.log.Warn().Err(err).Int("token_len", len(token)).Msg("invalid conversation token; starting new conversation")
		return NewState()
	}
	return state
}

func (o *Orchestrator) nextQuestion(ctx context.Context, transcript []clinical.Message) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	start := time.Now()
	q, err := o.questioner.NextQuestion(callCtx, transcript)
	o.metrics.ObserveStage("oracle_question", time.Since(start))
	if err != nil {
		o.metrics.ObserveExternalError("oracle", "next_question")
		return "", apperr.External("oracle", "next_question", err)
	}
	return strings.TrimSpace(q), nil
}

// conclude runs the summary first and only then the diagnosis generator, so a
// failed summary never leaves a persisted diagnosis behind.
func (o *Orchestrator) conclude(ctx context.Context, state *State, userID string) (*DiagnosisResult, error) {
	summaryCtx, cancelSummary := context.WithTimeout(ctx, o.callTimeout)
	defer cancelSummary()

	start := time.Now()
	summary, err := o.questioner.Summarize(summaryCtx, state.Messages)
	o.metrics.ObserveStage("oracle_summary", time.Since(start))
	if err != nil {
		o.metrics.ObserveExternalError("oracle", "summarize")
		return nil, apperr.External("oracle", "summarize", err)
	}

	diagCtx, cancelDiag := context.WithTimeout(ctx, o.callTimeout)
	defer cancelDiag()

	start = time.Now()
	diagnoses, err := o.diagnoser.Diagnose(diagCtx, state.Fields, userID)
	o.metrics.ObserveStage("diagnosis", time.Since(start))
	if err != nil {
		o.metrics.ObserveExternalError("diagnosis", "diagnose")
		return nil, apperr.External("diagnosis", "diagnose", err)
	}

	return &DiagnosisResult{
		Summary:   strings.TrimSpace(summary),
		Diagnoses: diagnoses,
	}, nil
}
