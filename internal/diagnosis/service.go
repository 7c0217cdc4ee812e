// Package diagnosis asks the oracle for differential diagnoses and records them in history.
package diagnosis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/antoniostano/smartdoc/internal/apperr"
	"github.com/antoniostano/smartdoc/internal/clinical"
	"github.com/antoniostano/smartdoc/internal/history"
	"github.com/antoniostano/smartdoc/internal/observability"
	"github.com/antoniostano/smartdoc/internal/oracle"
	"github.com/antoniostano/smartdoc/internal/policy"
)

// ErrNoDiagnoses is returned when the model output parses but holds no diagnoses.
var ErrNoDiagnoses = errors.New("oracle returned no valid diagnoses")

const promptTemplate = `You are a professional medical AI. Based on the following patient data:
Presenting Complaint: %s
Associated Symptoms: %s
Onset: %s
Duration: %s
Additional Information: %s
Other Medical or Dental Information: %s

Provide 6 differential diagnoses with:
1. A brief explanation for each
2. A possible treatment plan for each diagnosis

Return ONLY the following JSON format (no Markdown, no additional text):
{
  "diagnoses": [
    {
      "name": "Diagnosis Name",
      "explanation": "Brief explanation",
      "treatmentPlan": "Treatment plan details"
    }
  ]
}`

type response struct {
	Diagnoses []clinical.Diagnosis `json:"diagnoses"`
}

// Service generates diagnoses and persists each successful run.
type Service struct {
	gen     oracle.Generator
	store   history.Store
	metrics *observability.Metrics
	log     zerolog.Logger
}

func NewService(gen oracle.Generator, store history.Store, metrics *observability.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		gen:     gen,
		store:   store,
		metrics: metrics,
		log:     logger.With().Str("component", "diagnosis").Logger(),
	}
}

// Diagnose satisfies interview.Diagnoser.
func (s *Service) Diagnose(ctx context.Context, fields clinical.Fields, userID string) ([]clinical.Diagnosis, error) {
	rec, err := s.Run(ctx, fields, userID)
	if err != nil {
		return nil, err
	}
	return rec.Diagnoses, nil
}

// Run generates diagnoses for fields and returns the saved history record.
// The record's Input is the redacted copy; Diagnoses are returned as generated.
func (s *Service) Run(ctx context.Context, fields clinical.Fields, userID string) (history.Record, error) {
	if strings.TrimSpace(userID) == "" {
		return history.Record{}, apperr.Required("userId")
	}

	raw, err := s.gen.Generate(ctx, oracle.DiagnosisRequest(buildPrompt(fields)))
	if err != nil {
		s.log.Error().Err(err).Str("backend", s.gen.Name()).Msg("diagnosis generation failed")
		return history.Record{}, apperr.External("oracle", string(oracle.PurposeDiagnosis), err)
	}

	diagnoses, err := parse(raw)
	if err != nil {
		s.log.Error().Err(err).Int("response_bytes", len(raw)).Msg("diagnosis response rejected")
		return history.Record{}, apperr.External("oracle", string(oracle.PurposeDiagnosis), err)
	}

	redacted, changed := policy.RedactFields(fields)
	rec, err := s.store.Save(ctx, history.Record{
		UserID:      userID,
		Input:       redacted,
		Diagnoses:   diagnoses,
		PIIRedacted: changed,
	})
	if err != nil {
		s.log.Error().Err(err).Str("store", s.store.Mode()).Msg("save diagnosis history failed")
		return history.Record{}, apperr.External("history", "save", err)
	}
	s.metrics.ObserveDiagnosisSaved()
	s.log.Info().Str("record_id", rec.ID).Int("diagnoses", len(diagnoses)).Bool("pii_redacted", changed).Msg("diagnosis saved")
	return rec, nil
}

func buildPrompt(f clinical.Fields) string {
	return fmt.Sprintf(promptTemplate,
		f.PresentingComplaint,
		f.AssociatedSymptoms,
		f.Onset,
		f.Duration,
		f.AdditionalInformation,
		f.OtherMedicalOrDentalInformation,
	)
}

// stripFences removes markdown code fences the model adds despite instructions.
func stripFences(raw string) string {
	out := strings.ReplaceAll(raw, "```json", "")
	out = strings.ReplaceAll(out, "```", "")
	return strings.TrimSpace(out)
}

func parse(raw string) ([]clinical.Diagnosis, error) {
	cleaned := []byte(stripFences(raw))
	if err := validate(cleaned); err != nil {
		return nil, err
	}
	var resp response
	if err := json.Unmarshal(cleaned, &resp); err != nil {
		return nil, fmt.Errorf("decode diagnoses: %w", err)
	}
	if len(resp.Diagnoses) == 0 {
		return nil, ErrNoDiagnoses
	}
	return resp.Diagnoses, nil
}
