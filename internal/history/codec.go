package history

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/antoniostano/smartdoc/internal/clinical"
)

// prepare fills the server-assigned columns.
func prepare(record Record) Record {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.Diagnoses == nil {
		record.Diagnoses = []clinical.Diagnosis{}
	}
	return record
}

func encodePayload(record Record) (input, diagnoses []byte, err error) {
	input, err = sonic.ConfigStd.Marshal(record.Input)
	if err != nil {
		return nil, nil, fmt.Errorf("encode input: %w", err)
	}
	diagnoses, err = sonic.ConfigStd.Marshal(record.Diagnoses)
	if err != nil {
		return nil, nil, fmt.Errorf("encode diagnoses: %w", err)
	}
	return input, diagnoses, nil
}

func decodePayload(record *Record, input, diagnoses []byte) error {
	if err := sonic.ConfigStd.Unmarshal(input, &record.Input); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	if err := sonic.ConfigStd.Unmarshal(diagnoses, &record.Diagnoses); err != nil {
		return fmt.Errorf("decode diagnoses: %w", err)
	}
	if record.Diagnoses == nil {
		record.Diagnoses = []clinical.Diagnosis{}
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
