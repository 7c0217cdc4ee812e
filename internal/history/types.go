// Package history persists generated diagnoses per user.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/antoniostano/smartdoc/internal/clinical"
)

// ErrNotFound is returned by Get when no record with the id belongs to the user.
var ErrNotFound = errors.New("history record not found")

const defaultListLimit = 50

// Record is one diagnosis run: the (redacted) patient input and the differentials returned for it.
type Record struct {
	ID          string               `json:"id"`
	UserID      string               `json:"userId"`
	Input       clinical.Fields      `json:"input"`
	Diagnoses   []clinical.Diagnosis `json:"diagnoses"`
	PIIRedacted bool                 `json:"piiRedacted"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// Store persists and retrieves diagnosis history.
type Store interface {
	// Save assigns ID and CreatedAt when unset and returns the stored record.
	Save(ctx context.Context, record Record) (Record, error)
	// List returns the user's records, newest first. limit <= 0 uses a default.
	List(ctx context.Context, userID string, limit int) ([]Record, error)
	Get(ctx context.Context, userID, id string) (Record, error)
	// Mode names the backend for readiness reporting.
	Mode() string
	Close() error
}
