// Package protocol defines the websocket frames of the streaming interview transport.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/antoniostano/smartdoc/internal/clinical"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeTurnRequest  MessageType = "turn_request"
	TypeTurnResponse MessageType = "turn_response"
	TypeErrorEvent   MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// TurnRequest is one client turn. ConversationID is the continuation token from the previous response.
type TurnRequest struct {
	Type           MessageType `json:"type"`
	RequestID      string      `json:"requestId,omitempty"`
	UserID         string      `json:"userId"`
	Message        string      `json:"message"`
	ConversationID string      `json:"conversationId,omitempty"`
}

type DiagnosisPayload struct {
	Summary   string               `json:"summary"`
	Diagnoses []clinical.Diagnosis `json:"diagnoses"`
}

type TurnResponse struct {
	Type           MessageType       `json:"type"`
	RequestID      string            `json:"requestId,omitempty"`
	Message        string            `json:"message"`
	ConversationID string            `json:"conversationId,omitempty"`
	Diagnosis      *DiagnosisPayload `json:"diagnosis,omitempty"`
	IsComplete     bool              `json:"isComplete"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"requestId,omitempty"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

// ParseClientMessage decodes an inbound frame. Blank userId is left to the orchestrator
// so both transports report it the same way.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeTurnRequest:
		var msg TurnRequest
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		msg.RequestID = strings.TrimSpace(msg.RequestID)
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
