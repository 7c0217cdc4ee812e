package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/smartdoc/internal/interview"
	"github.com/antoniostano/smartdoc/internal/protocol"
)

const (
	wsReadLimit    = 1 << 20
	wsIdleTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// handleInterviewWS answers each turn_request frame with exactly one frame.
// The connection carries no interview state; the token travels in every frame.
func (s *Server) handleInterviewWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.WSConnections.Inc()
		defer s.metrics.WSConnections.Dec()
	}

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		return nil
	})

	ctx := r.Context()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("interview socket closed")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))

		out := s.handleFrame(ctx, data)
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(out); err != nil {
			s.log.Warn().Err(err).Msg("interview socket write failed")
			return
		}
		if t, ok := messageTypeOf(out); ok {
			s.observeWS("outbound", t)
		}
	}
}

func (s *Server) handleFrame(ctx context.Context, data []byte) any {
	parsed, err := protocol.ParseClientMessage(data)
	if err != nil {
		return protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			Code:      "invalid_client_message",
			Source:    "gateway",
			Retryable: false,
			Detail:    err.Error(),
		}
	}
	req := parsed.(protocol.TurnRequest)
	s.observeWS("inbound", req.Type)

	res, err := s.interviewer.Advance(ctx, interview.TurnRequest{
		UserID:         req.UserID,
		Message:        req.Message,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		_, code, retryable := classifyError(err)
		detail := err.Error()
		if code == "internal_error" {
			s.log.Error().Err(err).Msg("interview turn failed")
			detail = "internal error"
		}
		return protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			RequestID: req.RequestID,
			Code:      code,
			Source:    "interview",
			Retryable: retryable,
			Detail:    detail,
		}
	}
	return toTurnResponse(req.RequestID, res)
}

func toTurnResponse(requestID string, res interview.TurnResult) protocol.TurnResponse {
	out := protocol.TurnResponse{
		Type:           protocol.TypeTurnResponse,
		RequestID:      requestID,
		Message:        res.Message,
		ConversationID: res.ConversationID,
		IsComplete:     res.IsComplete,
	}
	if res.Diagnosis != nil {
		out.Diagnosis = &protocol.DiagnosisPayload{
			Summary:   res.Diagnosis.Summary,
			Diagnoses: res.Diagnosis.Diagnoses,
		}
	}
	return out
}

func (s *Server) observeWS(direction string, t protocol.MessageType) {
	if s.metrics == nil {
		return
	}
	s.metrics.WSMessages.WithLabelValues(direction, string(t)).Inc()
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.TurnRequest:
		return m.Type, true
	case protocol.TurnResponse:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
