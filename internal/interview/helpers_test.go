package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/antoniostano/smartdoc/internal/clinical"
)

// stateWithQuestions builds a consistent state holding n assistant questions,
// each followed by a user answer.
func stateWithQuestions(n int, gates GateFlags) *State {
	s := NewState()
	for i := 0; i < n; i++ {
		s.appendAssistant(fmt.Sprintf("question %d?", i+1))
		s.appendUser(fmt.Sprintf("answer %d", i+1))
	}
	s.Gates = gates
	return s
}

type stubQuestioner struct {
	mu         sync.Mutex
	question   string
	summary    string
	err        error
	questions  int
	summaries  int
	transcript []clinical.Message
}

func (s *stubQuestioner) NextQuestion(_ context.Context, transcript []clinical.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions++
	s.transcript = append([]clinical.Message(nil), transcript...)
	if s.err != nil {
		return "", s.err
	}
	return s.question, nil
}

func (s *stubQuestioner) Summarize(_ context.Context, transcript []clinical.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries++
	s.transcript = append([]clinical.Message(nil), transcript...)
	if s.err != nil {
		return "", s.err
	}
	return s.summary, nil
}

type stubDiagnoser struct {
	diagnoses []clinical.Diagnosis
	err       error
	calls     int
	fields    clinical.Fields
	userID    string
}

func (s *stubDiagnoser) Diagnose(_ context.Context, fields clinical.Fields, userID string) ([]clinical.Diagnosis, error) {
	s.calls++
	s.fields = fields
	s.userID = userID
	if s.err != nil {
		return nil, s.err
	}
	return s.diagnoses, nil
}

var errNoCandidates = errors.New("oracle returned no candidates")

// blockingQuestioner waits for its context to end on every call.
type blockingQuestioner struct{ summary string }

func (blockingQuestioner) NextQuestion(ctx context.Context, _ []clinical.Message) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (q blockingQuestioner) Summarize(ctx context.Context, _ []clinical.Message) (string, error) {
	if q.summary != "" {
		return q.summary, nil
	}
	<-ctx.Done()
	return "", ctx.Err()
}

type blockingDiagnoser struct{}

func (blockingDiagnoser) Diagnose(ctx context.Context, _ clinical.Fields, _ string) ([]clinical.Diagnosis, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
