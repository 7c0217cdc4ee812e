package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoniostano/smartdoc/internal/apperr"
	"github.com/antoniostano/smartdoc/internal/config"
	"github.com/antoniostano/smartdoc/internal/diagnosis"
	"github.com/antoniostano/smartdoc/internal/history"
	"github.com/antoniostano/smartdoc/internal/interview"
	"github.com/antoniostano/smartdoc/internal/observability"
	"github.com/antoniostano/smartdoc/internal/oracle"
)

type testStack struct {
	ts    *httptest.Server
	store *history.InMemoryStore
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	gen := oracle.NewMockGenerator()
	store := history.NewInMemoryStore()
	metrics := observability.NewMetricsWith("test", prometheus.NewRegistry())
	diag := diagnosis.NewService(gen, store, metrics, zerolog.Nop())
	orch := interview.NewOrchestrator(oracle.NewGateway(gen), diag, metrics, zerolog.Nop(), time.Second)
	srv := New(config.Config{}, orch, diag, store, gen.Name(), metrics, zerolog.Nop())

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testStack{ts: ts, store: store}
}

func postJSON(t *testing.T, url string, body any, header map[string]string) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func decodeBody[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}

func TestTurnOpeningQuestionAndContinuation(t *testing.T) {
	st := newTestStack(t)

	res := postJSON(t, st.ts.URL+"/v1/interview/turn", map[string]string{"userId": "u1", "message": ""}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	first := decodeBody[interview.TurnResult](t, res)
	assert.Equal(t, interview.OpeningQuestion, first.Message)
	assert.False(t, first.IsComplete)
	require.NotEmpty(t, first.ConversationID)

	res = postJSON(t, st.ts.URL+"/v1/interview/turn", map[string]string{
		"userId":         "u1",
		"message":        "29, female, I have a headache",
		"conversationId": first.ConversationID,
	}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	second := decodeBody[interview.TurnResult](t, res)
	assert.NotEmpty(t, second.Message)
	assert.NotEqual(t, first.ConversationID, second.ConversationID)

	state, err := interview.Decode(second.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, 2, state.AssistantQuestionCount)
	assert.Equal(t, "Headache", state.Fields.PresentingComplaint)
}

func TestTurnLegacyAlias(t *testing.T) {
	st := newTestStack(t)
	res := postJSON(t, st.ts.URL+"/api/chat/chat", map[string]string{"userId": "u1"}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, interview.OpeningQuestion, decodeBody[interview.TurnResult](t, res).Message)
}

func TestTurnRejectsMissingUser(t *testing.T) {
	st := newTestStack(t)
	for _, body := range []any{map[string]string{"userId": "  ", "message": "hi"}, nil} {
		res := postJSON(t, st.ts.URL+"/v1/interview/turn", body, nil)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		got := decodeBody[errorResponse](t, res)
		assert.Equal(t, "validation_error", got.Code)
		assert.False(t, got.Retryable)
	}
}

func TestTurnRejectsMalformedBody(t *testing.T) {
	st := newTestStack(t)
	res, err := http.Post(st.ts.URL+"/v1/interview/turn", "application/json", strings.NewReader(`{"userId":`))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestOversizedBodiesAreRejected(t *testing.T) {
	st := newTestStack(t)
	big := strings.Repeat("a", maxBodyBytes+1)

	res := postJSON(t, st.ts.URL+"/v1/interview/turn", map[string]string{"userId": "u1", "message": big}, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, res.StatusCode)
	assert.Equal(t, "request_too_large", decodeBody[errorResponse](t, res).Code)

	res = postJSON(t, st.ts.URL+"/v1/diagnoses", map[string]string{"presentingComplaint": big}, map[string]string{userIDHeader: "u1"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, res.StatusCode)

	records, err := st.store.List(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTurnCorruptTokenStartsOver(t *testing.T) {
	st := newTestStack(t)
	res := postJSON(t, st.ts.URL+"/v1/interview/turn", map[string]string{
		"userId": "u1", "message": "", "conversationId": "%%%not-a-token",
	}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, interview.OpeningQuestion, decodeBody[interview.TurnResult](t, res).Message)
}

type failingInterviewer struct{ err error }

func (f failingInterviewer) Advance(context.Context, interview.TurnRequest) (interview.TurnResult, error) {
	return interview.TurnResult{}, f.err
}

func TestTurnErrorMapping(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"external", apperr.External("oracle", "next_question", oracle.ErrNoCandidates), http.StatusBadGateway, "external_service_error", true},
		{"validation", apperr.Required("userId"), http.StatusBadRequest, "validation_error", false},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "internal_error", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := New(config.Config{}, failingInterviewer{err: tc.err}, nil, history.NewInMemoryStore(), "mock", nil, zerolog.Nop())
			ts := httptest.NewServer(srv.Router())
			defer ts.Close()

			res := postJSON(t, ts.URL+"/v1/interview/turn", map[string]string{"userId": "u1"}, nil)
			assert.Equal(t, tc.status, res.StatusCode)
			got := decodeBody[errorResponse](t, res)
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.retryable, got.Retryable)
			if tc.name == "internal" {
				assert.NotContains(t, got.Error, "boom")
			}
		})
	}
}

func TestDiagnosisAndHistoryEndpoints(t *testing.T) {
	st := newTestStack(t)
	owner := map[string]string{userIDHeader: "patient-1"}

	res := postJSON(t, st.ts.URL+"/v1/diagnoses", map[string]string{
		"presentingComplaint": "Headache",
		"duration":            "3 days",
	}, owner)
	require.Equal(t, http.StatusOK, res.StatusCode)
	created := decodeBody[diagnosisResponse](t, res)
	require.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.Diagnoses)

	listReq, _ := http.NewRequest(http.MethodGet, st.ts.URL+"/v1/diagnoses/history", nil)
	listReq.Header.Set(userIDHeader, "patient-1")
	listRes, err := http.DefaultClient.Do(listReq)
	require.NoError(t, err)
	defer listRes.Body.Close()
	require.Equal(t, http.StatusOK, listRes.StatusCode)
	records := decodeBody[[]history.Record](t, listRes)
	require.Len(t, records, 1)
	assert.Equal(t, "Headache", records[0].Input.PresentingComplaint)

	getReq, _ := http.NewRequest(http.MethodGet, st.ts.URL+"/v1/diagnoses/history/"+created.ID, nil)
	getReq.Header.Set(userIDHeader, "patient-1")
	getRes, err := http.DefaultClient.Do(getReq)
	require.NoError(t, err)
	defer getRes.Body.Close()
	assert.Equal(t, http.StatusOK, getRes.StatusCode)

	otherReq, _ := http.NewRequest(http.MethodGet, st.ts.URL+"/v1/diagnoses/history/"+created.ID, nil)
	otherReq.Header.Set(userIDHeader, "patient-2")
	otherRes, err := http.DefaultClient.Do(otherReq)
	require.NoError(t, err)
	defer otherRes.Body.Close()
	assert.Equal(t, http.StatusNotFound, otherRes.StatusCode)
}

func TestDiagnosisValidation(t *testing.T) {
	st := newTestStack(t)

	res := postJSON(t, st.ts.URL+"/v1/diagnoses", map[string]string{"presentingComplaint": "Cough"}, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = postJSON(t, st.ts.URL+"/v1/diagnoses", map[string]string{"duration": "1 day"}, map[string]string{userIDHeader: "u1"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, decodeBody[errorResponse](t, res).Error, "presentingComplaint")

	records, err := st.store.List(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHealthAndReady(t *testing.T) {
	st := newTestStack(t)

	res, err := http.Get(st.ts.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get(requestIDHeader))

	ready, err := http.Get(st.ts.URL + "/readyz")
	require.NoError(t, err)
	defer ready.Body.Close()
	body := decodeBody[map[string]any](t, ready)
	assert.Equal(t, "mock", body["oracle_mode"])
	assert.Equal(t, "memory", body["history_store_mode"])
}

func TestPerfLatencyReportsTurnStages(t *testing.T) {
	st := newTestStack(t)
	postJSON(t, st.ts.URL+"/v1/interview/turn", map[string]string{"userId": "u1"}, nil)

	res, err := http.Get(st.ts.URL + "/v1/perf/latency")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	snap := decodeBody[observability.TurnProfile](t, res)
	assert.NotEmpty(t, snap.Stages)
}
