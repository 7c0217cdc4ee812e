package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/antoniostano/smartdoc/internal/reliability"
)

// HTTPGenerator calls a Gemini-compatible generateContent REST endpoint.
type HTTPGenerator struct {
	endpoint    string
	client      *http.Client
	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration
	log         zerolog.Logger
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

// statusError is a non-2xx reply from the endpoint.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("oracle http status %d: %s", e.code, e.body)
}

// NewHTTPGenerator builds a generator for apiURL, authenticating with the key query parameter.
// maxAttempts below 1 disables transport retries.
func NewHTTPGenerator(apiURL, apiKey string, timeout time.Duration, maxAttempts int, logger zerolog.Logger) (*HTTPGenerator, error) {
	apiURL = strings.TrimSpace(apiURL)
	apiKey = strings.TrimSpace(apiKey)
	if apiURL == "" || apiKey == "" {
		return nil, errors.New("oracle http mode requires an API url and key")
	}
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse oracle url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("oracle url must be http(s), got %q", u.Scheme)
	}
	q := u.Query()
	q.Set("key", apiKey)
	u.RawQuery = q.Encode()

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &HTTPGenerator{
		endpoint:    u.String(),
		client:      &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		backoffBase: 250 * time.Millisecond,
		backoffCap:  4 * time.Second,
		log:         logger.With().Str("component", "oracle_http").Logger(),
	}, nil
}

func (g *HTTPGenerator) Name() string { return "http" }

func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if attempt > 0 {
			wait := reliability.ExponentialBackoff(attempt-1, g.backoffBase, g.backoffCap)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		text, err := g.do(ctx, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !g.retryable(ctx, err) {
			break
		}
		g.log.Warn().Err(err).Str("purpose", string(req.Purpose)).Int("attempt", attempt+1).Msg("oracle call failed; retrying")
	}
	g.log.Error().Err(lastErr).Str("purpose", string(req.Purpose)).Msg("oracle call failed")
	return "", lastErr
}

func (g *HTTPGenerator) do(ctx context.Context, payload []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", redactKey(err))
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", &statusError{code: res.StatusCode, body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return parseGeminiResponse(body)
}

func parseGeminiResponse(body []byte) (string, error) {
	var env geminiResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("decode response envelope: %w", err)
	}
	if len(env.Candidates) == 0 {
		return "", ErrNoCandidates
	}
	parts := env.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", ErrEmptyCandidate
	}
	return parts[0].Text, nil
}

func (g *HTTPGenerator) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return reliability.IsRetryableHTTPStatus(se.code)
	}
	// Envelope problems are answers, not transport failures.
	if errors.Is(err, ErrNoCandidates) || errors.Is(err, ErrEmptyCandidate) {
		return false
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

// redactKey strips the query string from url errors so the API key never reaches logs.
func redactKey(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if u, perr := url.Parse(ue.URL); perr == nil {
			u.RawQuery = ""
			return &url.Error{Op: ue.Op, URL: u.String(), Err: ue.Err}
		}
	}
	return err
}
