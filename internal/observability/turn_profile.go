package observability

import (
	"math"
	"slices"
	"sort"
	"sync"
	"time"
)

// stageTargets are the p95 budgets (ms) for each step of an interview turn.
var stageTargets = map[string]float64{
	"decode":          5,
	"oracle_question": 4000,
	"oracle_summary":  6000,
	"diagnosis":       15000,
	"turn_total":      8000,
}

// StageLatency summarises the recent samples of one turn stage.
type StageLatency struct {
	Stage       string  `json:"stage"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	AvgMS       float64 `json:"avg_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	P99MS       float64 `json:"p99_ms"`
	TargetP95MS float64 `json:"target_p95_ms,omitempty"`
	OverTarget  int     `json:"over_target,omitempty"`
}

// OutcomeCount counts turn outcomes (policy decisions, token rejections) since start.
type OutcomeCount struct {
	Outcome string `json:"outcome"`
	Count   int    `json:"count"`
}

// TurnProfile is the payload of /v1/perf/latency.
type TurnProfile struct {
	GeneratedAt time.Time      `json:"generated_at"`
	WindowSize  int            `json:"window_size"`
	Stages      []StageLatency `json:"stages"`
	Outcomes    []OutcomeCount `json:"outcomes,omitempty"`
}

// turnProfiler keeps the last window samples per stage.
type turnProfiler struct {
	mu       sync.Mutex
	window   int
	samples  map[string][]float64
	outcomes map[string]int
}

func newTurnProfiler(window int) *turnProfiler {
	if window <= 0 {
		window = 256
	}
	return &turnProfiler{
		window:   window,
		samples:  make(map[string][]float64),
		outcomes: make(map[string]int),
	}
}

func (p *turnProfiler) record(stage string, ms float64) {
	if stage == "" || ms < 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	s := append(p.samples[stage], ms)
	if len(s) > p.window {
		s = s[len(s)-p.window:]
	}
	p.samples[stage] = s
}

func (p *turnProfiler) count(outcome string) {
	if outcome == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes[outcome]++
}

func (p *turnProfiler) profile() TurnProfile {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := TurnProfile{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  p.window,
		Stages:      make([]StageLatency, 0, len(p.samples)),
	}
	for _, stage := range sortedKeys(p.samples) {
		if s := p.samples[stage]; len(s) > 0 {
			out.Stages = append(out.Stages, summarize(stage, s))
		}
	}
	for _, name := range sortedKeys(p.outcomes) {
		out.Outcomes = append(out.Outcomes, OutcomeCount{Outcome: name, Count: p.outcomes[name]})
	}
	return out
}

func summarize(stage string, recent []float64) StageLatency {
	sorted := slices.Clone(recent)
	sort.Float64s(sorted)

	target := stageTargets[stage]
	var sum float64
	var over int
	for _, v := range sorted {
		sum += v
		if target > 0 && v > target {
			over++
		}
	}
	return StageLatency{
		Stage:       stage,
		Samples:     len(sorted),
		LastMS:      round2(recent[len(recent)-1]),
		AvgMS:       round2(sum / float64(len(sorted))),
		P50MS:       round2(percentile(sorted, 0.50)),
		P95MS:       round2(percentile(sorted, 0.95)),
		P99MS:       round2(percentile(sorted, 0.99)),
		TargetP95MS: target,
		OverTarget:  over,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// percentile interpolates linearly between the two nearest ranks of sorted.
func percentile(sorted []float64, q float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo, hi := int(math.Floor(pos)), int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
