package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

const (
	// minTextLen rejects pages whose extraction produced a stub too short
	// to summarize meaningfully.
	minTextLen = 50

	// maxTextLen keeps the prompt within the model's input limits. The
	// cut is a hard character truncation, not sentence-aware.
	maxTextLen = 100_000
)

var (
	// ErrTextTooShort means the extracted text failed the length precondition.
	ErrTextTooShort = errors.New("text too short to analyze")

	// ErrMalformedPayload means the model reply did not parse into the
	// expected schema. Per-article: the caller skips that entry only.
	ErrMalformedPayload = errors.New("malformed analysis payload")
)

// Analyzer sends article text through a Completer and parses the reply
// into a typed Analysis.
type Analyzer struct {
	completer Completer
	logger    *slog.Logger
}

var _ ports.Analyzer = (*Analyzer)(nil)

// NewAnalyzer wires the model client; the client owns its credentials.
func NewAnalyzer(completer Completer, logger *slog.Logger) *Analyzer {
	return &Analyzer{completer: completer, logger: logger}
}

// Analyze validates preconditions, invokes the model once, and parses the
// (possibly code-fenced) JSON reply.
func (a *Analyzer) Analyze(ctx context.Context, text string) (domain.Analysis, error) {
	text = strings.TrimSpace(text)
	if len(text) < minTextLen {
		return domain.Analysis{}, ErrTextTooShort
	}

	if len(text) > maxTextLen {
		a.warn("input text truncated", "original_len", len(text), "max_len", maxTextLen)
		text = text[:maxTextLen]
	}

	raw, err := a.completer.Complete(ctx, systemPrompt, buildUserPrompt(text))
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("invoke model: %w", err)
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		return domain.Analysis{}, err
	}

	if !analysis.Category.Known() {
		a.warn("model returned unknown category", "category", string(analysis.Category))
	}

	return analysis, nil
}

func (a *Analyzer) warn(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}

type analysisPayload struct {
	ExecutiveSummary string `json:"executive_summary"`
	BulletedAnalysis struct {
		CoreInnovation     string `json:"core_innovation"`
		ImpactedParties    string `json:"impacted_parties"`
		FutureAdvancements string `json:"future_advancements"`
	} `json:"bulleted_analysis"`
	KeyInformation []string `json:"key_information"`
	Categorize     string   `json:"categorize"`
}

// parseAnalysis strips an optional code fence, decodes the JSON object,
// and validates the fields the schema requires.
func parseAnalysis(raw string) (domain.Analysis, error) {
	stripped := stripCodeFence(raw)
	if stripped == "" {
		return domain.Analysis{}, fmt.Errorf("%w: empty reply", ErrMalformedPayload)
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(stripped), &payload); err != nil {
		return domain.Analysis{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if strings.TrimSpace(payload.ExecutiveSummary) == "" {
		return domain.Analysis{}, fmt.Errorf("%w: missing executive_summary", ErrMalformedPayload)
	}
	if strings.TrimSpace(payload.Categorize) == "" {
		return domain.Analysis{}, fmt.Errorf("%w: missing categorize", ErrMalformedPayload)
	}

	return domain.Analysis{
		Summary:    strings.TrimSpace(payload.ExecutiveSummary),
		Innovation: strings.TrimSpace(payload.BulletedAnalysis.CoreInnovation),
		Impact:     strings.TrimSpace(payload.BulletedAnalysis.ImpactedParties),
		Future:     strings.TrimSpace(payload.BulletedAnalysis.FutureAdvancements),
		KeyInfo:    payload.KeyInformation,
		Category:   domain.Category(strings.TrimSpace(payload.Categorize)),
	}, nil
}

// stripCodeFence removes a surrounding ``` or ```json wrapper, when present.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 && strings.EqualFold(strings.TrimSpace(s[:idx]), "json") {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
