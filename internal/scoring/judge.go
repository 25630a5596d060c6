package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/amizuno/winscope/internal/llm"
	"github.com/amizuno/winscope/internal/ratelimit"
	"github.com/amizuno/winscope/internal/types"
)

// NeutralScore is the semantic score used when the external judgment call
// fails. A failed judgment never fails scoring.
const NeutralScore = 0.5

// maxJudgeText caps how much opportunity text is sent per judgment call.
const maxJudgeText = 1000

// judgeWaitBudget bounds how long a judgment call waits for a rate-limit
// token before giving up and returning the neutral score.
const judgeWaitBudget = 30 * time.Second

// Judge produces the semantic-fit factor: how well an opportunity's title
// and description match the operator's capabilities, on a 0 to 1 scale.
type Judge interface {
	SemanticFit(ctx context.Context, opp *types.Opportunity, profile *types.OperatorProfile) (float64, error)
}

// JudgmentError wraps a failed external semantic call. Callers neutralize
// it to NeutralScore rather than propagating it.
type JudgmentError struct {
	OpportunityID string
	Message       string
	Cause         error
}

func (e *JudgmentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("semantic judgment for %s: %s: %v", e.OpportunityID, e.Message, e.Cause)
	}
	return fmt.Sprintf("semantic judgment for %s: %s", e.OpportunityID, e.Message)
}

func (e *JudgmentError) Unwrap() error {
	return e.Cause
}

// LLMJudge asks a language model to rate capability fit. Calls share one
// token bucket so judgment traffic never bursts past the provider's limits.
type LLMJudge struct {
	client  llm.Client
	tier    llm.ModelTier
	limiter *ratelimit.TokenBucket
	verbose bool
}

// NewLLMJudge builds a judge over an existing model client. requestsPerMinute
// caps sustained call rate; values <= 0 disable throttling.
func NewLLMJudge(client llm.Client, requestsPerMinute int, verbose bool) *LLMJudge {
	var bucket *ratelimit.TokenBucket
	if requestsPerMinute > 0 {
		bucket = ratelimit.NewTokenBucket(requestsPerMinute, float64(requestsPerMinute)/60.0)
	}
	return &LLMJudge{
		client:  client,
		tier:    llm.TierLite,
		limiter: bucket,
		verbose: verbose,
	}
}

type fitResponse struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// SemanticFit rates the opportunity against the operator's capabilities.
// Any failure (rate-limit exhaustion, transport, unparseable output) is
// returned as a JudgmentError alongside the neutral score so the caller can
// log it and keep going.
func (j *LLMJudge) SemanticFit(ctx context.Context, opp *types.Opportunity, profile *types.OperatorProfile) (float64, error) {
	if j.limiter != nil && !j.limiter.Wait(time.Now().Add(judgeWaitBudget)) {
		return NeutralScore, &JudgmentError{OpportunityID: opp.ID, Message: "rate limit wait exceeded"}
	}

	prompt := buildFitPrompt(opp, profile)

	raw, err := j.client.GenerateJSON(ctx, prompt, j.tier)
	if err != nil {
		return NeutralScore, &JudgmentError{OpportunityID: opp.ID, Message: "model call failed", Cause: err}
	}

	var parsed fitResponse
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &parsed); err != nil {
		return NeutralScore, &JudgmentError{OpportunityID: opp.ID, Message: "unparseable response", Cause: err}
	}

	if j.verbose {
		fmt.Printf("  Semantic fit %.2f for %s: %s\n", parsed.Score, opp.ID, parsed.Rationale)
	}

	return clamp01(parsed.Score), nil
}

func buildFitPrompt(opp *types.Opportunity, profile *types.OperatorProfile) string {
	text := opp.Title + "\n\n" + opp.Description
	if len(text) > maxJudgeText {
		cut := maxJudgeText
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	return fmt.Sprintf(`Analyze this procurement opportunity and score how well it matches our capabilities on a 0-1 scale.

Our Capabilities:
%s

Opportunity:
%s

Scoring guide:
1.0 = Perfect match for multiple capabilities
0.5 = Related but not core capabilities
0.0 = Completely unrelated

Return JSON: {"score": <number between 0.0 and 1.0>, "rationale": "<one sentence>"}`,
		profile.CapabilityText(), text)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// StaticJudge returns a fixed semantic score. Used when no model credentials
// are configured and in tests.
type StaticJudge struct {
	Score float64
}

func (s *StaticJudge) SemanticFit(ctx context.Context, opp *types.Opportunity, profile *types.OperatorProfile) (float64, error) {
	return clamp01(s.Score), nil
}
