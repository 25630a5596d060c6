package scoring

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amizuno/winscope/internal/llm"
)

// fakeLLM returns canned responses without network access.
type fakeLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier)
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeLLM) GetModel(tier llm.ModelTier) string { return "fake" }
func (f *fakeLLM) Close() error                       { return nil }

func TestLLMJudge_ParsesScore(t *testing.T) {
	client := &fakeLLM{response: `{"score": 0.85, "rationale": "strong overlap with robot integration"}`}
	judge := NewLLMJudge(client, 0, false)

	opp := sampleOpportunity()
	score, err := judge.SemanticFit(context.Background(), &opp, testProfile())
	require.NoError(t, err)
	assert.Equal(t, 0.85, score)
}

func TestLLMJudge_HandlesFencedJSON(t *testing.T) {
	client := &fakeLLM{response: "```json\n{\"score\": 0.4, \"rationale\": \"partial\"}\n```"}
	judge := NewLLMJudge(client, 0, false)

	opp := sampleOpportunity()
	score, err := judge.SemanticFit(context.Background(), &opp, testProfile())
	require.NoError(t, err)
	assert.Equal(t, 0.4, score)
}

func TestLLMJudge_ClampsOutOfRangeScores(t *testing.T) {
	tests := []struct {
		response string
		want     float64
	}{
		{`{"score": 1.7}`, 1.0},
		{`{"score": -0.3}`, 0.0},
	}
	for _, tt := range tests {
		client := &fakeLLM{response: tt.response}
		judge := NewLLMJudge(client, 0, false)

		opp := sampleOpportunity()
		score, err := judge.SemanticFit(context.Background(), &opp, testProfile())
		require.NoError(t, err)
		assert.Equal(t, tt.want, score)
	}
}

func TestLLMJudge_NeutralOnTransportError(t *testing.T) {
	client := &fakeLLM{err: fmt.Errorf("connection reset")}
	judge := NewLLMJudge(client, 0, false)

	opp := sampleOpportunity()
	score, err := judge.SemanticFit(context.Background(), &opp, testProfile())

	require.Error(t, err)
	var judgment *JudgmentError
	require.ErrorAs(t, err, &judgment)
	assert.Equal(t, NeutralScore, score)
}

func TestLLMJudge_NeutralOnGarbageResponse(t *testing.T) {
	client := &fakeLLM{response: "I cannot score this opportunity."}
	judge := NewLLMJudge(client, 0, false)

	opp := sampleOpportunity()
	score, err := judge.SemanticFit(context.Background(), &opp, testProfile())

	require.Error(t, err)
	assert.Equal(t, NeutralScore, score)
}

func TestLLMJudge_PromptCarriesCapabilitiesAndText(t *testing.T) {
	client := &fakeLLM{response: `{"score": 0.5}`}
	judge := NewLLMJudge(client, 0, false)

	opp := sampleOpportunity()
	_, err := judge.SemanticFit(context.Background(), &opp, testProfile())
	require.NoError(t, err)

	require.Len(t, client.prompts, 1)
	prompt := client.prompts[0]
	assert.Contains(t, prompt, "Robot integration")
	assert.Contains(t, prompt, opp.Title)
}

func TestLLMJudge_TruncatesLongOpportunityText(t *testing.T) {
	client := &fakeLLM{response: `{"score": 0.5}`}
	judge := NewLLMJudge(client, 0, false)

	opp := sampleOpportunity()
	opp.Description = strings.Repeat("specification detail ", 500)
	_, err := judge.SemanticFit(context.Background(), &opp, testProfile())
	require.NoError(t, err)

	require.Len(t, client.prompts, 1)
	assert.Less(t, len(client.prompts[0]), 2000, "opportunity text is capped before prompting")
}

func TestLLMJudge_TruncationKeepsValidUTF8(t *testing.T) {
	client := &fakeLLM{response: `{"score": 0.5}`}
	judge := NewLLMJudge(client, 0, false)

	opp := sampleOpportunity()
	opp.Description = strings.Repeat("日本語の調達仕様書", 200)
	_, err := judge.SemanticFit(context.Background(), &opp, testProfile())
	require.NoError(t, err)

	require.Len(t, client.prompts, 1)
	assert.True(t, utf8.ValidString(client.prompts[0]), "truncation must not split a rune")
}

func TestStaticJudge(t *testing.T) {
	opp := sampleOpportunity()

	judge := &StaticJudge{Score: 0.7}
	score, err := judge.SemanticFit(context.Background(), &opp, testProfile())
	require.NoError(t, err)
	assert.Equal(t, 0.7, score)

	clamped := &StaticJudge{Score: 3}
	score, err = clamped.SemanticFit(context.Background(), &opp, testProfile())
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}
