// Package scoring converts canonical opportunities into ranked, scored
// opportunities using a five-factor model. Four factors are deterministic
// functions of the opportunity and the operator profile; the fifth delegates
// capability fit to an external model and degrades to a neutral score when
// that call fails.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/amizuno/winscope/internal/types"
)

// DefaultQualificationThreshold is the minimum score for an opportunity to
// enter the bid pipeline.
const DefaultQualificationThreshold = 50.0

// Engine scores opportunities against one operator profile.
type Engine struct {
	profile *types.OperatorProfile
	judge   Judge
	verbose bool
}

// NewEngine builds a scoring engine. judge may not be nil; pass a StaticJudge
// when no external model is available.
func NewEngine(profile *types.OperatorProfile, judge Judge, verbose bool) *Engine {
	return &Engine{profile: profile, judge: judge, verbose: verbose}
}

// Score computes the weighted five-factor score for one opportunity.
// Judgment failures are absorbed: the semantic factor falls back to
// NeutralScore and the returned error is the JudgmentError for logging.
// The ScoredOpportunity is valid either way.
func (e *Engine) Score(ctx context.Context, opp types.Opportunity) (types.ScoredOpportunity, error) {
	factors := types.Factors{
		Category:  categoryFactor(opp.Codes, e.profile),
		Value:     valueFactor(opp.EstimatedValue, e.profile),
		Geography: geographyFactor(opp.Location, e.profile),
		SetAside:  setAsideFactor(opp.SetAside),
	}

	semantic, judgeErr := e.judge.SemanticFit(ctx, &opp, e.profile)
	factors.Semantic = semantic

	total := factors.Category*weightCategory +
		factors.Value*weightValue +
		factors.Geography*weightGeo +
		factors.SetAside*weightSetAside +
		factors.Semantic*weightSemantic

	scored := types.ScoredOpportunity{
		Opportunity: opp,
		Factors:     factors,
		Score:       round2(total),
	}

	if e.verbose {
		fmt.Printf("  Scored %.2f: %s (%s)\n", scored.Score, opp.Title, opp.ID)
	}

	return scored, judgeErr
}

// ScoreAll scores every opportunity and returns them ranked best-first.
// Judgment errors are collected, not fatal.
func (e *Engine) ScoreAll(ctx context.Context, opps []types.Opportunity) ([]types.ScoredOpportunity, []error) {
	scored := make([]types.ScoredOpportunity, 0, len(opps))
	var errs []error

	for _, opp := range opps {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		s, err := e.Score(ctx, opp)
		if err != nil {
			errs = append(errs, err)
		}
		scored = append(scored, s)
	}

	Rank(scored)
	return scored, errs
}

// Qualifies reports whether a score clears the threshold. The boundary is
// inclusive: scoring exactly at the threshold qualifies.
func Qualifies(score, threshold float64) bool {
	return score >= threshold
}

// Rank sorts scored opportunities in place, highest score first. Ties break
// by earlier posted date, then by first contributing source name, then by ID
// so ordering is deterministic.
func Rank(scored []types.ScoredOpportunity) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		oi, oj := scored[i].Opportunity, scored[j].Opportunity
		if !oi.PostedDate.Equal(oj.PostedDate) {
			return oi.PostedDate.Before(oj.PostedDate)
		}
		if si, sj := firstSource(oi), firstSource(oj); si != sj {
			return si < sj
		}
		return oi.ID < oj.ID
	})
}

func firstSource(o types.Opportunity) string {
	if len(o.Sources) == 0 {
		return ""
	}
	return o.Sources[0]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
