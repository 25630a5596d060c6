package types

import "fmt"

// Stage is a named point in an opportunity's lifecycle.
type Stage string

// Pipeline stages, in lifecycle order. NoBid branches off Qualified;
// Won and Lost branch off ProposalSubmitted. NoBid, Won, and Lost are terminal.
const (
	StageDiscovered          Stage = "discovered"
	StageScored              Stage = "scored"
	StageQualified           Stage = "qualified"
	StageNoBid               Stage = "no_bid"
	StageDocumentsDownloaded Stage = "documents_downloaded"
	StageDataExtracted       Stage = "data_extracted"
	StageRfqGenerated        Stage = "rfq_generated"
	StageRfqSent             Stage = "rfq_sent"
	StageQuotesReceived      Stage = "quotes_received"
	StageProposalGenerated   Stage = "proposal_generated"
	StageProposalSubmitted   Stage = "proposal_submitted"
	StageWon                 Stage = "won"
	StageLost                Stage = "lost"
)

// stageIndex assigns each stage a monotonically increasing position.
// Forward transitions must strictly increase this index.
var stageIndex = map[Stage]int{
	StageDiscovered:          0,
	StageScored:              1,
	StageQualified:           2,
	StageNoBid:               3,
	StageDocumentsDownloaded: 4,
	StageDataExtracted:       5,
	StageRfqGenerated:        6,
	StageRfqSent:             7,
	StageQuotesReceived:      8,
	StageProposalGenerated:   9,
	StageProposalSubmitted:   10,
	StageWon:                 11,
	StageLost:                12,
}

// nextStages defines the legal forward transitions out of each stage.
var nextStages = map[Stage][]Stage{
	StageDiscovered:          {StageScored},
	StageScored:              {StageQualified},
	StageQualified:           {StageNoBid, StageDocumentsDownloaded},
	StageDocumentsDownloaded: {StageDataExtracted},
	StageDataExtracted:       {StageRfqGenerated},
	StageRfqGenerated:        {StageRfqSent},
	StageRfqSent:             {StageQuotesReceived},
	StageQuotesReceived:      {StageProposalGenerated},
	StageProposalGenerated:   {StageProposalSubmitted},
	StageProposalSubmitted:   {StageWon, StageLost},
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := stageIndex[s]
	return ok
}

// Index returns the monotonic position of the stage, or -1 if unknown.
func (s Stage) Index() int {
	idx, ok := stageIndex[s]
	if !ok {
		return -1
	}
	return idx
}

// Terminal reports whether s ends the lifecycle. Terminal records are
// retained for learning, never deleted.
func (s Stage) Terminal() bool {
	switch s {
	case StageNoBid, StageWon, StageLost:
		return true
	}
	return false
}

// CanCorrectTo reports whether a manual correction from s to target is
// legal. Corrections only move backward; forward movement must earn its
// transitions through CanAdvance.
func (s Stage) CanCorrectTo(target Stage) bool {
	ti := target.Index()
	return ti >= 0 && ti < s.Index()
}

// CanAdvance reports whether a forward transition from s to next is legal.
func (s Stage) CanAdvance(next Stage) bool {
	for _, candidate := range nextStages[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// InvalidTransitionError reports an attempted transition outside the
// lifecycle's forward edges.
type InvalidTransitionError struct {
	From Stage
	To   Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid stage transition: %s -> %s", e.From, e.To)
}
