package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStage_ForwardPath(t *testing.T) {
	path := []Stage{
		StageDiscovered, StageScored, StageQualified, StageDocumentsDownloaded,
		StageDataExtracted, StageRfqGenerated, StageRfqSent, StageQuotesReceived,
		StageProposalGenerated, StageProposalSubmitted, StageWon,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, path[i].CanAdvance(path[i+1]),
			"%s should advance to %s", path[i], path[i+1])
		assert.Greater(t, path[i+1].Index(), path[i].Index(),
			"indices must strictly increase along the forward path")
	}
}

func TestStage_Branches(t *testing.T) {
	assert.True(t, StageQualified.CanAdvance(StageNoBid))
	assert.True(t, StageQualified.CanAdvance(StageDocumentsDownloaded))
	assert.True(t, StageProposalSubmitted.CanAdvance(StageWon))
	assert.True(t, StageProposalSubmitted.CanAdvance(StageLost))
}

func TestStage_NoBackwardOrSkippingTransitions(t *testing.T) {
	assert.False(t, StageScored.CanAdvance(StageDiscovered), "no backward moves")
	assert.False(t, StageDiscovered.CanAdvance(StageQualified), "no skipping ahead")
	assert.False(t, StageQualified.CanAdvance(StageWon))
	assert.False(t, StageScored.CanAdvance(StageNoBid), "no-bid branches only off qualified")
}

func TestStage_TerminalStagesHaveNoExits(t *testing.T) {
	for _, terminal := range []Stage{StageNoBid, StageWon, StageLost} {
		assert.True(t, terminal.Terminal())
		for stage := range stageIndex {
			assert.False(t, terminal.CanAdvance(stage),
				"%s is terminal and must not advance to %s", terminal, stage)
		}
	}
}

func TestStage_Valid(t *testing.T) {
	assert.True(t, StageRfqSent.Valid())
	assert.False(t, Stage("archived").Valid())
	assert.Equal(t, -1, Stage("archived").Index())
}

func TestStage_CorrectionsOnlyMoveBackward(t *testing.T) {
	assert.True(t, StageRfqSent.CanCorrectTo(StageQualified))
	assert.True(t, StageWon.CanCorrectTo(StageProposalSubmitted))
	assert.False(t, StageQualified.CanCorrectTo(StageRfqSent), "no forward corrections")
	assert.False(t, StageScored.CanCorrectTo(StageWon), "corrections cannot skip around the forward path")
	assert.False(t, StageScored.CanCorrectTo(StageScored), "a correction must change the stage")
	assert.False(t, StageWon.CanCorrectTo(Stage("archived")))
}

func TestInvalidTransitionError_Message(t *testing.T) {
	err := &InvalidTransitionError{From: StageWon, To: StageScored}
	assert.Contains(t, err.Error(), "won")
	assert.Contains(t, err.Error(), "scored")
}
