package enum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHypothesisTransitions(t *testing.T) {
	assert.True(t, HypothesisUnverified.CanTransitionTo(HypothesisAnalyzing))
	assert.False(t, HypothesisUnverified.CanTransitionTo(HypothesisConfirmed))
	assert.True(t, HypothesisAnalyzing.CanTransitionTo(HypothesisConfirmed))
	assert.True(t, HypothesisAnalyzing.CanTransitionTo(HypothesisDebunked))
	assert.True(t, HypothesisAnalyzing.CanTransitionTo(HypothesisPartiallyConfirmed))
	assert.True(t, HypothesisAnalyzing.CanTransitionTo(HypothesisInconclusive))
	assert.False(t, HypothesisConfirmed.CanTransitionTo(HypothesisAnalyzing))
	assert.Empty(t, HypothesisConfirmed.AllowedNext())
}

func TestTaskTransitions(t *testing.T) {
	assert.True(t, TaskOpen.CanTransitionTo(TaskInProgress))
	assert.False(t, TaskOpen.CanTransitionTo(TaskDone))
	assert.True(t, TaskInProgress.CanTransitionTo(TaskDone))
	assert.True(t, TaskInProgress.CanTransitionTo(TaskBlocked))
	assert.True(t, TaskBlocked.CanTransitionTo(TaskInProgress))
	assert.False(t, TaskBlocked.CanTransitionTo(TaskDone))
}

func TestIssueTransitions(t *testing.T) {
	assert.True(t, IssueOpen.CanTransitionTo(IssueInProgress))
	assert.True(t, IssueInProgress.CanTransitionTo(IssueAbandoned))
	assert.True(t, IssueBlocked.CanTransitionTo(IssueInProgress))
	assert.False(t, IssueDone.CanTransitionTo(IssueOpen))
}

func TestStudyTransitions(t *testing.T) {
	assert.True(t, StudyActive.CanTransitionTo(StudyConcluding))
	assert.True(t, StudyActive.CanTransitionTo(StudyAbandoned))
	assert.True(t, StudyConcluding.CanTransitionTo(StudyCompleted))
	assert.False(t, StudyCompleted.CanTransitionTo(StudyActive))
	assert.Empty(t, StudyCompleted.AllowedNext())
}

func TestResearchAndSessionTerminal(t *testing.T) {
	assert.Empty(t, ResearchResolved.AllowedNext())
	assert.Empty(t, ResearchAbandoned.AllowedNext())
	assert.Empty(t, SessionWrappedUp.AllowedNext())
	assert.Empty(t, SessionAbandoned.AllowedNext())
}

func TestCanonicalStrings(t *testing.T) {
	assert.Equal(t, "in_progress", TaskInProgress.String())
	assert.Equal(t, "partially_confirmed", HypothesisPartiallyConfirmed.String())
	assert.Equal(t, "relates_to", RelationRelatesTo.String())
}
