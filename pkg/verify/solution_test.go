package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonberrylabs/formula-verifier/pkg/formula"
	"github.com/lemonberrylabs/formula-verifier/pkg/types"
)

var kinematics = Problem{
	Given:    formula.Env{"u": 0, "a": 3, "t": 10},
	Expected: ptr(30),
}

func kinematicsStep() Step {
	return Step{
		Formula:   "v = u + a*t",
		Variables: map[string]any{"u": 0, "a": 3, "t": 10},
	}
}

func TestVerifySolutionCorrect(t *testing.T) {
	res := VerifySolution(Submission{
		Steps:       []Step{kinematicsStep()},
		FinalAnswer: &Answer{Value: ptr(30), Unit: "m/s"},
	}, kinematics, 0)

	assert.True(t, res.Correct, "issues: %v", res.Issues)
	assert.Empty(t, res.Issues)
	require.Len(t, res.Computed, 1)
	assert.InDelta(t, 30, *res.Computed[0].RHS, 1e-9)
	assert.True(t, res.FinalCheck.OK)
	assert.InDelta(t, 30, *res.FinalCheck.Got, 1e-9)
}

func TestVerifySolutionUsesLastStepValue(t *testing.T) {
	res := VerifySolution(Submission{
		Steps: []Step{
			{Formula: "a*t", Variables: map[string]any{"a": 3, "t": 10}},
			kinematicsStep(),
		},
	}, kinematics, 0)

	assert.True(t, res.Correct, "issues: %v", res.Issues)
	require.NotNil(t, res.FinalCheck.Got)
	assert.InDelta(t, 30, *res.FinalCheck.Got, 1e-9)
}

func TestVerifySolutionWrongFinalAnswer(t *testing.T) {
	res := VerifySolution(Submission{
		Steps:       []Step{kinematicsStep()},
		FinalAnswer: &Answer{Value: ptr(31)},
	}, kinematics, 0)

	assert.False(t, res.Correct)
	assert.Equal(t, []types.Kind{types.KindFinalAnswerIncorrect}, kinds(res.Issues))
	assert.Equal(t, "Expected 30 but got 31", res.Issues[0].Message)
	assert.Nil(t, res.Issues[0].StepIndex)
	assert.False(t, res.FinalCheck.OK)
}

func TestVerifySolutionStampsStepIndex(t *testing.T) {
	res := VerifySolution(Submission{
		Steps: []Step{
			kinematicsStep(),
			{Formula: "x = 1 / y", Variables: map[string]any{"y": 0, "t": 10}},
		},
		FinalAnswer: &Answer{Value: ptr(30)},
	}, kinematics, 0)

	require.Equal(t, []types.Kind{types.KindDivisionByZero}, kinds(res.Issues))
	require.NotNil(t, res.Issues[0].StepIndex)
	assert.Equal(t, 1, *res.Issues[0].StepIndex)
}

func TestVerifySolutionNoSteps(t *testing.T) {
	res := VerifySolution(Submission{}, kinematics, 0)

	assert.False(t, res.Correct)
	assert.Contains(t, kinds(res.Issues), types.KindNoSteps)
	assert.Empty(t, res.Computed)
	assert.Nil(t, res.FinalCheck.Got)
}

func TestVerifySolutionCheatingSuspected(t *testing.T) {
	res := VerifySolution(Submission{
		Steps: []Step{{Formula: "30"}},
	}, kinematics, 0)

	assert.Equal(t, []types.Kind{types.KindCheatingSuspected}, kinds(res.Issues))

	// No givens means nothing to reference.
	res = VerifySolution(Submission{Steps: []Step{{Formula: "30"}}}, Problem{Expected: ptr(30)}, 0)
	assert.True(t, res.Correct)
}

func TestFeedback(t *testing.T) {
	msgs := Feedback(Submission{
		Steps: []Step{
			kinematicsStep(),
			{Formula: "31 = u + a*t", Variables: map[string]any{"u": 0, "a": 3, "t": 10}},
		},
	}, kinematics, 0)

	require.Len(t, msgs, 4)

	assert.Equal(t, FeedbackOK, msgs[0].Status)
	assert.Equal(t, 0, *msgs[0].StepIndex)

	assert.Equal(t, FeedbackError, msgs[1].Status)
	assert.Equal(t, types.KindEquationNotBalanced, msgs[1].Kind)
	assert.Equal(t, 1, *msgs[1].StepIndex)

	assert.Equal(t, FeedbackWarning, msgs[2].Status)
	assert.Nil(t, msgs[2].StepIndex)

	// The balanced second step reports its right side, 30.
	assert.Equal(t, FeedbackOK, msgs[3].Status)
	assert.Equal(t, types.Kind("FinalAnswerCorrect"), msgs[3].Kind)
}

func TestFeedbackWrongFinalAnswer(t *testing.T) {
	msgs := Feedback(Submission{
		Steps:       []Step{kinematicsStep()},
		FinalAnswer: &Answer{Value: ptr(25)},
	}, kinematics, 0)

	require.Len(t, msgs, 2)
	last := msgs[1]
	assert.Equal(t, FeedbackError, last.Status)
	assert.Equal(t, types.KindFinalAnswerIncorrect, last.Kind)
	assert.Equal(t, "Final answer 25 is not equal to expected 30", last.Message)
}
