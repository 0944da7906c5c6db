package verify

import (
	"github.com/lemonberrylabs/formula-verifier/pkg/formula"
	"github.com/lemonberrylabs/formula-verifier/pkg/types"
)

// Answer is a claimed final answer.
type Answer struct {
	Value *float64 `json:"value" yaml:"value"`
	Unit  string   `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Submission is a full solution: ordered steps plus an optional final
// answer.
type Submission struct {
	Steps       []Step  `json:"steps" yaml:"steps" validate:"dive"`
	FinalAnswer *Answer `json:"finalAnswer,omitempty" yaml:"finalAnswer,omitempty"`
}

// Problem is what grading needs to know about a problem.
type Problem struct {
	Given     formula.Env
	Constants formula.Env
	Expected  *float64
}

// FinalCheck records the comparison of the final answer.
type FinalCheck struct {
	Expected *float64 `json:"expected" yaml:"expected"`
	Got      *float64 `json:"got" yaml:"got"`
	OK       bool     `json:"ok" yaml:"ok"`
}

// SolutionResult is the outcome of grading a submission.
type SolutionResult struct {
	Correct    bool          `json:"correct" yaml:"correct"`
	Issues     []types.Issue `json:"issues" yaml:"issues"`
	Computed   []Values      `json:"computed" yaml:"computed"`
	FinalCheck FinalCheck    `json:"finalCheck" yaml:"finalCheck"`
}

// VerifySolution verifies every step, then checks the final answer (the
// explicit claim, or the last step's value) against the expected answer.
// Issues from a step carry that step's index.
func VerifySolution(sub Submission, problem Problem, tol float64) SolutionResult {
	issues := []types.Issue{}
	computed := make([]Values, 0, len(sub.Steps))

	if len(sub.Steps) == 0 {
		issues = append(issues, types.NewIssue(types.KindNoSteps, "Provide at least one calculation step"))
	}

	opts := Options{Given: problem.Given, Constants: problem.Constants, Tolerance: tol}
	var last *float64
	for i, step := range sub.Steps {
		res := VerifyStep(step, opts)
		computed = append(computed, res.Values)
		for _, is := range res.Issues {
			issues = append(issues, is.AtStep(i))
		}
		last = nil
		if v, ok := res.Values.Primary(); ok {
			last = &v
		}
	}

	check := FinalCheck{Expected: problem.Expected}
	if sub.FinalAnswer != nil && sub.FinalAnswer.Value != nil {
		got := *sub.FinalAnswer.Value
		check.Got = &got
	} else {
		check.Got = last
	}
	if check.Got != nil && check.Expected != nil {
		check.OK = formula.ApproxEqualTol(*check.Got, *check.Expected, tol)
		if !check.OK {
			issues = append(issues, types.NewIssue(types.KindFinalAnswerIncorrect,
				"Expected %s but got %s", fmtNum(*check.Expected), fmtNum(*check.Got)))
		}
	}

	if len(problem.Given) > 0 && !referencesAny(sub.Steps, problem.Given) {
		issues = append(issues, types.NewIssue(types.KindCheatingSuspected, "No given variables referenced in steps"))
	}

	return SolutionResult{
		Correct:    len(issues) == 0,
		Issues:     issues,
		Computed:   computed,
		FinalCheck: check,
	}
}

// referencesAny reports whether any step formula mentions a given name.
// Formulas are only tokenized, so steps that fail to parse still count.
func referencesAny(steps []Step, given formula.Env) bool {
	for _, step := range steps {
		toks, err := formula.NewLexer(formula.Normalize(step.Formula)).Tokenize()
		if err != nil {
			continue
		}
		for _, tok := range toks {
			if tok.Type != formula.TokenIdent {
				continue
			}
			if _, ok := given[tok.Value]; ok {
				return true
			}
		}
	}
	return false
}

// FeedbackStatus is the severity of a feedback message.
type FeedbackStatus string

const (
	FeedbackOK      FeedbackStatus = "ok"
	FeedbackError   FeedbackStatus = "error"
	FeedbackWarning FeedbackStatus = "warning"
)

// FeedbackMessage is one line of per-step feedback.
type FeedbackMessage struct {
	StepIndex *int           `json:"stepIndex,omitempty" yaml:"stepIndex,omitempty"`
	Status    FeedbackStatus `json:"status" yaml:"status"`
	Kind      types.Kind     `json:"type,omitempty" yaml:"type,omitempty"`
	Message   string         `json:"message" yaml:"message"`
}

// Feedback renders per-step messages and a final-answer message for a
// submission.
func Feedback(sub Submission, problem Problem, tol float64) []FeedbackMessage {
	var msgs []FeedbackMessage
	opts := Options{Given: problem.Given, Constants: problem.Constants, Tolerance: tol}

	var last *float64
	for i, step := range sub.Steps {
		idx := i
		res := VerifyStep(step, opts)
		if len(res.Issues) == 0 {
			msgs = append(msgs, FeedbackMessage{StepIndex: &idx, Status: FeedbackOK, Message: "Step looks correct"})
		}
		for _, is := range res.Issues {
			msgs = append(msgs, FeedbackMessage{StepIndex: &idx, Status: FeedbackError, Kind: is.Kind, Message: is.Message})
		}
		last = nil
		if v, ok := res.Values.Primary(); ok {
			last = &v
		}
	}

	if problem.Expected == nil {
		return msgs
	}
	expected := *problem.Expected

	got := last
	if sub.FinalAnswer != nil && sub.FinalAnswer.Value != nil {
		got = sub.FinalAnswer.Value
	} else {
		msgs = append(msgs, FeedbackMessage{Status: FeedbackWarning, Kind: "NoFinalAnswer",
			Message: "No final answer provided; using last step result"})
	}

	switch {
	case got == nil:
	case formula.ApproxEqualTol(*got, expected, tol):
		msgs = append(msgs, FeedbackMessage{Status: FeedbackOK, Kind: "FinalAnswerCorrect",
			Message: "Final answer matches expected value"})
	default:
		msgs = append(msgs, FeedbackMessage{Status: FeedbackError, Kind: types.KindFinalAnswerIncorrect,
			Message: "Final answer " + fmtNum(*got) + " is not equal to expected " + fmtNum(expected)})
	}
	return msgs
}
