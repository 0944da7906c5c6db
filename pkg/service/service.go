// Package service is the transport-independent facade over the formula
// engine, the verifier and the problem catalog. The REST and gRPC servers
// and the CLI all call through it.
package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lemonberrylabs/formula-verifier/pkg/catalog"
	"github.com/lemonberrylabs/formula-verifier/pkg/formula"
	"github.com/lemonberrylabs/formula-verifier/pkg/verify"
)

// ErrInvalidRequest wraps request validation failures.
var ErrInvalidRequest = errors.New("invalid request")

var validate = validator.New()

// EvaluateRequest evaluates a bare expression.
type EvaluateRequest struct {
	Formula   string         `json:"formula" yaml:"formula" validate:"required,max=400"`
	Variables map[string]any `json:"variables,omitempty" yaml:"variables,omitempty"`
	// Branch selects catalog constants; step variables shadow them.
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"`
}

// EvaluateResponse is the result of Evaluate.
type EvaluateResponse struct {
	Formula string  `json:"formula" yaml:"formula"`
	Value   float64 `json:"value" yaml:"value"`
}

// VerifyRequest verifies one step.
type VerifyRequest struct {
	verify.Step `yaml:",inline"`
	Branch      string             `json:"branch,omitempty" yaml:"branch,omitempty"`
	Given       map[string]float64 `json:"given,omitempty" yaml:"given,omitempty"`
	Tolerance   float64            `json:"tolerance,omitempty" yaml:"tolerance,omitempty" validate:"gte=0,lt=1"`
}

// RearrangeRequest isolates a target variable.
type RearrangeRequest struct {
	Formula string `json:"formula" yaml:"formula" validate:"required,max=400"`
	Target  string `json:"target" yaml:"target" validate:"required,max=64"`
}

// RearrangeResponse is the result of Rearrange. When the formula cannot be
// rearranged Formula is the input unchanged and Changed is false.
type RearrangeResponse struct {
	Formula string `json:"formula" yaml:"formula"`
	Changed bool   `json:"changed" yaml:"changed"`
}

// SubmissionReport is the graded result of a submission.
type SubmissionReport struct {
	ID          string                   `json:"id" yaml:"id"`
	ProblemID   string                   `json:"problemId" yaml:"problemId"`
	SubmittedAt time.Time                `json:"submittedAt" yaml:"submittedAt"`
	Result      verify.SolutionResult    `json:"result" yaml:"result"`
	Feedback    []verify.FeedbackMessage `json:"feedback" yaml:"feedback"`
}

// Service implements the engine operations exposed by the transports.
type Service struct {
	catalog   *catalog.Catalog
	tolerance float64
}

// New creates a service over c. A tolerance <= 0 selects
// formula.DefaultTolerance.
func New(c *catalog.Catalog, tolerance float64) *Service {
	if c == nil {
		c = catalog.New()
	}
	return &Service{catalog: c, tolerance: tolerance}
}

// Catalog returns the underlying problem catalog.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Evaluate evaluates a bare expression against the request variables.
// Engine failures are returned as *types.FormulaError.
func (s *Service) Evaluate(req EvaluateRequest) (*EvaluateResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	expr, err := formula.ParseExpression(req.Formula)
	if err != nil {
		return nil, err
	}
	bindings, issues := verify.ValidateVariables(req.Variables, nil, s.tolerance)
	if len(issues) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, issues[0].Message)
	}
	val, err := formula.Evaluate(expr, formula.Chain(bindings, s.catalog.Constants(req.Branch)))
	if err != nil {
		return nil, err
	}
	return &EvaluateResponse{Formula: formula.String(expr), Value: val}, nil
}

// Verify verifies a single step. Formula problems are reported in the
// result, not as an error.
func (s *Service) Verify(req VerifyRequest) (*verify.StepResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	tol := req.Tolerance
	if tol == 0 {
		tol = s.tolerance
	}
	res := verify.VerifyStep(req.Step, verify.Options{
		Given:     formula.Env(req.Given),
		Constants: s.catalog.Constants(req.Branch),
		Tolerance: tol,
	})
	return &res, nil
}

// Rearrange isolates req.Target.
func (s *Service) Rearrange(req RearrangeRequest) (*RearrangeResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	out, changed := formula.Rearrange(req.Formula, req.Target)
	return &RearrangeResponse{Formula: out, Changed: changed}, nil
}

// ListProblems lists catalog problems.
func (s *Service) ListProblems(f catalog.Filter) []*catalog.Problem {
	return s.catalog.List(f)
}

// GetProblem returns one catalog problem, or an error wrapping
// catalog.ErrNotFound.
func (s *Service) GetProblem(id string) (*catalog.Problem, error) {
	return s.catalog.Get(id)
}

// Submit grades a submission against a catalog problem.
func (s *Service) Submit(problemID string, sub verify.Submission) (*SubmissionReport, error) {
	p, err := s.catalog.Get(problemID)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(sub); err != nil {
		return nil, err
	}

	grading := p.Grading(s.catalog.Constants(p.Branch))
	return &SubmissionReport{
		ID:          uuid.NewString(),
		ProblemID:   p.ID,
		SubmittedAt: time.Now().UTC(),
		Result:      verify.VerifySolution(sub, grading, s.tolerance),
		Feedback:    verify.Feedback(sub, grading, s.tolerance),
	}, nil
}

func validateRequest(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
	}
}
