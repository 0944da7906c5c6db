// Package api implements the REST API for formula evaluation, step
// verification, rearrangement and problem submissions.
package api

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/lemonberrylabs/formula-verifier/pkg/catalog"
	"github.com/lemonberrylabs/formula-verifier/pkg/service"
	"github.com/lemonberrylabs/formula-verifier/pkg/types"
	"github.com/lemonberrylabs/formula-verifier/pkg/verify"
)

// maxListLimit caps the page size of GET /v1/problems.
const maxListLimit = 100

// Server is the HTTP API server.
type Server struct {
	app *fiber.App
	svc *service.Service
}

// New creates a new API server.
func New(svc *service.Service) *Server {
	srv := &Server{svc: svc}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		BodyLimit:             64 * 1024,
	})
	app.Use(recover.New())

	// Formulas API
	app.Post("/v1/formulas/evaluate", srv.evaluate)
	app.Post("/v1/formulas/verify", srv.verify)
	app.Post("/v1/formulas/rearrange", srv.rearrange)

	// Problems API
	app.Get("/v1/problems", srv.listProblems)
	app.Get("/v1/problems/:id", srv.getProblem)
	app.Post("/v1/problems/:id/submissions", srv.submit)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Formula Handlers ---

func (s *Server) evaluate(c *fiber.Ctx) error {
	var req service.EvaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	res, err := s.svc.Evaluate(req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

func (s *Server) verify(c *fiber.Ctx) error {
	var req service.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	res, err := s.svc.Verify(req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

func (s *Server) rearrange(c *fiber.Ctx) error {
	var req service.RearrangeRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	res, err := s.svc.Rearrange(req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

// --- Problem Handlers ---

func (s *Server) listProblems(c *fiber.Ctx) error {
	f := catalog.Filter{
		Branch:     c.Query("branch"),
		Difficulty: c.Query("difficulty"),
		Limit:      c.QueryInt("limit", 0),
		Offset:     c.QueryInt("offset", 0),
	}
	if f.Limit < 0 || f.Offset < 0 {
		return errorJSON(c, fiber.StatusBadRequest, "limit and offset must be non-negative", "INVALID_ARGUMENT")
	}
	if f.Limit == 0 || f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}

	problems := s.svc.ListProblems(f)
	items := make([]fiber.Map, len(problems))
	for i, p := range problems {
		items[i] = problemToJSON(p, false)
	}
	return c.JSON(fiber.Map{
		"problems": items,
	})
}

func (s *Server) getProblem(c *fiber.Ctx) error {
	p, err := s.svc.GetProblem(c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(problemToJSON(p, true))
}

func (s *Server) submit(c *fiber.Ctx) error {
	var sub verify.Submission
	if err := c.BodyParser(&sub); err != nil {
		return badBody(c, err)
	}

	report, err := s.svc.Submit(c.Params("id"), sub)
	if err != nil {
		return writeError(c, err)
	}
	log.Printf("Submission %s for problem %s: correct=%v issues=%d",
		report.ID, report.ProblemID, report.Result.Correct, len(report.Result.Issues))
	return c.Status(fiber.StatusCreated).JSON(report)
}

// --- Helpers ---

func badBody(c *fiber.Ctx, err error) error {
	return errorJSON(c, fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), "INVALID_ARGUMENT")
}

// writeError maps service and engine errors onto the error envelope.
func writeError(c *fiber.Ctx, err error) error {
	var fe *types.FormulaError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return errorJSON(c, fiber.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, service.ErrInvalidRequest):
		return errorJSON(c, fiber.StatusBadRequest, err.Error(), "INVALID_ARGUMENT")
	case errors.As(err, &fe):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    fiber.StatusUnprocessableEntity,
				"message": fe.Message,
				"status":  "FAILED_PRECONDITION",
				"type":    fe.Kind,
			},
		})
	default:
		log.Printf("Internal error on %s %s: %v", c.Method(), c.Path(), err)
		return errorJSON(c, fiber.StatusInternalServerError, err.Error(), "INTERNAL")
	}
}

func errorJSON(c *fiber.Ctx, code int, message, status string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

func problemToJSON(p *catalog.Problem, full bool) fiber.Map {
	result := fiber.Map{
		"id":         p.ID,
		"branch":     p.Branch,
		"difficulty": p.Difficulty,
		"title":      p.Title,
		"formula":    p.Formula,
	}
	if p.Target != "" {
		result["target"] = p.Target
	}
	if full {
		result["statement"] = p.Statement
		result["given"] = p.Given
		if p.Answer != nil && p.Answer.Unit != "" {
			result["unit"] = p.Answer.Unit
		}
	}
	return result
}
