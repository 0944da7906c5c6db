package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lemonberrylabs/formula-verifier/pkg/catalog"
	"github.com/lemonberrylabs/formula-verifier/pkg/service"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	c := catalog.New()
	c.SetConstants("mechanics", map[string]float64{"g": 9.8})
	problems := []catalog.Problem{
		{
			ID:         "kin-001",
			Difficulty: catalog.DifficultyEasy,
			Title:      "Accelerating cart",
			Formula:    "v = u + a*t",
			Target:     "v",
			Given:      map[string]float64{"u": 0, "a": 3, "t": 10},
			Answer:     &catalog.Answer{Value: 30, Unit: "m/s"},
		},
		{
			ID:         "pe-001",
			Difficulty: catalog.DifficultyMedium,
			Formula:    "PE = m * g * h",
			Given:      map[string]float64{"m": 2, "h": 5},
			Answer:     &catalog.Answer{Value: 98, Unit: "J"},
		},
	}
	for _, p := range problems {
		if err := c.Add("mechanics", p); err != nil {
			t.Fatalf("failed to add problem: %v", err)
		}
	}
	return New(service.New(c, 0))
}

func doRequest(t *testing.T, srv *Server, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", raw, err)
	}
	return resp.StatusCode, out
}

func errorStatus(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	e, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	s, _ := e["status"].(string)
	return s
}

func TestEvaluate(t *testing.T) {
	srv := setupTestServer(t)

	code, body := doRequest(t, srv, "POST", "/v1/formulas/evaluate",
		`{"formula": "m * g", "variables": {"m": 2}, "branch": "mechanics"}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	if v, _ := body["value"].(float64); v < 19.5999 || v > 19.6001 {
		t.Errorf("expected 19.6, got %v", body["value"])
	}
}

func TestEvaluateErrors(t *testing.T) {
	srv := setupTestServer(t)

	tests := []struct {
		name   string
		body   string
		code   int
		status string
		kind   string
	}{
		{"division by zero", `{"formula": "1 / 0"}`, 422, "FAILED_PRECONDITION", "DivisionByZero"},
		{"unbound", `{"formula": "x + 1"}`, 422, "FAILED_PRECONDITION", "UnboundVariable"},
		{"injection", `{"formula": "process.exit()"}`, 422, "FAILED_PRECONDITION", "MalformedExpression"},
		{"bad character", `{"formula": "1; 2"}`, 422, "FAILED_PRECONDITION", "InvalidCharacter"},
		{"missing formula", `{}`, 400, "INVALID_ARGUMENT", ""},
		{"bad json", `{"formula":`, 400, "INVALID_ARGUMENT", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := doRequest(t, srv, "POST", "/v1/formulas/evaluate", tt.body)
			if code != tt.code {
				t.Fatalf("expected %d, got %d: %v", tt.code, code, body)
			}
			if got := errorStatus(t, body); got != tt.status {
				t.Errorf("expected status %s, got %s", tt.status, got)
			}
			if tt.kind != "" {
				e := body["error"].(map[string]interface{})
				if e["type"] != tt.kind {
					t.Errorf("expected type %s, got %v", tt.kind, e["type"])
				}
			}
		})
	}
}

func TestVerify(t *testing.T) {
	srv := setupTestServer(t)

	code, body := doRequest(t, srv, "POST", "/v1/formulas/verify",
		`{"formula": "v = u + a*t", "variables": {"u": 0, "a": 3, "t": 10}, "result": 30}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok, got %v", body)
	}
	verdict := body["verdict"].(map[string]interface{})
	if verdict["kind"] != "Resolved" || verdict["unknown"] != "v" || verdict["value"] != 30.0 {
		t.Errorf("unexpected verdict: %v", verdict)
	}

	code, body = doRequest(t, srv, "POST", "/v1/formulas/verify",
		`{"formula": "v = u + a*t", "variables": {"a": 3, "t": 10}}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	issues := body["issues"].([]interface{})
	if len(issues) != 1 || issues[0].(map[string]interface{})["type"] != "InsufficientVariables" {
		t.Errorf("unexpected issues: %v", issues)
	}
	if body["verdict"].(map[string]interface{})["kind"] != "InsufficientInfo" {
		t.Errorf("unexpected verdict: %v", body["verdict"])
	}
}

func TestRearrange(t *testing.T) {
	srv := setupTestServer(t)

	code, body := doRequest(t, srv, "POST", "/v1/formulas/rearrange", `{"formula": "v = u + a*t", "target": "t"}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	if body["formula"] != "t = (v - u) / a" || body["changed"] != true {
		t.Errorf("unexpected response: %v", body)
	}

	code, body = doRequest(t, srv, "POST", "/v1/formulas/rearrange", `{"formula": "v = u + a*t"}`)
	if code != 400 {
		t.Fatalf("expected 400, got %d: %v", code, body)
	}
}

func TestListProblems(t *testing.T) {
	srv := setupTestServer(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"kin-001", "pe-001"}},
		{"?difficulty=medium", []string{"pe-001"}},
		{"?limit=1", []string{"kin-001"}},
		{"?offset=1", []string{"pe-001"}},
		{"?branch=optics", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			code, body := doRequest(t, srv, "GET", "/v1/problems"+tt.query, "")
			if code != 200 {
				t.Fatalf("expected 200, got %d: %v", code, body)
			}
			items := body["problems"].([]interface{})
			var ids []string
			for _, it := range items {
				ids = append(ids, it.(map[string]interface{})["id"].(string))
				if _, leaked := it.(map[string]interface{})["given"]; leaked {
					t.Error("list should not include givens")
				}
			}
			if strings.Join(ids, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", ids, tt.want)
			}
		})
	}

	code, _ := doRequest(t, srv, "GET", "/v1/problems?limit=-1", "")
	if code != 400 {
		t.Errorf("expected 400 for negative limit, got %d", code)
	}
}

func TestGetProblem(t *testing.T) {
	srv := setupTestServer(t)

	code, body := doRequest(t, srv, "GET", "/v1/problems/kin-001", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	if body["branch"] != "mechanics" || body["unit"] != "m/s" {
		t.Errorf("unexpected problem: %v", body)
	}
	if _, leaked := body["answer"]; leaked {
		t.Error("answer must not be exposed")
	}

	code, body = doRequest(t, srv, "GET", "/v1/problems/nope", "")
	if code != 404 || errorStatus(t, body) != "NOT_FOUND" {
		t.Errorf("expected 404 NOT_FOUND, got %d: %v", code, body)
	}
}

func TestSubmit(t *testing.T) {
	srv := setupTestServer(t)

	code, body := doRequest(t, srv, "POST", "/v1/problems/kin-001/submissions", `{
		"steps": [{"formula": "v = u + a*t", "variables": {"u": 0, "a": 3, "t": 10}}],
		"finalAnswer": {"value": 30, "unit": "m/s"}
	}`)
	if code != 201 {
		t.Fatalf("expected 201, got %d: %v", code, body)
	}
	if id, _ := body["id"].(string); len(id) != 36 {
		t.Errorf("expected a uuid, got %v", body["id"])
	}
	result := body["result"].(map[string]interface{})
	if result["correct"] != true {
		t.Errorf("expected correct submission, got %v", result)
	}

	// Branch constants apply to catalog problems.
	code, body = doRequest(t, srv, "POST", "/v1/problems/pe-001/submissions", `{
		"steps": [{"formula": "PE = m * g * h", "variables": {"m": 2, "h": 5}}]
	}`)
	if code != 201 {
		t.Fatalf("expected 201, got %d: %v", code, body)
	}
	if body["result"].(map[string]interface{})["correct"] != true {
		t.Errorf("expected correct submission, got %v", body["result"])
	}

	code, body = doRequest(t, srv, "POST", "/v1/problems/kin-001/submissions", `{
		"steps": [{"formula": "v = 31"}],
		"finalAnswer": {"value": 31}
	}`)
	if code != 201 {
		t.Fatalf("expected 201, got %d: %v", code, body)
	}
	result = body["result"].(map[string]interface{})
	if result["correct"] != false {
		t.Errorf("expected incorrect submission, got %v", result)
	}
	kinds := map[string]bool{}
	for _, is := range result["issues"].([]interface{}) {
		kinds[is.(map[string]interface{})["type"].(string)] = true
	}
	if !kinds["FinalAnswerIncorrect"] || !kinds["CheatingSuspected"] {
		t.Errorf("unexpected issues: %v", result["issues"])
	}

	code, _ = doRequest(t, srv, "POST", "/v1/problems/nope/submissions", `{"steps": []}`)
	if code != 404 {
		t.Errorf("expected 404, got %d", code)
	}
}
