package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEvalCommand(t *testing.T) {
	out, err := execute(t, "eval", "u + a*t", "--var", "u=0", "--var", "a=3", "--var", "t=10")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	var res struct {
		Formula string  `json:"formula"`
		Value   float64 `json:"value"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if res.Value != 30 || res.Formula != "u + a * t" {
		t.Errorf("unexpected result: %+v", res)
	}

	if _, err := execute(t, "eval", "x + 1"); err == nil {
		t.Error("expected error for unbound variable")
	}
}

func TestEvalCommandWithBranch(t *testing.T) {
	dir := t.TempDir()
	content := "branch: mechanics\nconstants:\n  g: 9.8\nproblems: []\n"
	if err := os.WriteFile(filepath.Join(dir, "mechanics.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "eval", "m * g", "--var", "m=2", "--branch", "mechanics", "--problems-dir", dir, "-o", "yaml")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	var res map[string]interface{}
	if err := yaml.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid YAML %q: %v", out, err)
	}
	if v, _ := res["value"].(float64); v < 19.5999 || v > 19.6001 {
		t.Errorf("expected 19.6, got %v", res["value"])
	}
}

func TestVerifyCommand(t *testing.T) {
	out, err := execute(t, "verify", "v = u + a*t", "--var", "u=0", "--var", "a=3", "--var", "t=10", "--result", "30")
	if err != nil {
		t.Fatalf("verify: %v (output %s)", err, out)
	}
	if !strings.Contains(out, `"ok": true`) {
		t.Errorf("expected ok result, got %s", out)
	}

	out, err = execute(t, "verify", "v = u + a*t", "--var", "u=0", "--var", "a=3", "--var", "t=10", "--result", "31", "-o", "yaml")
	if !errors.Is(err, errStepFailed) {
		t.Fatalf("expected errStepFailed, got %v", err)
	}
	if !strings.Contains(out, "ResultMismatch") {
		t.Errorf("expected ResultMismatch in output, got %s", out)
	}

	out, err = execute(t, "verify", "v = u + a*t", "--var", "u=0", "--var", "a=3", "--var", "t=12", "--given", "t=10")
	if !errors.Is(err, errStepFailed) {
		t.Fatalf("expected errStepFailed, got %v", err)
	}
	if !strings.Contains(out, "Variable t should be 10 but is 12") {
		t.Errorf("expected wrong variable message, got %s", out)
	}

	if _, err := execute(t, "verify", "x = 1", "--result", "abc"); err == nil {
		t.Error("expected error for a non-numeric --result")
	}
}

func TestRearrangeCommand(t *testing.T) {
	out, err := execute(t, "rearrange", "v = u + a*t", "t")
	if err != nil {
		t.Fatalf("rearrange: %v", err)
	}
	if !strings.Contains(out, `"formula": "t = (v - u) / a"`) || !strings.Contains(out, `"changed": true`) {
		t.Errorf("unexpected output %s", out)
	}

	if _, err := execute(t, "rearrange", "v = u + a*t"); err == nil {
		t.Error("expected error for missing target")
	}
}

func TestOutputFormat(t *testing.T) {
	if _, err := execute(t, "rearrange", "v = u + a*t", "t", "-o", "xml"); err == nil {
		t.Error("expected error for unknown output format")
	}
}
