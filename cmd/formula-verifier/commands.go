package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/formula-verifier/pkg/service"
	"github.com/lemonberrylabs/formula-verifier/pkg/verify"
)

var errStepFailed = errors.New("step failed verification")

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval FORMULA",
		Short: "Evaluate an expression",
		Example: `  formula-verifier eval "u + a*t" --var u=0 --var a=3 --var t=10
  formula-verifier eval "m * g" --var m=2 --branch mechanics --problems-dir ./problems`,
		Args: cobra.ExactArgs(1),
		RunE: runEval,
	}
	addBindingFlags(cmd)
	return cmd
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify FORMULA",
		Short: "Verify a calculation step",
		Example: `  formula-verifier verify "v = u + a*t" --var u=0 --var a=3 --var t=10 --result 30
  formula-verifier verify "30 = u + a*t" --var u=0 --var a=3 --var t=10 -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runVerify,
	}
	addBindingFlags(cmd)
	cmd.Flags().String("result", "", "Claimed result of the step")
	cmd.Flags().StringToString("given", nil, "Canonical value name=value the step must agree with (repeatable)")
	return cmd
}

func newRearrangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rearrange FORMULA TARGET",
		Short:   "Isolate a variable in a linear equation",
		Example: `  formula-verifier rearrange "v = u + a*t" t`,
		Args:    cobra.ExactArgs(2),
		RunE:    runRearrange,
	}
}

func addBindingFlags(cmd *cobra.Command) {
	cmd.Flags().StringToString("var", nil, "Variable binding name=value (repeatable)")
	cmd.Flags().String("branch", "", "Use the constants of a catalog branch")
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	vars, _ := cmd.Flags().GetStringToString("var")
	branch, _ := cmd.Flags().GetString("branch")

	res, err := newService(cfg).Evaluate(service.EvaluateRequest{
		Formula:   args[0],
		Variables: toAny(vars),
		Branch:    branch,
	})
	if err != nil {
		return err
	}
	return writeOutput(cmd, res)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	vars, _ := cmd.Flags().GetStringToString("var")
	branch, _ := cmd.Flags().GetString("branch")
	givenRaw, _ := cmd.Flags().GetStringToString("given")

	req := service.VerifyRequest{
		Step:   verify.Step{Formula: args[0], Variables: toAny(vars)},
		Branch: branch,
	}
	if s, _ := cmd.Flags().GetString("result"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid --result %q: %w", s, err)
		}
		req.Result = &v
	}
	if len(givenRaw) > 0 {
		req.Given = make(map[string]float64, len(givenRaw))
		for k, s := range givenRaw {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid --given %s=%q: %w", k, s, err)
			}
			req.Given[k] = v
		}
	}

	res, err := newService(cfg).Verify(req)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, res); err != nil {
		return err
	}
	if !res.OK {
		return errStepFailed
	}
	return nil
}

func runRearrange(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	res, err := newService(cfg).Rearrange(service.RearrangeRequest{Formula: args[0], Target: args[1]})
	if err != nil {
		return err
	}
	return writeOutput(cmd, res)
}

// toAny passes raw strings through; the verifier reports the ones that are
// not numeric.
func toAny(vars map[string]string) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}

func writeOutput(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("output")
	return encode(cmd.OutOrStdout(), format, v)
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}
