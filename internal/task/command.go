package task

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

const (
	// OutputText maps stdout onto the output TextOutput. A non-zero exit is
	// always a failure, so there is no exit code output.
	OutputText = "text"
	// TextOutput is the only output a text-mode command fills.
	TextOutput = "stdout"
	// OutputJSON decodes stdout as a JSON object holding the declared outputs.
	OutputJSON = "json"

	stderrTail = 2048
)

// CommandExecutor runs an external program for every call. The resolved
// inputs are written to the program's stdin as a JSON object.
type CommandExecutor struct {
	Program string
	// Args is evaluated for each call with the resolved inputs available as
	// `input.<name>`. It must produce a list of values convertible to strings.
	Args hcl.Expression
	Env  map[string]string
	// OutputFormat is OutputText (default) or OutputJSON.
	OutputFormat string
	// Outputs lists the declared output names. In text mode only these are populated.
	Outputs []string
	// GracePeriod bounds how long an interrupted program may take to exit
	// before it is killed.
	GracePeriod time.Duration
}

// Execute implements Executor.
func (c *CommandExecutor) Execute(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error) {
	inputObj := cty.EmptyObjectVal
	if len(inputs) > 0 {
		inputObj = cty.ObjectVal(inputs)
	}

	args, err := c.evalArgs(inputObj)
	if err != nil {
		return nil, err
	}

	stdin, err := ctyjson.Marshal(inputObj, inputObj.Type())
	if err != nil {
		return nil, fmt.Errorf("encoding inputs for %q: %w", c.Program, err)
	}

	cmd := exec.CommandContext(ctx, c.Program, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Env = c.environ(ctx)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = c.GracePeriod
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 5 * time.Second
	}

	if info, ok := RunInfoFrom(ctx); ok && info.WorkDir != "" {
		if err := os.MkdirAll(info.WorkDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating work dir %s: %w", info.WorkDir, err)
		}
		cmd.Dir = info.WorkDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &CommandError{
				Program:  c.Program,
				ExitCode: exitErr.ExitCode(),
				Stderr:   tail(stderr.String(), stderrTail),
				Err:      err,
			}
		}
		return nil, fmt.Errorf("running %q: %w", c.Program, err)
	}

	switch c.OutputFormat {
	case "", OutputText:
		return c.textOutputs(stdout.String()), nil
	case OutputJSON:
		return decodeJSONOutputs(stdout.Bytes())
	default:
		return nil, fmt.Errorf("unknown output format %q", c.OutputFormat)
	}
}

func (c *CommandExecutor) evalArgs(inputObj cty.Value) ([]string, error) {
	if c.Args == nil {
		return nil, nil
	}
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"input": inputObj},
	}
	val, diags := c.Args.Value(evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating args for %q: %w", c.Program, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	if !ty.IsListType() && !ty.IsTupleType() {
		return nil, fmt.Errorf("args for %q must be a list, got %s", c.Program, ty.FriendlyName())
	}

	var args []string
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.IsNull() {
			return nil, fmt.Errorf("args for %q contain a null value", c.Program)
		}
		s, err := convert.Convert(elem, cty.String)
		if err != nil {
			return nil, fmt.Errorf("args for %q: %w", c.Program, err)
		}
		args = append(args, s.AsString())
	}
	return args, nil
}

func (c *CommandExecutor) environ(ctx context.Context) []string {
	env := os.Environ()
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+c.Env[k])
	}
	if info, ok := RunInfoFrom(ctx); ok {
		env = append(env,
			"SWEEPGRID_RUN_ID="+info.RunID,
			"SWEEPGRID_INSTANCE="+info.Instance,
			"SWEEPGRID_FINGERPRINT="+info.Fingerprint,
		)
	}
	return env
}

func (c *CommandExecutor) textOutputs(stdout string) map[string]cty.Value {
	out := make(map[string]cty.Value, 1)
	if slices.Contains(c.Outputs, TextOutput) {
		out[TextOutput] = cty.StringVal(stdout)
	}
	return out
}

func decodeJSONOutputs(stdout []byte) (map[string]cty.Value, error) {
	ty, err := ctyjson.ImpliedType(stdout)
	if err != nil {
		return nil, fmt.Errorf("decoding stdout as JSON: %w", err)
	}
	if !ty.IsObjectType() {
		return nil, fmt.Errorf("stdout must be a JSON object, got %s", ty.FriendlyName())
	}
	val, err := ctyjson.Unmarshal(stdout, ty)
	if err != nil {
		return nil, fmt.Errorf("decoding stdout as JSON: %w", err)
	}
	return val.AsValueMap(), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
