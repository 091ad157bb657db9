package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"intakectl/internal/coverage"
	"intakectl/internal/taxonomy"
	"intakectl/pkg/logging"
)

// ErrEngineFailed is returned when the engine command exits unsuccessfully
// or answers with something that is not the expected JSON document.
var ErrEngineFailed = errors.New("engine failed")

// runFunc runs a command and returns its stdout and stderr.
type runFunc func(cmd *exec.Cmd) (stdout, stderr []byte, err error)

func runCommand(cmd *exec.Cmd) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// CommandManager implements Manager by running an engine executable:
//
//	<command...> parse <fixture>
//	<command...> coverage <module> <format>
//	<command...> taxonomy <module> <format>
//
// The command runs in the intakes root and answers with JSON on stdout.
type CommandManager struct {
	command []string
	root    string
	timeout time.Duration
	run     runFunc
}

// NewCommandManager creates a CommandManager. A zero timeout disables the
// per-call deadline.
func NewCommandManager(command []string, root string, timeout time.Duration) (*CommandManager, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, fmt.Errorf("engine command is not configured")
	}
	return &CommandManager{
		command: append([]string(nil), command...),
		root:    root,
		timeout: timeout,
		run:     runCommand,
	}, nil
}

// GetParsedMessage implements Manager.
func (m *CommandManager) GetParsedMessage(ctx context.Context, fixturePath string) (map[string]interface{}, error) {
	out, err := m.execute(ctx, "parse", fixturePath)
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(bytes.NewReader(out))
	decoder.UseNumber()
	var event map[string]interface{}
	if err := decoder.Decode(&event); err != nil {
		return nil, fmt.Errorf("%w: parse %s: unexpected output: %v", ErrEngineFailed, fixturePath, err)
	}
	if event == nil {
		event = map[string]interface{}{}
	}
	return event, nil
}

// GetCoverage implements Manager.
func (m *CommandManager) GetCoverage(ctx context.Context, module, format string) (coverage.Report, error) {
	res, err := m.executeJSON(ctx, "coverage", module, format)
	if err != nil {
		return coverage.Report{}, err
	}

	percent := res.Get("percent")
	if !percent.Exists() {
		return coverage.Report{}, fmt.Errorf("%w: coverage %s/%s: no percent in output", ErrEngineFailed, module, format)
	}
	return coverage.Report{
		Percent: percent.Float(),
		Missing: stringArray(res.Get("missing")),
	}, nil
}

// GetTaxonomy implements Manager.
func (m *CommandManager) GetTaxonomy(ctx context.Context, module, format string) (taxonomy.Report, error) {
	res, err := m.executeJSON(ctx, "taxonomy", module, format)
	if err != nil {
		return taxonomy.Report{}, err
	}
	return taxonomy.Report{
		Missing: stringArray(res.Get("missing")),
		Unused:  stringArray(res.Get("unused")),
	}, nil
}

func (m *CommandManager) executeJSON(ctx context.Context, args ...string) (*gjson.Result, error) {
	out, err := m.execute(ctx, args...)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(out) {
		return nil, fmt.Errorf("%w: '%s' returned invalid JSON output", ErrEngineFailed, strings.Join(args, " "))
	}
	res := gjson.ParseBytes(out)
	if !res.IsObject() {
		return nil, fmt.Errorf("%w: '%s' returned unexpected data", ErrEngineFailed, strings.Join(args, " "))
	}
	return &res, nil
}

func (m *CommandManager) execute(ctx context.Context, args ...string) ([]byte, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	argv := append(append([]string(nil), m.command[1:]...), args...)
	cmd := exec.CommandContext(ctx, m.command[0], argv...)
	cmd.Dir = m.root

	logging.Debug("Engine", "exec: %s", cmd.String())
	stdout, stderr, err := m.run(cmd)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: '%s': %w", ErrEngineFailed, strings.Join(args, " "), ctxErr)
		}
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: '%s': %s", ErrEngineFailed, strings.Join(args, " "), msg)
	}
	if len(bytes.TrimSpace(stdout)) == 0 {
		return nil, fmt.Errorf("%w: '%s' returned no output", ErrEngineFailed, strings.Join(args, " "))
	}
	return stdout, nil
}

func stringArray(res gjson.Result) []string {
	values := res.Array()
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.String())
	}
	return out
}
