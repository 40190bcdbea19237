// Package runner spawns the external test runner and turns its JSON report
// into a structured result. The runner binary is configuration ("npx
// playwright test" by default); this package never interprets test semantics,
// it only transports outcomes.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"journeykit/internal/config"
	"journeykit/internal/logging"
)

// Status summarizes one run.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
	StatusError  Status = "error" // the runner itself could not produce a report
)

// TestError is one failure extracted from the report. The healing classifier
// consumes Message and Stack only.
type TestError struct {
	Message  string `json:"message"`
	Stack    string `json:"stack,omitempty"`
	Location string `json:"location,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
}

// RunResult is the parsed outcome of one runner invocation.
type RunResult struct {
	Status    Status        `json:"status"`
	Errors    []TestError   `json:"errors,omitempty"`
	Artifacts []string      `json:"artifacts,omitempty"`
	Duration  time.Duration `json:"duration"`
	Output    string        `json:"-"` // raw combined output, for diagnostics
}

// Runner invokes the configured external test command.
type Runner struct {
	cfg     config.RunnerConfig
	workdir string
}

func New(cfg config.RunnerConfig, workdir string) *Runner {
	return &Runner{cfg: cfg, workdir: workdir}
}

// Run executes the runner against one spec file and parses the JSON report.
// A failing test is a normal result, not an error; the error return is
// reserved for the runner being unable to run or report at all.
func (r *Runner) Run(ctx context.Context, specPath string) (RunResult, error) {
	timer := logging.StartTimer(logging.CategoryRunner, "Run")
	defer timer.Stop()

	timeout := r.cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, r.cfg.Args...), specPath)
	cmd := exec.CommandContext(tctx, r.cfg.Command, args...)
	if r.workdir != "" {
		cmd.Dir = r.workdir
	}
	cmd.Env = append(os.Environ(), "PLAYWRIGHT_JSON_OUTPUT_NAME="+r.cfg.ReportPath)

	start := time.Now()
	out, runErr := cmd.CombinedOutput()
	elapsed := time.Since(start)

	if tctx.Err() != nil {
		return RunResult{Status: StatusError, Output: string(out), Duration: elapsed},
			fmt.Errorf("runner timed out after %v: %w", timeout, tctx.Err())
	}

	// The runner exits non-zero on test failures; the report decides the
	// outcome. Only an unreadable report makes this an error.
	report, err := r.readReport(out)
	if err != nil {
		if runErr != nil {
			return RunResult{Status: StatusError, Output: string(out), Duration: elapsed},
				fmt.Errorf("runner failed without a report: %v: %w", runErr, err)
		}
		return RunResult{Status: StatusError, Output: string(out), Duration: elapsed},
			fmt.Errorf("failed to read runner report: %w", err)
	}

	result := parseReport(report)
	result.Duration = elapsed
	result.Output = string(out)
	logging.Runner("run finished: status=%s errors=%d in %v", result.Status, len(result.Errors), elapsed)
	return result, nil
}

// readReport prefers the configured report file and falls back to stdout,
// which is where the JSON reporter writes when no output path is set.
func (r *Runner) readReport(stdout []byte) ([]byte, error) {
	if r.cfg.ReportPath != "" {
		data, err := os.ReadFile(r.cfg.ReportPath)
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read report %s: %w", r.cfg.ReportPath, err)
		}
	}
	if len(stdout) == 0 {
		return nil, fmt.Errorf("no report file and empty runner output")
	}
	return stdout, nil
}

// Playwright JSON report shape, reduced to what the pipeline consumes.
type pwReport struct {
	Suites []pwSuite `json:"suites"`
	Errors []pwError `json:"errors"`
}

type pwSuite struct {
	Title  string    `json:"title"`
	Suites []pwSuite `json:"suites"`
	Specs  []pwSpec  `json:"specs"`
}

type pwSpec struct {
	Title string   `json:"title"`
	File  string   `json:"file"`
	Tests []pwTest `json:"tests"`
}

type pwTest struct {
	Results []pwResult `json:"results"`
}

type pwResult struct {
	Status      string         `json:"status"`
	Error       *pwError       `json:"error"`
	Errors      []pwError      `json:"errors"`
	Attachments []pwAttachment `json:"attachments"`
}

type pwError struct {
	Message string `json:"message"`
	Stack   string `json:"stack"`
	Snippet string `json:"snippet"`
}

type pwAttachment struct {
	Path string `json:"path"`
}

func parseReport(data []byte) RunResult {
	var rep pwReport
	if err := json.Unmarshal(data, &rep); err != nil {
		logging.RunnerError("unparseable report: %v", err)
		return RunResult{Status: StatusError, Errors: []TestError{{Message: "unparseable runner report: " + err.Error()}}}
	}

	res := RunResult{Status: StatusPassed}
	for _, e := range rep.Errors {
		res.Errors = append(res.Errors, TestError{Message: e.Message, Stack: e.Stack, Snippet: e.Snippet})
	}
	collectSuites(rep.Suites, &res)

	if len(res.Errors) > 0 {
		res.Status = StatusFailed
	}
	return res
}

func collectSuites(suites []pwSuite, res *RunResult) {
	for _, s := range suites {
		for _, spec := range s.Specs {
			for _, test := range spec.Tests {
				for _, r := range test.Results {
					collectResult(spec, r, res)
				}
			}
		}
		collectSuites(s.Suites, res)
	}
}

func collectResult(spec pwSpec, r pwResult, res *RunResult) {
	for _, a := range r.Attachments {
		if a.Path != "" {
			res.Artifacts = append(res.Artifacts, a.Path)
		}
	}

	if r.Status == "passed" || r.Status == "skipped" {
		return
	}

	errs := r.Errors
	if len(errs) == 0 && r.Error != nil {
		errs = []pwError{*r.Error}
	}
	if len(errs) == 0 {
		errs = []pwError{{Message: fmt.Sprintf("test %q %s with no error detail", spec.Title, r.Status)}}
	}
	for _, e := range errs {
		res.Errors = append(res.Errors, TestError{
			Message:  e.Message,
			Stack:    e.Stack,
			Location: spec.File,
			Snippet:  e.Snippet,
		})
	}
}
