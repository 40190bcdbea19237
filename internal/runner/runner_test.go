package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journeykit/internal/config"
)

const passedReport = `{
  "suites": [
    {
      "title": "checkout.spec.ts",
      "specs": [
        {
          "title": "checkout",
          "file": "checkout.spec.ts",
          "tests": [{"results": [{"status": "passed", "attachments": [{"path": "trace.zip"}]}]}]
        }
      ]
    }
  ]
}`

const failedReport = `{
  "suites": [
    {
      "title": "root",
      "suites": [
        {
          "title": "Guest checkout",
          "specs": [
            {
              "title": "checkout",
              "file": "checkout.spec.ts",
              "tests": [
                {
                  "results": [
                    {
                      "status": "failed",
                      "error": {
                        "message": "Error: strict mode violation: getByRole('button') resolved to 2 elements",
                        "stack": "at checkout.spec.ts:12",
                        "snippet": "await page.getByRole('button').click();"
                      }
                    }
                  ]
                }
              ]
            }
          ]
        }
      ],
      "specs": []
    }
  ]
}`

func TestParseReportPassed(t *testing.T) {
	res := parseReport([]byte(passedReport))
	assert.Equal(t, StatusPassed, res.Status)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []string{"trace.zip"}, res.Artifacts)
}

func TestParseReportFailedNestedSuites(t *testing.T) {
	res := parseReport([]byte(failedReport))
	assert.Equal(t, StatusFailed, res.Status)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "strict mode violation")
	assert.Equal(t, "checkout.spec.ts", res.Errors[0].Location)
	assert.Contains(t, res.Errors[0].Snippet, "getByRole")
}

func TestParseReportFailureWithoutDetail(t *testing.T) {
	rep := `{"suites":[{"specs":[{"title":"t","tests":[{"results":[{"status":"timedOut"}]}]}]}]}`
	res := parseReport([]byte(rep))
	assert.Equal(t, StatusFailed, res.Status)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "timedOut")
}

func TestParseReportGarbage(t *testing.T) {
	res := parseReport([]byte("not json"))
	assert.Equal(t, StatusError, res.Status)
	require.Len(t, res.Errors, 1)
}

func TestRunReadsReportFile(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(reportPath, []byte(failedReport), 0644))

	// Non-zero exit plus a readable report is a normal failed run.
	r := New(config.RunnerConfig{
		Command:    "sh",
		Args:       []string{"-c", "exit 1; #"},
		Timeout:    time.Minute,
		ReportPath: reportPath,
	}, dir)

	res, err := r.Run(context.Background(), "checkout.spec.ts")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	require.Len(t, res.Errors, 1)
}

func TestRunParsesStdoutWhenNoReportFile(t *testing.T) {
	r := New(config.RunnerConfig{
		Command: "sh",
		Args:    []string{"-c", `echo '{"suites":[]}'; true; #`},
		Timeout: time.Minute,
	}, t.TempDir())

	res, err := r.Run(context.Background(), "checkout.spec.ts")
	require.NoError(t, err)
	assert.Equal(t, StatusPassed, res.Status)
}

func TestRunTimesOut(t *testing.T) {
	r := New(config.RunnerConfig{
		Command: "sh",
		Args:    []string{"-c", "sleep 5; #"},
		Timeout: 100 * time.Millisecond,
	}, t.TempDir())

	_, err := r.Run(context.Background(), "checkout.spec.ts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestRunFailsWithoutAnyReport(t *testing.T) {
	r := New(config.RunnerConfig{
		Command: "sh",
		Args:    []string{"-c", "exit 2; #"},
		Timeout: time.Minute,
	}, t.TempDir())

	_, err := r.Run(context.Background(), "checkout.spec.ts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a report")
}

func TestVerifyAdapter(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(reportPath, []byte(failedReport), 0644))

	r := New(config.RunnerConfig{
		Command:    "sh",
		Args:       []string{"-c", "exit 1; #"},
		Timeout:    time.Minute,
		ReportPath: reportPath,
	}, dir)

	out, err := NewVerifyAdapter(r, dir).Verify(context.Background(), "checkout")
	require.NoError(t, err)
	assert.False(t, out.Passed)
	require.Len(t, out.Failures, 1)
	assert.Contains(t, out.Failures[0].Message, "strict mode violation")
}
