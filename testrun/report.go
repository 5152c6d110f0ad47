package testrun

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/hairizuan-noorazman/ui-harness/scenario"
)

// Summary is the final attempt of one scenario.
type Summary struct {
	Result   scenario.Result
	Attempts int
}

// Report summarizes a test run in scenario order.
type Report struct {
	RunID       uuid.UUID
	Environment string
	StartedAt   time.Time
	Elapsed     time.Duration
	Scenarios   []Summary
}

// Passed returns the number of scenarios whose final attempt passed.
func (r *Report) Passed() int {
	n := 0
	for _, s := range r.Scenarios {
		if s.Result.Succeeded {
			n++
		}
	}
	return n
}

// Failed returns the number of scenarios whose final attempt failed.
func (r *Report) Failed() int {
	return len(r.Scenarios) - r.Passed()
}

// ExitCode is 0 when every scenario passed and 1 otherwise.
func (r *Report) ExitCode() int {
	if r.Failed() > 0 {
		return 1
	}
	return 0
}

func (r *Report) String() string {
	return fmt.Sprintf("%d passed, %d failed", r.Passed(), r.Failed())
}

// Write prints one line per scenario followed by the totals.
func (r *Report) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "RESULT\tSCENARIO\tATTEMPTS\tELAPSED\tDETAIL\n")
	for _, s := range r.Scenarios {
		res := s.Result
		status, detail := "PASS", ""
		if !res.Succeeded {
			status = "FAIL"
			detail = fmt.Sprintf("step %d (%s): %v", res.FailedStep, res.FailedAction, res.Err)
			if res.FailedAction == "" {
				detail = fmt.Sprintf("%v", res.Err)
			}
			if res.Screenshot != "" {
				detail += " [" + res.Screenshot + "]"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%dms\t%s\n", status, res.Scenario, s.Attempts, res.Elapsed.Milliseconds(), detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\ntest run %s (%s): %s in %s\n", r.RunID, r.Environment, r, r.Elapsed.Round(time.Millisecond))
	return err
}
