// Package precheck validates run preconditions before any cluster
// operation is attempted.
package precheck

import (
	"fmt"
	"os"
	"strings"
)

// Check represents a single precondition that must hold before a run.
type Check struct {
	// Name identifies the precondition in reports.
	Name string

	// Required indicates the run must abort when the check fails.
	Required bool

	// Probe evaluates the precondition.
	Probe func() error

	// Hint explains how to fix a failing check.
	Hint string
}

// Result contains the outcome of evaluating a single check.
type Result struct {
	Check Check
	Err   error
}

// Results contains the outcomes of evaluating multiple checks.
type Results struct {
	Results []Result
	Failed  []Result
}

// HasErrors returns true if any required check failed.
func (r *Results) HasErrors() bool {
	for _, failed := range r.Failed {
		if failed.Check.Required {
			return true
		}
	}
	return false
}

// Error returns an error describing all failed required checks, or nil.
func (r *Results) Error() error {
	var failures []string
	for _, failed := range r.Failed {
		if !failed.Check.Required {
			continue
		}
		msg := fmt.Sprintf("%s: %v", failed.Check.Name, failed.Err)
		if failed.Check.Hint != "" {
			msg += fmt.Sprintf(" (%s)", failed.Check.Hint)
		}
		failures = append(failures, msg)
	}
	if len(failures) == 0 {
		return nil
	}
	return fmt.Errorf("precondition failed: %s", strings.Join(failures, "; "))
}

// Run evaluates all checks and collects the results.
func Run(checks []Check) *Results {
	results := &Results{}

	for _, check := range checks {
		result := Result{Check: check, Err: check.Probe()}
		if result.Err != nil {
			results.Failed = append(results.Failed, result)
		}
		results.Results = append(results.Results, result)
	}

	return results
}

// FileExists returns a probe that fails when the path does not point at a
// regular file.
func FileExists(path string) func() error {
	return func() error {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("file %q not found", path)
		}
		if info.IsDir() {
			return fmt.Errorf("%q is a directory, expected a file", path)
		}
		return nil
	}
}

// Deployment returns the precondition checks for a deployment run: the
// working-directory marker file and a readable kubeconfig.
func Deployment(markerFile, kubeconfig string) []Check {
	return []Check{
		{
			Name:     "working directory",
			Required: true,
			Probe:    FileExists(markerFile),
			Hint:     "run from the project root containing " + markerFile,
		},
		{
			Name:     "kubeconfig",
			Required: true,
			Probe:    FileExists(kubeconfig),
			Hint:     "set cluster.kubeconfig or KUBECONFIG to a valid kubeconfig",
		},
	}
}
