// Package script implements the Script Runner (spec.md §4.8): it
// executes an installer's declared post-install actions in order,
// capturing output and enforcing per-action timeouts. Process spawning
// and output capture follow the teacher's own
// `cmd.Stdout = io.MultiWriter(os.Stdout, buildLog)` +
// `exec.CommandContext` idiom (internal/build/build.go); hidden-window
// and process-tree-kill mechanics are OS-specific and live in
// runner_windows.go / runner_other.go.
package script

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"time"

	"golang.org/x/xerrors"

	"github.com/inspa-build/inspa/internal/config"
	"github.com/inspa-build/inspa/internal/header"
	"github.com/inspa-build/inspa/internal/progress"
)

// Outcome classifies how one action finished.
type Outcome string

const (
	Success  Outcome = "success"
	Failed   Outcome = "failed"
	TimedOut Outcome = "timed_out"
	Skipped  Outcome = "skipped"
)

// Result records the outcome of one executed (or skipped) action.
type Result struct {
	Action   header.Script
	Outcome  Outcome
	ExitCode int
	Err      error
}

// succeeded reports whether this result counts as success for the
// purposes of a later action's run_if=success/failure evaluation.
func (r Result) succeeded() bool {
	return r.Outcome == Success || r.Outcome == Skipped
}

// Runner executes a sequence of post-install actions against a working
// directory, writing captured output to Log and forwarding progress to
// Queue (either may be left zero-valued: Log defaults to io.Discard,
// a nil Queue is already a documented no-op).
type Runner struct {
	Log   io.Writer
	Queue *progress.Queue
}

// RunAll executes actions in declaration order (spec.md §4.8), honoring
// run_if relative to whether any prior action failed, and returns one
// Result per action — including Skipped entries for actions run_if
// excluded, so callers have a complete record. RunAll itself only
// returns a non-nil error for a context cancellation that aborts the
// whole sequence; individual action failures are reported via Result
// and do not abort the loop, per spec.md's default failure policy.
func (r *Runner) RunAll(ctx context.Context, actions []header.Script, workDir string) ([]Result, error) {
	results := make([]Result, 0, len(actions))
	anyFailed := false

	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		if !shouldRun(a.RunIf, anyFailed) {
			results = append(results, Result{Action: a, Outcome: Skipped})
			continue
		}

		res := r.run(ctx, a, workDir)
		results = append(results, res)
		if !res.succeeded() {
			anyFailed = true
		}
	}
	return results, nil
}

func shouldRun(runIf config.RunIf, anyFailed bool) bool {
	switch runIf {
	case config.RunAlways:
		return true
	case config.RunFailure:
		return anyFailed
	case config.RunSuccess:
		return !anyFailed
	default:
		return false
	}
}

func (r *Runner) run(ctx context.Context, a header.Script, workDir string) Result {
	name, args, err := interpreterCommand(a)
	if err != nil {
		return Result{Action: a, Outcome: Failed, Err: err}
	}

	timeout := time.Duration(a.TimeoutSec) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = workDir
	cmd.WaitDelay = 5 * time.Second
	configureHidden(cmd)
	assignToTreeKillJob, releaseTreeKillJob := configureTreeKill(cmd)

	logw := r.Log
	if logw == nil {
		logw = io.Discard
	}

	stdout, stdoutWriters := teeLines(logw, a.ShowInUI, r.Queue)
	stderr, stderrWriters := teeLines(logw, a.ShowInUI, r.Queue)
	cmd.Stdout = stdoutWriters
	cmd.Stderr = stderrWriters

	// Start and Wait (rather than Run) so the child can be assigned to
	// its tree-kill job immediately after it exists, instead of only
	// when and if the action is later cancelled.
	var runErr error
	if runErr = cmd.Start(); runErr == nil {
		assignToTreeKillJob()
		runErr = cmd.Wait()
		releaseTreeKillJob()
	}
	stdout.wait()
	stderr.wait()

	if runCtx.Err() == context.DeadlineExceeded {
		return Result{Action: a, Outcome: TimedOut, Err: xerrors.Errorf("script: %s timed out after %s", a.Command, timeout)}
	}
	if runErr != nil {
		exitCode := -1
		if ee, ok := runErr.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return Result{Action: a, Outcome: Failed, ExitCode: exitCode, Err: xerrors.Errorf("script: %s: %w", a.Command, runErr)}
	}
	return Result{Action: a, Outcome: Success}
}

// interpreterCommand resolves the interpreter executable and its
// argument vector for an action (spec.md §4.8 "Interpreter selection").
func interpreterCommand(a header.Script) (string, []string, error) {
	switch a.Type {
	case config.ScriptPowerShell:
		args := append([]string{"-NoProfile", "-ExecutionPolicy", "Bypass", "-File", a.Command}, a.Args...)
		return "powershell.exe", args, nil
	case config.ScriptBatch:
		args := append([]string{"/C", a.Command}, a.Args...)
		return "cmd.exe", args, nil
	default:
		return "", nil, xerrors.Errorf("script: unknown action type %q", a.Type)
	}
}

// lineTee scans a pipe fed by the child process, appending every line to
// the install log and, when shown, forwarding it as a progress.LogLine
// event (spec.md §4.8 "Output").
type lineTee struct {
	w    *io.PipeWriter
	done chan struct{}
}

func (t *lineTee) wait() {
	t.w.Close()
	<-t.done
}

func teeLines(logw io.Writer, showInUI bool, q *progress.Queue) (*lineTee, io.Writer) {
	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 4096), 1<<20)
		for scanner.Scan() {
			line := scanner.Text()
			io.WriteString(logw, line+"\n")
			if showInUI {
				q.Emit(progress.Event{Kind: progress.LogLine, Line: line})
			}
		}
		io.Copy(io.Discard, pr) // drain on scanner error so the writer side never blocks
	}()
	return &lineTee{w: pw, done: done}, pw
}
