// Package supervisor implements component D: spawning the external
// pipeline script as a supervised child process, enforcing the concurrency
// cap, and delivering a terminal status back to the store.
package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"argpipe/orchestrator/internal/apierr"
	"argpipe/orchestrator/internal/classify"
	"argpipe/orchestrator/internal/models"
	"argpipe/orchestrator/internal/progress"
	"argpipe/orchestrator/internal/runnumber"
	"argpipe/orchestrator/internal/store"

	"golang.org/x/sync/errgroup"
)

// LaunchOptions are the caller-supplied fields for Launch, echoed onto the
// child invocation unchanged.
type LaunchOptions struct {
	SampleID      string
	Threads       int
	ProkkaMode    string
	ProkkaGenus   string
	ProkkaSpecies string
	Force         bool
}

// Supervisor owns the admission cap, the run-number allocator, and the set
// of currently-running child processes.
type Supervisor struct {
	store       *store.Store
	allocator   *runnumber.Allocator
	scriptPath  string
	outputsRoot string

	maxConcurrent      int
	stopGracePeriod    time.Duration
	shutdownDrain      time.Duration

	mu      sync.Mutex
	running map[string]*runningChild // job id -> child
	admitted int                     // count of slots reserved or in use
}

type runningChild struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	// stopRequested is set by Stop and read by watch (both under s.mu) so
	// the watcher can classify the reaped child as STOPPED rather than
	// FAILED once it actually exits.
	stopRequested bool
}

func New(st *store.Store, allocator *runnumber.Allocator, scriptPath, outputsRoot string, maxConcurrent int, stopGracePeriod, shutdownDrain time.Duration) *Supervisor {
	return &Supervisor{
		store:           st,
		allocator:       allocator,
		scriptPath:      scriptPath,
		outputsRoot:     outputsRoot,
		maxConcurrent:   maxConcurrent,
		stopGracePeriod: stopGracePeriod,
		shutdownDrain:   shutdownDrain,
		running:         make(map[string]*runningChild),
	}
}

// Launch validates sampleID via the classifier, writes the PENDING row,
// then allocates a run number and spawns the child. It returns the created job
// or a KindTooManyJobs/KindInvalidInput error.
func (s *Supervisor) Launch(opts LaunchOptions) (*models.Job, error) {
	inputType, err := classify.Classify(opts.SampleID, os.Stat)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.admitted >= s.maxConcurrent {
		s.mu.Unlock()
		return nil, apierr.New(apierr.KindTooManyJobs, "max_concurrent_jobs reached")
	}
	// Reserve the admission slot before releasing the lock so a second
	// concurrent Launch call observes the reservation immediately.
	s.admitted++
	s.mu.Unlock()

	job, err := s.store.CreateJob(store.NewJob{
		SampleID:      opts.SampleID,
		InputType:     inputType,
		Threads:       opts.Threads,
		ProkkaMode:    opts.ProkkaMode,
		ProkkaGenus:   opts.ProkkaGenus,
		ProkkaSpecies: opts.ProkkaSpecies,
		Force:         opts.Force,
	})
	if err != nil {
		s.releaseReservation()
		return nil, err
	}

	if err := s.spawn(job, opts); err != nil {
		s.releaseReservation()
		now := time.Now()
		msg := err.Error()
		_ = s.store.UpdateStatus(job.ID, models.StatusFailed, store.StatusUpdate{
			CompletedAt:  &now,
			ErrorMessage: msg,
		})
		return nil, apierr.Wrap(apierr.KindInternal, "spawn failed", err)
	}

	return s.store.Get(job.ID)
}

func (s *Supervisor) releaseReservation() {
	s.mu.Lock()
	s.admitted--
	s.mu.Unlock()
}

// spawn implements the spawn protocol in spec.md §4.D.
func (s *Supervisor) spawn(job *models.Job, opts LaunchOptions) error {
	runNumber, outputDir, err := s.allocator.Next(opts.SampleID)
	if err != nil {
		return fmt.Errorf("run-number allocation failed: %w", err)
	}

	logsDir := filepath.Join(outputDir, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	logPath := filepath.Join(logsDir, fmt.Sprintf("pipeline_%d.log", time.Now().Unix()))
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	args := buildArgs(opts)
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, s.scriptPath, args...)
	cmd.Dir = filepath.Dir(s.scriptPath)
	cmd.SysProcAttr = childProcessGroupAttr()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		logFile.Close()
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		logFile.Close()
		return fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		logFile.Close()
		return fmt.Errorf("failed to start child: %w", err)
	}

	startedAt := time.Now()
	if err := s.store.UpdateStatus(job.ID, models.StatusRunning, store.StatusUpdate{
		RunNumber: runNumber,
		OutputDir: outputDir,
		PID:       cmd.Process.Pid,
		StartedAt: &startedAt,
	}); err != nil {
		cancel()
		logFile.Close()
		return fmt.Errorf("failed to record running status: %w", err)
	}

	s.mu.Lock()
	s.running[job.ID] = &runningChild{cmd: cmd, cancel: cancel}
	s.mu.Unlock()

	go s.watch(job.ID, cmd, stdout, stderr, logFile)

	return nil
}

func buildArgs(opts LaunchOptions) []string {
	args := []string{opts.SampleID, "--prokka-mode", opts.ProkkaMode, "-t", fmt.Sprintf("%d", opts.Threads)}
	if opts.ProkkaMode == "custom" {
		if opts.ProkkaGenus != "" {
			args = append(args, "--prokka-genus", opts.ProkkaGenus)
		}
		if opts.ProkkaSpecies != "" {
			args = append(args, "--prokka-species", opts.ProkkaSpecies)
		}
	}
	if opts.Force {
		args = append(args, "--force")
	}
	return args
}

// watch blocks on the child's exit, merges its stdout/stderr into the log
// file and the progress tracker, and transitions the job to its terminal
// status. It must not hold any lock across the wait on cmd.Wait().
func (s *Supervisor) watch(jobID string, cmd *exec.Cmd, stdout, stderr io.Reader, logFile *os.File) {
	defer logFile.Close()

	tracker := progress.New()
	var tail ring
	var mu sync.Mutex

	consume := func(r io.Reader) error {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			fmt.Fprintln(logFile, line)

			mu.Lock()
			tail.push(line)
			update := tracker.Line(line)
			mu.Unlock()

			if err := s.store.UpdateProgress(jobID, update.Percent, update.Step, update.Line); err != nil {
				slog.Error("failed to persist progress", "job_id", jobID, "error", err)
			}
		}
		return scanner.Err()
	}

	var g errgroup.Group
	g.Go(func() error { return consume(stdout) })
	g.Go(func() error { return consume(stderr) })
	_ = g.Wait()

	err := cmd.Wait()

	s.mu.Lock()
	child, ok := s.running[jobID]
	stopRequested := ok && child.stopRequested
	if ok {
		child.cancel()
	}
	delete(s.running, jobID)
	s.admitted--
	s.mu.Unlock()

	completedAt := time.Now()
	exitCode := exitCodeFromErr(err)
	status := models.StatusCompleted
	errorMessage := ""

	switch {
	case stopRequested:
		// The reap itself is the authoritative terminal event per
		// spec.md §4.D: "Transitions to STOPPED when the child reaps."
		// Stop only dispatched the signals; this goroutine records the
		// outcome once the child has actually exited.
		status = models.StatusStopped
		errorMessage = "stopped by request"
	case err != nil:
		status = models.StatusFailed
		errorMessage = strings.Join(tail.lines(), "\n")
		if errorMessage == "" {
			errorMessage = err.Error()
		}
	}

	update := store.StatusUpdate{
		CompletedAt: &completedAt,
		ExitCode:    &exitCode,
	}
	if errorMessage != "" {
		update.ErrorMessage = errorMessage
	}

	if updErr := s.store.UpdateStatus(jobID, status, update); updErr != nil {
		slog.Error("failed to record terminal status", "job_id", jobID, "error", updErr)
	}
}

func exitCodeFromErr(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

// Stop dispatches a graceful termination to the child's process group,
// then a hard kill after the grace period. It only signals the process;
// the watch goroutine already blocked on this job's cmd.Wait() records the
// STOPPED transition, exit code, and completion time once the child is
// actually reaped, the same way it owns every other terminal transition.
// Stop is idempotent: calling it on a terminal job is a no-op.
func (s *Supervisor) Stop(jobID string) error {
	job, err := s.store.Get(jobID)
	if err != nil {
		return err
	}
	if models.IsTerminal(job.Status) {
		return nil
	}

	s.mu.Lock()
	child, ok := s.running[jobID]
	if ok {
		child.stopRequested = true
	}
	s.mu.Unlock()
	if !ok {
		return apierr.New(apierr.KindNotFound, "job has no running child")
	}

	pgid := child.cmd.Process.Pid
	_ = terminateProcessGroupGraceful(pgid)

	go func() {
		timer := time.NewTimer(s.stopGracePeriod)
		defer timer.Stop()
		<-timer.C
		_ = terminateProcessGroupForceful(pgid)
	}()

	return nil
}

// Shutdown sends graceful termination to every running child, waits up to
// the configured drain period, then force-kills survivors.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	pids := make([]int, 0, len(s.running))
	for _, c := range s.running {
		if c.cmd != nil && c.cmd.Process != nil {
			pids = append(pids, c.cmd.Process.Pid)
		}
	}
	s.mu.Unlock()

	for _, pid := range pids {
		_ = terminateProcessGroupGraceful(pid)
	}

	deadline := time.Now().Add(s.shutdownDrain)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		remaining := len(s.running)
		s.mu.Unlock()
		if remaining == 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	for _, pid := range pids {
		_ = terminateProcessGroupForceful(pid)
	}
}

// ring is a small bounded buffer of the most recent lines, used to derive
// error_message from the tail of output on failure.
type ring struct {
	buf []string
}

const ringSize = 20

func (r *ring) push(line string) {
	r.buf = append(r.buf, line)
	if len(r.buf) > ringSize {
		r.buf = r.buf[len(r.buf)-ringSize:]
	}
}

func (r *ring) lines() []string { return r.buf }
