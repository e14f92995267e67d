package supervisor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"argpipe/orchestrator/internal/models"
	"argpipe/orchestrator/internal/runnumber"
	"argpipe/orchestrator/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestSupervisor(t *testing.T, scriptBody string, maxConcurrent int, gracePeriod, drain time.Duration) (*Supervisor, *store.Store) {
	t.Helper()
	outputsRoot := t.TempDir()
	scriptDir := t.TempDir()
	scriptPath := filepath.Join(scriptDir, "pipeline.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte(scriptBody), 0o755))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	st := store.New(db)

	allocator := runnumber.New(outputsRoot)
	sup := New(st, allocator, scriptPath, outputsRoot, maxConcurrent, gracePeriod, drain)
	return sup, st
}

func waitForJobStatus(t *testing.T, st *store.Store, jobID, want string, timeout time.Duration) *models.Job {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var last *models.Job
	for time.Now().Before(deadline) {
		job, err := st.Get(jobID)
		require.NoError(t, err)
		last = job
		if job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s, last seen %+v", jobID, want, last)
	return nil
}

const quickExitScript = "#!/bin/sh\nsleep 0.05\nexit 0\n"

// ignoresTermScript traps SIGTERM so the grace-period force-kill path is
// actually exercised, the way a stuck analysis tool might.
const ignoresTermScript = "#!/bin/sh\ntrap '' TERM\nsleep 30 &\nwait\n"

// TestStopGracefulThenForcefulKill mirrors spec scenario S4: a child that
// ignores graceful termination is still brought down by the forced kill
// after the grace period, and the terminal status/exit_code/error_message
// are recorded only once the watcher actually reaps it.
func TestStopGracefulThenForcefulKill(t *testing.T) {
	sup, st := newTestSupervisor(t, ignoresTermScript, 1, 150*time.Millisecond, time.Second)

	job, err := sup.Launch(LaunchOptions{SampleID: "SRR1", Threads: 1, ProkkaMode: "auto"})
	require.NoError(t, err)
	require.Equal(t, models.StatusRunning, job.Status)

	require.NoError(t, sup.Stop(job.ID))

	got, err := st.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, got.Status, "Stop must not itself write the terminal status")

	final := waitForJobStatus(t, st, job.ID, models.StatusStopped, 3*time.Second)
	require.NotNil(t, final.ExitCode)
	assert.NotEqual(t, 0, *final.ExitCode, "a force-killed child must not report exit_code 0")
	assert.NotEmpty(t, final.ErrorMessage)
	require.NotNil(t, final.CompletedAt)
	require.NotNil(t, final.StartedAt)
	assert.True(t, !final.CompletedAt.Before(*final.StartedAt))
}

// TestStopOnTerminalJobIsNoop covers testable property 6: stop on a
// terminal job is a no-op.
func TestStopOnTerminalJobIsNoop(t *testing.T) {
	sup, st := newTestSupervisor(t, quickExitScript, 1, 200*time.Millisecond, time.Second)

	job, err := sup.Launch(LaunchOptions{SampleID: "SRR1", Threads: 1, ProkkaMode: "auto"})
	require.NoError(t, err)

	waitForJobStatus(t, st, job.ID, models.StatusCompleted, 2*time.Second)

	err = sup.Stop(job.ID)
	assert.NoError(t, err)
}

// TestStopIsIdempotentDuringRunning covers testable property 6's other
// half: repeated stop calls while RUNNING converge to STOPPED exactly once.
func TestStopIsIdempotentDuringRunning(t *testing.T) {
	sup, st := newTestSupervisor(t, ignoresTermScript, 1, 150*time.Millisecond, time.Second)

	job, err := sup.Launch(LaunchOptions{SampleID: "SRR1", Threads: 1, ProkkaMode: "auto"})
	require.NoError(t, err)

	require.NoError(t, sup.Stop(job.ID))
	require.NoError(t, sup.Stop(job.ID))

	waitForJobStatus(t, st, job.ID, models.StatusStopped, 3*time.Second)
}

// TestStopUnknownJobReturnsNotFound exercises the unknown-id branch: the
// store lookup fails before any running-child check.
func TestStopUnknownJobReturnsNotFound(t *testing.T) {
	sup, _ := newTestSupervisor(t, quickExitScript, 1, time.Second, time.Second)
	err := sup.Stop("does-not-exist")
	require.Error(t, err)
}

// TestAdmissionCapRejectsSecondLaunch mirrors spec scenario S3.
func TestAdmissionCapRejectsSecondLaunch(t *testing.T) {
	sup, st := newTestSupervisor(t, ignoresTermScript, 1, time.Second, time.Second)

	job1, err := sup.Launch(LaunchOptions{SampleID: "SRR1", Threads: 1, ProkkaMode: "auto"})
	require.NoError(t, err)

	_, err = sup.Launch(LaunchOptions{SampleID: "SRR2", Threads: 1, ProkkaMode: "auto"})
	require.Error(t, err)

	require.NoError(t, sup.Stop(job1.ID))
	waitForJobStatus(t, st, job1.ID, models.StatusStopped, 3*time.Second)
}

// TestShutdownForceKillsSurvivingChildren exercises the drain-then-force
// path used on service shutdown.
func TestShutdownForceKillsSurvivingChildren(t *testing.T) {
	sup, st := newTestSupervisor(t, ignoresTermScript, 1, time.Second, 100*time.Millisecond)

	job, err := sup.Launch(LaunchOptions{SampleID: "SRR1", Threads: 1, ProkkaMode: "auto"})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		sup.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Shutdown did not return within the drain budget")
	}

	final := waitForJobStatus(t, st, job.ID, models.StatusFailed, 3*time.Second)
	require.NotNil(t, final.ExitCode)
	assert.NotEqual(t, 0, *final.ExitCode)
}
