// Package store is the single-writer, multi-reader persistence layer for
// Job records (component A). It is the only place status transitions are
// validated and the only place progress is merged.
package store

import (
	"fmt"
	"os"
	"sync"
	"time"

	"argpipe/orchestrator/internal/apierr"
	"argpipe/orchestrator/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store wraps a gorm handle with the transition rules and progress-merge
// semantics the rest of the service depends on.
type Store struct {
	db *gorm.DB
	// mu serializes status transitions so the read-modify-write around the
	// transition table check is atomic even though gorm itself does not
	// give us a CAS primitive against sqlite.
	mu sync.Mutex
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// transitions enumerates every edge the transition table in spec.md §4.A
// permits, keyed by "from".
var transitions = map[string]map[string]bool{
	models.StatusPending: {models.StatusRunning: true, models.StatusFailed: true, models.StatusStopped: true},
	models.StatusRunning: {models.StatusCompleted: true, models.StatusFailed: true, models.StatusStopped: true},
}

// NewJob are the caller-supplied fields for CreateJob; everything else is
// set by the store.
type NewJob struct {
	SampleID      string
	InputType     string
	Threads       int
	ProkkaMode    string
	ProkkaGenus   string
	ProkkaSpecies string
	Force         bool
}

// CreateJob inserts a new PENDING row and returns the created job. Insertion is a
// single atomic gorm Create; there is no partial-write window the caller
// can observe.
func (s *Store) CreateJob(n NewJob) (*models.Job, error) {
	job := &models.Job{
		ID:          uuid.New().String(),
		SampleID:    n.SampleID,
		InputType:   n.InputType,
		Status:      models.StatusPending,
		Threads:     n.Threads,
		ProkkaMode:  n.ProkkaMode,
		ProkkaGenus: n.ProkkaGenus,
		ProkkaSpecies: n.ProkkaSpecies,
		Force:       n.Force,
		CreatedAt:   time.Now(),
		CurrentStep: "initializing",
	}
	if err := s.db.Create(job).Error; err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "failed to create job", err)
	}
	return job, nil
}

// StatusUpdate carries the fields that accompany a status transition.
// Only the fields relevant to the target status need to be set.
type StatusUpdate struct {
	RunNumber    int
	OutputDir    string
	PID          int
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ExitCode     *int
	ErrorMessage string
}

// UpdateStatus enforces the transition table and applies StatusUpdate's
// fields in the same atomic write. Any edge not present in the transition
// table fails with apierr.KindInvalidTransition (or KindAlreadyTerminal
// when the caller asked for a transition away from an already-terminal
// status, per spec.md invariant 4 / testable property 6).
func (s *Store) UpdateStatus(id, newStatus string, fields StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var job models.Job
	if err := s.db.First(&job, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apierr.New(apierr.KindNotFound, "job not found")
		}
		return apierr.Wrap(apierr.KindInternal, "failed to load job", err)
	}

	if models.IsTerminal(job.Status) {
		return apierr.New(apierr.KindAlreadyTerminal, fmt.Sprintf("job %s is already %s", id, job.Status))
	}
	if !transitions[job.Status][newStatus] {
		return apierr.New(apierr.KindInvalidTransition, fmt.Sprintf("cannot transition %s -> %s", job.Status, newStatus))
	}

	updates := map[string]interface{}{"status": newStatus, "updated_at": time.Now()}
	if fields.RunNumber != 0 {
		updates["run_number"] = fields.RunNumber
	}
	if fields.OutputDir != "" {
		updates["output_dir"] = fields.OutputDir
	}
	if newStatus == models.StatusRunning {
		updates["pid"] = fields.PID
	}
	if models.IsTerminal(newStatus) {
		updates["pid"] = 0
	}
	if fields.StartedAt != nil {
		updates["started_at"] = *fields.StartedAt
	}
	if fields.CompletedAt != nil {
		updates["completed_at"] = *fields.CompletedAt
	}
	if fields.ExitCode != nil {
		updates["exit_code"] = *fields.ExitCode
	}
	if fields.ErrorMessage != "" {
		updates["error_message"] = fields.ErrorMessage
	}

	if err := s.db.Model(&models.Job{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return apierr.Wrap(apierr.KindInternal, "failed to update job status", err)
	}
	return nil
}

// UpdateProgress is an unconditional in-place merge: percent is clamped to
// max(old, new) so progress never regresses regardless of call ordering.
func (s *Store) UpdateProgress(id string, percent int, step, previewLine string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var job models.Job
	if err := s.db.First(&job, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apierr.New(apierr.KindNotFound, "job not found")
		}
		return apierr.Wrap(apierr.KindInternal, "failed to load job", err)
	}

	newPercent := percent
	if job.ProgressPercent > newPercent {
		newPercent = job.ProgressPercent
	}

	preview := appendToPreview(job.LogsPreview, previewLine)

	updates := map[string]interface{}{
		"progress_percent": newPercent,
		"current_step":     step,
		"logs_preview":     preview,
		"updated_at":       time.Now(),
	}
	if err := s.db.Model(&models.Job{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return apierr.Wrap(apierr.KindInternal, "failed to update progress", err)
	}
	return nil
}

// previewRingSize matches spec.md §4.E's "bounded ring buffer of size ~200
// lines".
const previewRingSize = 200

func appendToPreview(existing, line string) string {
	if line == "" {
		return existing
	}
	lines := splitLines(existing)
	lines = append(lines, line)
	if len(lines) > previewRingSize {
		lines = lines[len(lines)-previewRingSize:]
	}
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// Get returns a job by id.
func (s *Store) Get(id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.First(&job, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apierr.New(apierr.KindNotFound, "job not found")
		}
		return nil, apierr.Wrap(apierr.KindInternal, "failed to load job", err)
	}
	return &job, nil
}

// ListFilter narrows List's result set.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}

// List returns jobs matching filter, newest first, and the total count
// ignoring limit/offset.
func (s *Store) List(f ListFilter) ([]models.Job, int64, error) {
	var jobs []models.Job
	var total int64

	query := s.db.Model(&models.Job{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apierr.Wrap(apierr.KindInternal, "failed to count jobs", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(f.Offset).Find(&jobs).Error; err != nil {
		return nil, 0, apierr.Wrap(apierr.KindInternal, "failed to list jobs", err)
	}
	return jobs, total, nil
}

// Delete marks a job deleted and best-effort removes its output directory,
// per spec.md invariant 4. The row itself is soft-deleted via gorm: it stays
// in the table with deleted=true, but Get, List and ReconcileOnStartup no
// longer see it.
func (s *Store) Delete(id string) error {
	job, err := s.Get(id)
	if err != nil {
		return err
	}
	if job.OutputDir != "" {
		_ = os.RemoveAll(job.OutputDir) // best-effort, per spec.md §4.A
	}
	if err := s.db.Model(&models.Job{}).Where("id = ?", id).Update("deleted", true).Error; err != nil {
		return apierr.Wrap(apierr.KindInternal, "failed to mark job deleted", err)
	}
	if err := s.db.Delete(&models.Job{}, "id = ?", id).Error; err != nil {
		return apierr.Wrap(apierr.KindInternal, "failed to delete job", err)
	}
	return nil
}

// ReconcileOnStartup transitions every RUNNING row to FAILED, per spec.md
// §4.D: "on restart, A.reconcile marks orphans FAILED; no attempt to
// re-adopt OS processes." A freshly-started process owns no watcher and no
// `running` map entry for any row still marked RUNNING in the store, so
// whether the OS pid happens to still be alive is irrelevant — it is never
// legitimately this process's child, and is left for OS cleanup, not
// adopted.
func (s *Store) ReconcileOnStartup() (int, error) {
	var running []models.Job
	if err := s.db.Where("status = ?", models.StatusRunning).Find(&running).Error; err != nil {
		return 0, apierr.Wrap(apierr.KindInternal, "failed to list running jobs", err)
	}

	reconciled := 0
	for _, job := range running {
		now := time.Now()
		err := s.UpdateStatus(job.ID, models.StatusFailed, StatusUpdate{
			CompletedAt:  &now,
			ErrorMessage: "supervisor restarted; process lost",
		})
		if err != nil {
			return reconciled, err
		}
		reconciled++
	}
	return reconciled, nil
}
