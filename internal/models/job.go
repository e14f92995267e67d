// Package models holds the gorm records persisted by the store.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Status values, forming the transition table enforced by internal/store.
const (
	StatusPending   = "PENDING"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusStopped   = "STOPPED"
)

// Input-type values produced by internal/classify.
const (
	InputTypeReadsArchive      = "reads_archive"
	InputTypeSequenceAccession = "sequence_accession"
	InputTypeAssemblyAccession = "assembly_accession"
	InputTypeLocalFile         = "local_file"
)

// Job is the central entity: one row per submission.
type Job struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SampleID    string `gorm:"not null;type:varchar(500);index" json:"sample_id"`
	InputType   string `gorm:"type:varchar(50)" json:"input_type"`
	Status      string `gorm:"not null;type:varchar(20);index" json:"status"`
	RunNumber   int    `gorm:"default:0" json:"run_number"`
	OutputDir   string `gorm:"type:varchar(1000)" json:"output_dir"`
	PID         int    `gorm:"column:pid;default:0" json:"pid"`

	Threads      int    `gorm:"default:8" json:"threads"`
	ProkkaMode   string `gorm:"type:varchar(20);default:'auto'" json:"prokka_mode"`
	ProkkaGenus  string `gorm:"type:varchar(100)" json:"prokka_genus"`
	ProkkaSpecies string `gorm:"type:varchar(100)" json:"prokka_species"`
	Force        bool   `gorm:"default:false" json:"force"`

	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	ExitCode     *int   `json:"exit_code"`
	ErrorMessage string `gorm:"type:text" json:"error_message"`

	ProgressPercent int    `gorm:"default:0" json:"progress_percent"`
	CurrentStep     string `gorm:"type:varchar(50);default:'initializing'" json:"current_step"`
	LogsPreview     string `gorm:"type:text" json:"logs_preview"`

	Deleted bool `gorm:"default:false" json:"deleted"`

	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Job) TableName() string { return "jobs" }

// IsTerminal reports whether status is one of the terminal statuses.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusStopped:
		return true
	default:
		return false
	}
}
