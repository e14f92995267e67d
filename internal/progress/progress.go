// Package progress implements component E: consuming the child's log lines
// and maintaining a never-decreasing percent, the phase of the latest
// matched marker, and a bounded log preview.
package progress

import "regexp"

// Phase vocabulary, closed set per spec.md §6.
const (
	PhaseInitializing   = "initializing"
	PhaseDownloading     = "downloading"
	PhaseQualityControl  = "quality_control"
	PhaseAssembly        = "assembly"
	PhaseAnnotation      = "annotation"
	PhaseArgDetection    = "arg_detection"
	PhaseVariantCalling  = "variant_calling"
	PhaseReporting       = "reporting"
	PhaseFinalizing      = "finalizing"
)

// Marker is a (regex, phase_name, cumulative_percent_at_entry) triple.
type Marker struct {
	Pattern *regexp.Regexp
	Phase   string
	Percent int
}

// markers covers the known stages of the external pipeline, grounded on the
// module-name keyword lists in original_source/backend/pipeline_launcher.py's
// estimate_progress, generalized from whole-log keyword containment to an
// ordered first-match-wins marker list consumed one line at a time.
var markers = []Marker{
	{regexp.MustCompile(`(?i)(t.l.chargement|downloading|prefetch|fasterq-dump)`), PhaseDownloading, 10},
	{regexp.MustCompile(`(?i)(contr.le qualit.|quality control|fastqc|fastp)`), PhaseQualityControl, 20},
	{regexp.MustCompile(`(?i)(assemblage|assembly|spades|unicycler)`), PhaseAssembly, 40},
	{regexp.MustCompile(`(?i)(annotation|prokka)`), PhaseAnnotation, 60},
	{regexp.MustCompile(`(?i)(d.tection arg|arg detection|resfinder|amrfinderplus|card|vfdb|rgi)`), PhaseArgDetection, 80},
	{regexp.MustCompile(`(?i)(variant.call|snippy|variant calling)`), PhaseVariantCalling, 85},
	{regexp.MustCompile(`(?i)(rapports?|reports?|report generation)`), PhaseReporting, 90},
	{regexp.MustCompile(`(?i)(termin.? avec succ.s|finalizing|finished successfully)`), PhaseFinalizing, 100},
}

// previewRingSize is the bounded ring buffer size for logs_preview.
const previewRingSize = 200

// Tracker holds the running state for a single job's progress computation.
// It is not safe for concurrent use; the supervisor owns one per job and
// feeds it lines from a single reader goroutine.
type Tracker struct {
	percent int
	step    string
	preview []string
}

func New() *Tracker {
	return &Tracker{step: PhaseInitializing}
}

// Update ingests carries the result of processing a line.
type Update struct {
	Percent int
	Step    string
	Line    string
}

// Line processes one new line of child output and returns the update to
// persist. Percent is clamped to max(old, new); multiple markers can match
// a single line, first match in order wins.
func (t *Tracker) Line(line string) Update {
	t.preview = append(t.preview, line)
	if len(t.preview) > previewRingSize {
		t.preview = t.preview[len(t.preview)-previewRingSize:]
	}

	for _, m := range markers {
		if m.Pattern.MatchString(line) {
			if m.Percent > t.percent {
				t.percent = m.Percent
			}
			t.step = m.Phase
			break
		}
	}

	return Update{Percent: t.percent, Step: t.step, Line: line}
}

// Preview returns the current ring buffer contents joined by newlines.
func (t *Tracker) Preview() string {
	out := ""
	for i, l := range t.preview {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
