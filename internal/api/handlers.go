package api

import (
	"io"
	"net/http"
	"strconv"

	"argpipe/orchestrator/internal/apierr"
	"argpipe/orchestrator/internal/assets"
	"argpipe/orchestrator/internal/files"
	"argpipe/orchestrator/internal/models"
	"argpipe/orchestrator/internal/parser"
	"argpipe/orchestrator/internal/store"
	"argpipe/orchestrator/internal/supervisor"

	"github.com/gin-gonic/gin"
)

// Handler holds every component dependency the HTTP surface dispatches
// into; it performs no business logic itself. defaultThreads is carried
// explicitly rather than read from a package-level config handle, per
// spec.md §9's note against global mutable singletons.
type Handler struct {
	store          *store.Store
	sup            *supervisor.Supervisor
	assetMgr       *assets.Manager
	defaultThreads int
}

func NewHandler(st *store.Store, sup *supervisor.Supervisor, assetMgr *assets.Manager, defaultThreads int) *Handler {
	return &Handler{store: st, sup: sup, assetMgr: assetMgr, defaultThreads: defaultThreads}
}

// writeError maps the closed error taxonomy in apierr onto the HTTP status
// codes spec.md §7 assigns each kind.
func writeError(c *gin.Context, err error) {
	kind := apierr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apierr.KindInvalidInput:
		status = http.StatusBadRequest
	case apierr.KindNotFound:
		status = http.StatusNotFound
	case apierr.KindInvalidTransition, apierr.KindAlreadyTerminal, apierr.KindNotCompleted, apierr.KindAlreadyDownloading:
		status = http.StatusConflict
	case apierr.KindTooManyJobs:
		status = http.StatusTooManyRequests
	}
	c.JSON(status, gin.H{"error": string(kind), "message": err.Error()})
}

// LaunchRequest is the POST /launch body.
type LaunchRequest struct {
	SampleID      string `json:"sample_id" binding:"required"`
	Threads       int    `json:"threads"`
	ProkkaMode    string `json:"prokka_mode"`
	ProkkaGenus   string `json:"prokka_genus"`
	ProkkaSpecies string `json:"prokka_species"`
	Force         bool   `json:"force"`
}

func (h *Handler) Launch(c *gin.Context) {
	var req LaunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apierr.Wrap(apierr.KindInvalidInput, "invalid request body", err))
		return
	}

	threads := req.Threads
	if threads == 0 {
		threads = h.defaultThreads
	}
	prokkaMode := req.ProkkaMode
	if prokkaMode == "" {
		prokkaMode = "auto"
	}

	job, err := h.sup.Launch(supervisor.LaunchOptions{
		SampleID:      req.SampleID,
		Threads:       threads,
		ProkkaMode:    prokkaMode,
		ProkkaGenus:   req.ProkkaGenus,
		ProkkaSpecies: req.ProkkaSpecies,
		Force:         req.Force,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":     job.ID,
		"sample_id":  job.SampleID,
		"status":     job.Status,
		"created_at": job.CreatedAt,
	})
}

func (h *Handler) Status(c *gin.Context) {
	job, err := h.store.Get(c.Param("job_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":           job.ID,
		"sample_id":        job.SampleID,
		"status":           job.Status,
		"run_number":       job.RunNumber,
		"progress_percent": job.ProgressPercent,
		"current_step":     job.CurrentStep,
		"logs_preview":     job.LogsPreview,
		"started_at":       job.StartedAt,
		"completed_at":     job.CompletedAt,
		"exit_code":        job.ExitCode,
		"error_message":    job.ErrorMessage,
	})
}

func (h *Handler) Results(c *gin.Context) {
	job, err := h.store.Get(c.Param("job_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if job.Status != models.StatusCompleted {
		writeError(c, apierr.New(apierr.KindNotCompleted, "job has not completed"))
		return
	}

	results, err := parser.Parse(job.OutputDir, job.SampleID)
	if err != nil {
		writeError(c, apierr.Wrap(apierr.KindInternal, "failed to parse results", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"metadata":                results.Metadata,
		"assembly_stats":          results.AssemblyStats,
		"arg_detection":           results.ArgDetection,
		"deduplicated_genes":      results.DeduplicatedGenes,
		"deduplication_stats":     results.DeduplicationStats,
		"total_arg_genes":         results.TotalArgGenes,
		"total_unique_genes":      results.TotalUniqueGenes,
		"unique_resistance_types": results.UniqueResistanceTypes,
		"taxonomy":                results.Taxonomy,
		"mlst":                    results.MLST,
		"features_ml":             results.FeaturesML,
		"report_html_path":        results.ReportHTMLPath,
		"output_directory":        results.OutputDirectory,
		"completed_at":            job.CompletedAt,
		"parse_warnings":          results.ParseWarnings,
	})
}

func (h *Handler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := c.Query("status_filter")

	jobs, total, err := h.store.List(store.ListFilter{Status: status, Limit: limit, Offset: offset})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "jobs": jobs})
}

func (h *Handler) StopJob(c *gin.Context) {
	if err := h.sup.Stop(c.Param("job_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ack": true})
}

func (h *Handler) DeleteJob(c *gin.Context) {
	if err := h.store.Delete(c.Param("job_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListFiles(c *gin.Context) {
	job, err := h.store.Get(c.Param("job_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	entries, err := files.List(job.OutputDir)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) DownloadFile(c *gin.Context) {
	job, err := h.store.Get(c.Param("job_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	relPath := c.Param("rel_path")
	f, mimeType, err := files.Open(job.OutputDir, relPath)
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", mimeType)
	if _, err := io.Copy(c.Writer, f); err != nil {
		return
	}
}

func (h *Handler) ListDatabases(c *gin.Context) {
	c.JSON(http.StatusOK, h.assetMgr.List())
}

func (h *Handler) GetDatabase(c *gin.Context) {
	asset, err := h.assetMgr.Get(c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

func (h *Handler) UpdateDatabase(c *gin.Context) {
	if err := h.assetMgr.Update(c.Param("key")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ack": true})
}

func (h *Handler) DatabaseProgress(c *gin.Context) {
	state, percent, message, err := h.assetMgr.Progress(c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state, "percent": percent, "last_message": message})
}
