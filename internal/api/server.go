// Package api is the thin HTTP adapter: request parsing, DTO validation,
// and mapping component errors onto the wire error taxonomy. It carries no
// business logic of its own, per spec.md §4.H.
package api

import (
	"fmt"
	"net/http"

	"argpipe/orchestrator/internal/assets"
	"argpipe/orchestrator/internal/store"
	"argpipe/orchestrator/internal/supervisor"

	"github.com/gin-gonic/gin"
)

// Server wraps the gin engine and its dependencies.
type Server struct {
	router *gin.Engine
}

// NewServer wires every endpoint in spec.md §6 onto a gin engine built the
// way the teacher builds its own: gin.New() plus a custom logger formatter
// that skips high-frequency polling routes, gin.Recovery(), and a
// permissive CORS middleware for the browser client.
func NewServer(st *store.Store, sup *supervisor.Supervisor, assetMgr *assets.Manager, defaultThreads int) *Server {
	handler := NewHandler(st, sup, assetMgr, defaultThreads)

	router := gin.New()
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		if skipLogging(param.Path) {
			return ""
		}
		return fmt.Sprintf("[%s] %s %s %d %s %s \"%s\" %s\n",
			param.TimeStamp.Format("2006/01/02 - 15:04:05"),
			param.ClientIP,
			param.Method,
			param.StatusCode,
			param.Latency,
			param.Path,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware)

	api := router.Group("/api")
	{
		api.POST("/launch", handler.Launch)
		api.GET("/status/:job_id", handler.Status)
		api.GET("/results/:job_id", handler.Results)
		api.GET("/jobs", handler.ListJobs)
		api.POST("/jobs/:job_id/stop", handler.StopJob)
		api.DELETE("/jobs/:job_id", handler.DeleteJob)
		api.GET("/jobs/:job_id/files", handler.ListFiles)
		api.GET("/jobs/:job_id/files/download/*rel_path", handler.DownloadFile)

		api.GET("/databases", handler.ListDatabases)
		api.GET("/databases/:key", handler.GetDatabase)
		api.POST("/databases/:key/update", handler.UpdateDatabase)
		api.GET("/databases/:key/progress", handler.DatabaseProgress)
	}

	return &Server{router: router}
}

// skipLogging silences routes polled frequently by a client (status and
// download-progress endpoints), matching the teacher's rationale for
// excluding its screen-frame endpoint from access logs.
func skipLogging(path string) bool {
	return hasPrefix(path, "/api/status/") || hasSuffix(path, "/progress")
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func corsMiddleware(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Router() *gin.Engine { return s.router }
