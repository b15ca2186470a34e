// handlers/admin_handler.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Health answers GET /api/health with the database status.
func (h *Handler) Health(c *gin.Context) {
	if h.db != nil {
		if err := h.db.PingContext(c.Request.Context()); err != nil {
			respondWithJSON(c, http.StatusServiceUnavailable, gin.H{"status": "error", "message": "database connection error"})
			return
		}
	}
	respondWithJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// ListRuns answers GET /api/runs?limit=N with the latest ingest runs.
func (h *Handler) ListRuns(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			respondWithError(c, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	runs, err := h.reporter.Runs(c.Request.Context(), limit)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "failed to fetch ingest runs: "+err.Error())
		return
	}
	respondWithJSON(c, http.StatusOK, runs)
}
