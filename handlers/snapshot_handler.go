// handlers/snapshot_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListDates answers GET /api/dates?from=&to= with the stored capture dates.
func (h *Handler) ListDates(c *gin.Context) {
	from, ok := optionalDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := optionalDateQuery(c, "to")
	if !ok {
		return
	}
	if from != nil && to != nil && to.Before(*from) {
		respondWithError(c, http.StatusBadRequest, "to must not be before from")
		return
	}

	dates, err := h.reporter.CaptureDates(c.Request.Context(), from, to)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "failed to list capture dates: "+err.Error())
		return
	}
	respondWithJSON(c, http.StatusOK, dates)
}

// GetSnapshot answers GET /api/snapshots/:date. A date without rows is a 404.
func (h *Handler) GetSnapshot(c *gin.Context) {
	day, ok := dateParam(c, "date")
	if !ok {
		return
	}
	snap, err := h.reporter.Snapshot(c.Request.Context(), day)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "failed to load snapshot: "+err.Error())
		return
	}
	if snap.Count == 0 {
		respondWithError(c, http.StatusNotFound, "no snapshot for "+day.String())
		return
	}
	respondWithJSON(c, http.StatusOK, snap)
}
