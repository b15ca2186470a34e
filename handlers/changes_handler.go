// handlers/changes_handler.go
package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gewnthar/pricediff/services"
	"github.com/gin-gonic/gin"
)

// GetChanges answers GET /api/changes/:date?sort=name|increase|decrease&format=json|csv.
// A date without events returns an empty list, not 404: "nothing changed" is
// a valid answer.
func (h *Handler) GetChanges(c *gin.Context) {
	day, ok := dateParam(c, "date")
	if !ok {
		return
	}
	order, err := services.ParseSortOrder(c.Query("sort"))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", "json"))
	if format != "json" && format != "csv" {
		respondWithError(c, http.StatusBadRequest, "format must be json or csv")
		return
	}

	resp, err := h.reporter.Changes(c.Request.Context(), day, order)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "failed to fetch change events: "+err.Error())
		return
	}

	if format == "csv" {
		var buf bytes.Buffer
		if err := services.WriteChangesCSV(&buf, resp.Changes); err != nil {
			respondWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.Header("Content-Disposition", `attachment; filename="price-changes-`+day.String()+`.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
		return
	}
	respondWithJSON(c, http.StatusOK, resp)
}
