// handlers/handler.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gewnthar/pricediff/models"
	"github.com/gewnthar/pricediff/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Pinger reports database health; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves the read API over stored snapshots, change events and runs.
type Handler struct {
	reporter *services.Reporter
	db       Pinger
}

func NewHandler(reporter *services.Reporter, db Pinger) *Handler {
	return &Handler{reporter: reporter, db: db}
}

// NewRouter builds the gin engine with every API route registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/dates", h.ListDates)
		api.GET("/snapshots/:date", h.GetSnapshot)
		api.GET("/changes/:date", h.GetChanges)
		api.GET("/runs", h.ListRuns)
	}
	return r
}

func respondWithJSON(c *gin.Context, code int, payload any) {
	c.JSON(code, payload)
}

func respondWithError(c *gin.Context, code int, message string) {
	if code >= http.StatusInternalServerError {
		log.Error().Int("status", code).Str("path", c.FullPath()).Msg("API Error: " + message)
	} else {
		log.Debug().Int("status", code).Str("path", c.FullPath()).Msg("API Error: " + message)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// dateParam reads a YYYY-MM-DD path parameter, answering 400 when it is invalid.
func dateParam(c *gin.Context, name string) (models.Date, bool) {
	d, err := models.ParseDate(c.Param(name))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, err.Error())
		return models.Date{}, false
	}
	return d, true
}

// optionalDateQuery reads an optional YYYY-MM-DD query parameter.
func optionalDateQuery(c *gin.Context, name string) (*models.Date, bool) {
	v := c.Query(name)
	if v == "" {
		return nil, true
	}
	d, err := models.ParseDate(v)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid "+name+": "+err.Error())
		return nil, false
	}
	return &d, true
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("HTTP request")
	}
}
