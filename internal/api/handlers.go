package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourorg/motor-stats/internal/datasets"
)

// Periods reports the latest month stored in a table.
type Periods interface {
	LatestMonth(ctx context.Context, table string) (string, error)
}

// Pinger checks the database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	periods Periods
	db      Pinger
}

func NewHandler(periods Periods, db Pinger) *Handler {
	return &Handler{periods: periods, db: db}
}

type DatasetStatus struct {
	Name         string `json:"name"`
	Table        string `json:"table"`
	LatestPeriod string `json:"latest_period,omitempty"`
}

// GetDatasets lists the known datasets and the latest period each holds.
func (h *Handler) GetDatasets(c *gin.Context) {
	ctx := c.Request.Context()
	var out []DatasetStatus
	for _, name := range datasets.Names() {
		def, _ := datasets.Lookup(name)
		month, err := h.periods.LatestMonth(ctx, def.Table.Name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out = append(out, DatasetStatus{Name: name, Table: def.Table.Name, LatestPeriod: month})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Health(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
