package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mfgops/ledger/internal/interfaces/http/dto"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping() error
}

// PoolReporter is implemented by databases that can describe their
// connection pool. The health response includes it when available.
type PoolReporter interface {
	PoolStats() (sql.DBStats, error)
}

// HealthHandler answers liveness probes
type HealthHandler struct {
	BaseHandler
	db      Pinger
	version string
}

// NewHealthHandler creates a HealthHandler
func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

type healthResponse struct {
	Status   string    `json:"status"`
	Database string    `json:"database"`
	Version  string    `json:"version,omitempty"`
	Pool     *poolInfo `json:"pool,omitempty"`
	Time     time.Time `json:"time"`
}

type poolInfo struct {
	Open           int   `json:"open"`
	InUse          int   `json:"in_use"`
	Idle           int   `json:"idle"`
	WaitCount      int64 `json:"wait_count"`
	WaitDurationMs int64 `json:"wait_duration_ms"`
}

func (h *HealthHandler) pool() *poolInfo {
	pr, ok := h.db.(PoolReporter)
	if !ok {
		return nil
	}
	st, err := pr.PoolStats()
	if err != nil {
		return nil
	}
	return &poolInfo{
		Open:           st.OpenConnections,
		InUse:          st.InUse,
		Idle:           st.Idle,
		WaitCount:      st.WaitCount,
		WaitDurationMs: st.WaitDuration.Milliseconds(),
	}
}

// Check godoc
// GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	resp := healthResponse{Status: "healthy", Database: "up", Version: h.version, Time: time.Now().UTC()}
	if err := h.db.Ping(); err != nil {
		resp.Status = "unhealthy"
		resp.Database = "down"
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp, Error: &dto.ErrorInfo{
			Code:      dto.ErrCodeServiceUnavailable,
			Message:   "database unreachable",
			RequestID: getRequestID(c),
		}})
		return
	}
	resp.Pool = h.pool()
	h.Success(c, resp)
}
