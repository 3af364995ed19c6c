package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/config"
	"github.com/stemsi/eduassess-backend/internal/response"
	"github.com/stemsi/eduassess-backend/internal/service"
)

const statusTimeout = 2 * time.Second

// SystemHandler reports liveness and runtime status. rdb may be nil.
type SystemHandler struct {
	rdb       *redis.Client
	delivery  *service.DeliveryService
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(rdb *redis.Client, delivery *service.DeliveryService, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:       rdb,
		delivery:  delivery,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type systemStatus struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`

	ActiveAttempts int    `json:"active_attempts"`
	QueueDepth     int64  `json:"queue_submissions"`
	Redis          string `json:"redis"`

	// Go Application
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	st := h.collect(c.Request.Context())
	status := http.StatusOK
	if st.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, st)
}

// Status godoc
// GET /api/v1/teacher/system
func (h *SystemHandler) Status(c *gin.Context) {
	response.Success(c, http.StatusOK, h.collect(c.Request.Context()))
}

func (h *SystemHandler) collect(ctx context.Context) systemStatus {
	st := systemStatus{
		Status:         "ok",
		Uptime:         formatDuration(time.Since(h.startTime)),
		ActiveAttempts: h.delivery.ActiveCount(),
		Redis:          "disabled",
		GoVersion:      runtime.Version(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	st.Goroutines = runtime.NumGoroutine()
	st.HeapAlloc = ms.HeapAlloc
	st.NumGC = ms.NumGC

	if h.rdb != nil {
		ctx, cancel := context.WithTimeout(ctx, statusTimeout)
		defer cancel()

		pipe := h.rdb.Pipeline()
		ping := pipe.Ping(ctx)
		depth := pipe.LLen(ctx, config.WorkerKey.PersistSubmissionsQueue)
		if _, err := pipe.Exec(ctx); err != nil || ping.Err() != nil {
			h.log.Warn().Err(err).Msg("Redis health check failed")
			st.Status = "degraded"
			st.Redis = "unreachable"
		} else {
			st.Redis = "ok"
			st.QueueDepth, _ = depth.Result()
		}
	}
	return st
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
