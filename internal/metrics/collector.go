package metrics

import (
	"context"
	"runtime"
	"time"

	"agent-builder/internal/logging"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DirectoryCollector periodically samples row counts and pool stats from the database
type DirectoryCollector struct {
	db       *gorm.DB
	metrics  *Metrics
	interval time.Duration
	stopCh   chan struct{}
}

// NewDirectoryCollector creates a new collector
func NewDirectoryCollector(db *gorm.DB, interval time.Duration) *DirectoryCollector {
	return &DirectoryCollector{
		db:       db,
		metrics:  Get(),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins periodic collection until Stop or ctx is done
func (dc *DirectoryCollector) Start(ctx context.Context) {
	go func() {
		dc.collectAll()

		ticker := time.NewTicker(dc.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				dc.collectAll()
			case <-dc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the collector
func (dc *DirectoryCollector) Stop() {
	close(dc.stopCh)
}

func (dc *DirectoryCollector) collectAll() {
	dc.metrics.GoroutineNum.Set(float64(runtime.NumGoroutine()))

	if dc.db == nil {
		return
	}

	var agents int64
	if err := dc.db.Table("agents").Count(&agents).Error; err != nil {
		logging.L().Warn("failed to count agents", zap.Error(err))
	} else {
		dc.metrics.AgentsGauge.Set(float64(agents))
	}

	var chats int64
	if err := dc.db.Table("collaborative_chats").Count(&chats).Error; err != nil {
		logging.L().Warn("failed to count collaborative chats", zap.Error(err))
	} else {
		dc.metrics.ChatsGauge.Set(float64(chats))
	}

	sqlDB, err := dc.db.DB()
	if err != nil {
		logging.L().Warn("failed to get database stats", zap.Error(err))
		return
	}
	stats := sqlDB.Stats()
	dc.metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	dc.metrics.DBConnectionsIdle.Set(float64(stats.Idle))
}

// AIMetricsRecorder records gateway metrics
type AIMetricsRecorder struct {
	metrics *Metrics
}

// NewAIMetricsRecorder creates a new AI metrics recorder
func NewAIMetricsRecorder() *AIMetricsRecorder {
	return &AIMetricsRecorder{
		metrics: Get(),
	}
}

// RecordRequest records a completed request
func (r *AIMetricsRecorder) RecordRequest(provider, model string, success bool, duration time.Duration, inputTokens, outputTokens int) {
	status := "success"
	if !success {
		status = "error"
	}

	r.metrics.RecordAIRequest(provider, model, status, duration, inputTokens, outputTokens)
}

// RecordFallback records a request served by another provider's backend
func (r *AIMetricsRecorder) RecordFallback(fromProvider, toProvider string) {
	r.metrics.RecordAIFallback(fromProvider, toProvider)
}

// StartRequest increments the in-flight gauge
func (r *AIMetricsRecorder) StartRequest(provider string) {
	r.metrics.AIRequestsInFlight.WithLabelValues(provider).Inc()
}

// EndRequest decrements the in-flight gauge
func (r *AIMetricsRecorder) EndRequest(provider string) {
	r.metrics.AIRequestsInFlight.WithLabelValues(provider).Dec()
}
