package service

import (
	"sync"
	"time"
)

// MetricsCollector tracks performance metrics for the ledger operations.
type MetricsCollector struct {
	mu sync.RWMutex

	voteStartTime time.Time
	voteEndTime   time.Time
	voteCount     int
	voteTotalTime time.Duration

	adminStartTime time.Time
	adminEndTime   time.Time
	adminCount     int
	adminTotalTime time.Duration

	tallyReadStartTime time.Time
	tallyReadEndTime   time.Time
	tallyReadCount     int
	tallyReadTotalTime time.Duration
}

// OperationMetrics contains timing information for an operation class.
type OperationMetrics struct {
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Count          int       `json:"count"`
	ProcessingTime int64     `json:"processing_time_ms"`
}

// MetricsResponse provides the metrics for all operation classes.
type MetricsResponse struct {
	Voting     OperationMetrics `json:"voting"`
	Admin      OperationMetrics `json:"admin"`
	TallyReads OperationMetrics `json:"tally_reads"`
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordVoteStart marks the start of a vote submission.
func (mc *MetricsCollector) RecordVoteStart() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.voteCount == 0 {
		mc.voteStartTime = time.Now()
	}
	mc.voteCount++
}

// RecordVoteEnd marks the end of a vote submission.
func (mc *MetricsCollector) RecordVoteEnd(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.voteEndTime = time.Now()
	mc.voteTotalTime += duration
}

// RecordAdminOp records one administrative operation.
func (mc *MetricsCollector) RecordAdminOp(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.adminCount == 0 {
		mc.adminStartTime = time.Now()
	}
	mc.adminCount++
	mc.adminEndTime = time.Now()
	mc.adminTotalTime += duration
}

// RecordTallyRead records one gated tally read.
func (mc *MetricsCollector) RecordTallyRead(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.tallyReadCount == 0 {
		mc.tallyReadStartTime = time.Now()
	}
	mc.tallyReadCount++
	mc.tallyReadEndTime = time.Now()
	mc.tallyReadTotalTime += duration
}

// Snapshot returns the collected metrics.
func (mc *MetricsCollector) Snapshot() MetricsResponse {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return MetricsResponse{
		Voting: OperationMetrics{
			StartTime:      mc.voteStartTime,
			EndTime:        mc.voteEndTime,
			Count:          mc.voteCount,
			ProcessingTime: mc.voteTotalTime.Milliseconds(),
		},
		Admin: OperationMetrics{
			StartTime:      mc.adminStartTime,
			EndTime:        mc.adminEndTime,
			Count:          mc.adminCount,
			ProcessingTime: mc.adminTotalTime.Milliseconds(),
		},
		TallyReads: OperationMetrics{
			StartTime:      mc.tallyReadStartTime,
			EndTime:        mc.tallyReadEndTime,
			Count:          mc.tallyReadCount,
			ProcessingTime: mc.tallyReadTotalTime.Milliseconds(),
		},
	}
}
