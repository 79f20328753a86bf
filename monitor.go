package grantkit

import (
	"sync"
	"time"
)

// TransactionMetrics provides transaction performance and failure statistics
// for a store.
type TransactionMetrics struct {
	TotalTransactions      int64         `json:"total_transactions"`
	SuccessfulTransactions int64         `json:"successful_transactions"`
	FailedTransactions     int64         `json:"failed_transactions"`
	AverageDuration        time.Duration `json:"average_duration"`
	MaxDuration            time.Duration `json:"max_duration"`
	MinDuration            time.Duration `json:"min_duration"`
	LastReset              time.Time     `json:"last_reset"`
}

// transactionMonitor holds the internal transaction monitoring state.
type transactionMonitor struct {
	mu            sync.Mutex
	totalCount    int64
	successCount  int64
	failureCount  int64
	totalDuration time.Duration
	maxDuration   time.Duration
	minDuration   time.Duration
	lastReset     time.Time
}

// newTransactionMonitor creates a new transaction monitor.
func newTransactionMonitor() *transactionMonitor {
	return &transactionMonitor{
		minDuration: time.Hour, // initialize to a large value
		lastReset:   time.Now(),
	}
}

// recordTransaction records a completed atomic section with its duration and
// success status.
func (tm *transactionMonitor) recordTransaction(duration time.Duration, success bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.totalCount++
	tm.totalDuration += duration
	if success {
		tm.successCount++
	} else {
		tm.failureCount++
	}
	if duration > tm.maxDuration {
		tm.maxDuration = duration
	}
	if duration < tm.minDuration {
		tm.minDuration = duration
	}
}

// getMetrics returns the current transaction metrics.
func (tm *transactionMonitor) getMetrics() TransactionMetrics {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	var avg time.Duration
	if tm.totalCount > 0 {
		avg = tm.totalDuration / time.Duration(tm.totalCount)
	}
	minDur := tm.minDuration
	if tm.totalCount == 0 {
		minDur = 0
	}
	return TransactionMetrics{
		TotalTransactions:      tm.totalCount,
		SuccessfulTransactions: tm.successCount,
		FailedTransactions:     tm.failureCount,
		AverageDuration:        avg,
		MaxDuration:            tm.maxDuration,
		MinDuration:            minDur,
		LastReset:              tm.lastReset,
	}
}

// reset clears all counters.
func (tm *transactionMonitor) reset() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.totalCount = 0
	tm.successCount = 0
	tm.failureCount = 0
	tm.totalDuration = 0
	tm.maxDuration = 0
	tm.minDuration = time.Hour
	tm.lastReset = time.Now()
}

// isHealthy reports whether the recent failure ratio is acceptable: below
// half of all recorded transactions, or fewer than ten samples.
func (tm *transactionMonitor) isHealthy() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.totalCount < 10 {
		return true
	}
	return tm.failureCount*2 < tm.totalCount
}
