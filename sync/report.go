package sync

import (
	"sync"
	"time"

	"github.com/goliatone/go-dirsync/core"
)

type PhaseTiming struct {
	Phase    string
	Duration time.Duration
}

// RunReport is the observable outcome of one reconciliation pass.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Groups     core.CollectionStats
	Users      core.CollectionStats
	Warnings   []core.RunWarning
	Phases     []PhaseTiming
}

func (r RunReport) ToSyncRun(status core.RunStatus, lastError string) core.SyncRun {
	finished := r.FinishedAt
	return core.SyncRun{
		ID:         r.RunID,
		Status:     status,
		StartedAt:  r.StartedAt,
		FinishedAt: &finished,
		Groups:     r.Groups,
		Users:      r.Users,
		Warnings:   append([]core.RunWarning(nil), r.Warnings...),
		LastError:  lastError,
	}
}

type entityOutcome int

const (
	outcomeCreated entityOutcome = iota
	outcomeUpdated
	outcomeSkipped
	outcomeFailed
)

// reportCollector accumulates per-entity outcomes. Entity processing within
// a page is parallel, so counters are guarded.
type reportCollector struct {
	mu     sync.Mutex
	report RunReport
}

func newReportCollector(runID string, startedAt time.Time) *reportCollector {
	return &reportCollector{report: RunReport{RunID: runID, StartedAt: startedAt}}
}

func (c *reportCollector) record(collection core.Collection, outcome entityOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := &c.report.Groups
	if collection == core.CollectionUsers {
		stats = &c.report.Users
	}
	stats.Processed++
	switch outcome {
	case outcomeCreated:
		stats.Created++
	case outcomeUpdated:
		stats.Updated++
	case outcomeSkipped:
		stats.Skipped++
	case outcomeFailed:
		stats.Failed++
	}
}

func (c *reportCollector) warn(collection core.Collection, entityID string, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Warnings = append(c.report.Warnings, core.RunWarning{
		Collection: collection,
		EntityID:   entityID,
		Message:    message,
	})
}

func (c *reportCollector) phase(name string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Phases = append(c.report.Phases, PhaseTiming{Phase: name, Duration: duration})
}

func (c *reportCollector) snapshot(finishedAt time.Time) RunReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	report := c.report
	report.FinishedAt = finishedAt
	report.Warnings = append([]core.RunWarning(nil), c.report.Warnings...)
	report.Phases = append([]PhaseTiming(nil), c.report.Phases...)
	return report
}
