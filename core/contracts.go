package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// Pager streams directory entities one page at a time. NextPage returns the
// page's items and whether more pages remain; callers must fully drain a
// page before requesting the next.
type Pager[T any] interface {
	NextPage(ctx context.Context) ([]T, bool, error)
}

// DirectoryClient is the identity-directory collaborator. Implementations
// own pagination, server-side field selection, and filter expressions.
type DirectoryClient interface {
	Groups(filter string, pageSize int) Pager[DirectoryGroup]
	Users(pageSize int) Pager[DirectoryUser]
	UserGroupIDs(ctx context.Context, userID string) ([]string, error)
	ValidateGroupFilter(ctx context.Context, filter string) error
	Ping(ctx context.Context) error
}

type FieldsPage struct {
	Fields     []TargetField
	PageNumber int
	TotalPages int
}

type SaveRecordResult struct {
	RecordID int
	Created  bool
	Warnings []string
}

type ListValueResult struct {
	ID string
}

// TargetClient is the record-management collaborator.
type TargetClient interface {
	GetFieldsPage(ctx context.Context, appID int, pageNumber int) (FieldsPage, error)
	FindRecordByValue(ctx context.Context, appID int, fieldID int, value string) (*TargetRecord, error)
	SaveRecord(ctx context.Context, record TargetRecord) (*SaveRecordResult, error)
	AddListValue(ctx context.Context, listID string, name string) (*ListValueResult, error)
	Ping(ctx context.Context) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

type CollectionStats struct {
	Processed int
	Created   int
	Updated   int
	Skipped   int
	Failed    int
}

type RunWarning struct {
	Collection Collection
	EntityID   string
	Message    string
}

// SyncRun is one persisted reconciliation pass in the run ledger.
type SyncRun struct {
	ID         string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Groups     CollectionStats
	Users      CollectionStats
	Warnings   []RunWarning
	LastError  string
}

type SyncRunFilter struct {
	Status RunStatus
	Limit  int
}

type RunStore interface {
	Create(ctx context.Context, run SyncRun) (SyncRun, error)
	Complete(ctx context.Context, run SyncRun) (SyncRun, error)
	Get(ctx context.Context, id string) (SyncRun, error)
	List(ctx context.Context, filter SyncRunFilter) ([]SyncRun, error)
}
