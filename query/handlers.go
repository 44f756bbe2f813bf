package query

import (
	"context"

	"github.com/goliatone/go-dirsync/core"
)

type RunReader interface {
	Get(ctx context.Context, id string) (core.SyncRun, error)
	List(ctx context.Context, filter core.SyncRunFilter) ([]core.SyncRun, error)
}

type GetSyncRunQuery struct {
	reader RunReader
}

func NewGetSyncRunQuery(reader RunReader) *GetSyncRunQuery {
	return &GetSyncRunQuery{reader: reader}
}

func (q *GetSyncRunQuery) Query(ctx context.Context, msg GetSyncRunMessage) (core.SyncRun, error) {
	if q == nil || q.reader == nil {
		return core.SyncRun{}, queryDependencyError("query: run reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.SyncRun{}, queryWrapValidation(err, "query: invalid get run message")
	}
	return q.reader.Get(ctx, msg.RunID)
}

type ListSyncRunsQuery struct {
	reader RunReader
}

func NewListSyncRunsQuery(reader RunReader) *ListSyncRunsQuery {
	return &ListSyncRunsQuery{reader: reader}
}

func (q *ListSyncRunsQuery) Query(ctx context.Context, msg ListSyncRunsMessage) ([]core.SyncRun, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: run reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, queryWrapValidation(err, "query: invalid list runs message")
	}
	return q.reader.List(ctx, msg.Filter)
}
