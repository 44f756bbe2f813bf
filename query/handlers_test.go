package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-dirsync/core"
)

type stubRunReader struct {
	getFn  func(ctx context.Context, id string) (core.SyncRun, error)
	listFn func(ctx context.Context, filter core.SyncRunFilter) ([]core.SyncRun, error)
}

func (s stubRunReader) Get(ctx context.Context, id string) (core.SyncRun, error) {
	if s.getFn == nil {
		return core.SyncRun{}, fmt.Errorf("get not configured")
	}
	return s.getFn(ctx, id)
}

func (s stubRunReader) List(ctx context.Context, filter core.SyncRunFilter) ([]core.SyncRun, error) {
	if s.listFn == nil {
		return nil, fmt.Errorf("list not configured")
	}
	return s.listFn(ctx, filter)
}

var _ RunReader = stubRunReader{}

func TestGetSyncRunQuery_DelegatesToReader(t *testing.T) {
	expected := core.SyncRun{ID: "run_1", Status: core.RunStatusSucceeded}
	reader := stubRunReader{
		getFn: func(_ context.Context, id string) (core.SyncRun, error) {
			if id != "run_1" {
				t.Fatalf("unexpected run id %q", id)
			}
			return expected, nil
		},
	}

	run, err := NewGetSyncRunQuery(reader).Query(context.Background(), GetSyncRunMessage{RunID: "run_1"})
	if err != nil {
		t.Fatalf("query get run: %v", err)
	}
	if run.ID != expected.ID || run.Status != expected.Status {
		t.Fatalf("unexpected run: %#v", run)
	}
}

func TestGetSyncRunQuery_RejectsBlankID(t *testing.T) {
	reader := stubRunReader{
		getFn: func(context.Context, string) (core.SyncRun, error) {
			t.Fatalf("reader must not run for invalid message")
			return core.SyncRun{}, nil
		},
	}

	if _, err := NewGetSyncRunQuery(reader).Query(context.Background(), GetSyncRunMessage{RunID: "  "}); err == nil {
		t.Fatalf("expected validation error for blank run id")
	}
}

func TestGetSyncRunQuery_RequiresReader(t *testing.T) {
	query := &GetSyncRunQuery{}
	if _, err := query.Query(context.Background(), GetSyncRunMessage{RunID: "run_1"}); err == nil {
		t.Fatalf("expected dependency error for missing reader")
	}
}

func TestListSyncRunsQuery_PassesFilter(t *testing.T) {
	expected := []core.SyncRun{{ID: "run_2", Status: core.RunStatusFailed}}
	reader := stubRunReader{
		listFn: func(_ context.Context, filter core.SyncRunFilter) ([]core.SyncRun, error) {
			if filter.Status != core.RunStatusFailed || filter.Limit != 5 {
				t.Fatalf("unexpected filter %#v", filter)
			}
			return expected, nil
		},
	}

	runs, err := NewListSyncRunsQuery(reader).Query(context.Background(), ListSyncRunsMessage{
		Filter: core.SyncRunFilter{Status: core.RunStatusFailed, Limit: 5},
	})
	if err != nil {
		t.Fatalf("query list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run_2" {
		t.Fatalf("unexpected runs: %#v", runs)
	}
}

func TestListSyncRunsQuery_RejectsNegativeLimit(t *testing.T) {
	reader := stubRunReader{
		listFn: func(context.Context, core.SyncRunFilter) ([]core.SyncRun, error) {
			t.Fatalf("reader must not run for invalid message")
			return nil, nil
		},
	}

	if _, err := NewListSyncRunsQuery(reader).Query(context.Background(), ListSyncRunsMessage{
		Filter: core.SyncRunFilter{Limit: -1},
	}); err == nil {
		t.Fatalf("expected validation error for negative limit")
	}
}
