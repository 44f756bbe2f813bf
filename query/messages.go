package query

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-dirsync/core"
)

const (
	TypeGetSyncRun   = "dirsync.query.run.get"
	TypeListSyncRuns = "dirsync.query.run.list"
)

type GetSyncRunMessage struct {
	RunID string
}

func (GetSyncRunMessage) Type() string { return TypeGetSyncRun }

func (m GetSyncRunMessage) Validate() error {
	if strings.TrimSpace(m.RunID) == "" {
		return fmt.Errorf("query: run id is required")
	}
	return nil
}

type ListSyncRunsMessage struct {
	Filter core.SyncRunFilter
}

func (ListSyncRunsMessage) Type() string { return TypeListSyncRuns }

func (m ListSyncRunsMessage) Validate() error {
	if m.Filter.Limit < 0 {
		return fmt.Errorf("query: limit must be >= 0")
	}
	return nil
}
