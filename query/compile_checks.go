package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-dirsync/core"
)

var (
	_ gocmd.Querier[GetSyncRunMessage, core.SyncRun]     = (*GetSyncRunQuery)(nil)
	_ gocmd.Querier[ListSyncRunsMessage, []core.SyncRun] = (*ListSyncRunsQuery)(nil)
)
