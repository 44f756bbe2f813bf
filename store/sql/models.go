package sqlstore

import (
	"time"

	"github.com/goliatone/go-dirsync/core"
	"github.com/uptrace/bun"
)

type syncRunRecord struct {
	bun.BaseModel `bun:"table:sync_runs,alias:sr"`

	ID              string              `bun:"id,pk"`
	Status          string              `bun:"status,notnull"`
	StartedAt       time.Time           `bun:"started_at,nullzero,notnull"`
	FinishedAt      *time.Time          `bun:"finished_at,nullzero"`
	GroupsProcessed int                 `bun:"groups_processed,notnull"`
	GroupsCreated   int                 `bun:"groups_created,notnull"`
	GroupsUpdated   int                 `bun:"groups_updated,notnull"`
	GroupsSkipped   int                 `bun:"groups_skipped,notnull"`
	GroupsFailed    int                 `bun:"groups_failed,notnull"`
	UsersProcessed  int                 `bun:"users_processed,notnull"`
	UsersCreated    int                 `bun:"users_created,notnull"`
	UsersUpdated    int                 `bun:"users_updated,notnull"`
	UsersSkipped    int                 `bun:"users_skipped,notnull"`
	UsersFailed     int                 `bun:"users_failed,notnull"`
	Warnings        []runWarningPayload `bun:"warnings,type:jsonb,notnull"`
	LastError       string              `bun:"last_error"`
	CreatedAt       time.Time           `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time           `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type runWarningPayload struct {
	Collection string `json:"collection"`
	EntityID   string `json:"entity_id,omitempty"`
	Message    string `json:"message"`
}

func newSyncRunRecord(run core.SyncRun) *syncRunRecord {
	record := &syncRunRecord{
		ID:        run.ID,
		Status:    string(run.Status),
		StartedAt: run.StartedAt.UTC(),
		LastError: run.LastError,
		Warnings:  warningsToPayload(run.Warnings),
	}
	if run.FinishedAt != nil {
		finished := run.FinishedAt.UTC()
		record.FinishedAt = &finished
	}
	record.applyStats(run.Groups, run.Users)
	return record
}

func (r *syncRunRecord) applyStats(groups core.CollectionStats, users core.CollectionStats) {
	r.GroupsProcessed = groups.Processed
	r.GroupsCreated = groups.Created
	r.GroupsUpdated = groups.Updated
	r.GroupsSkipped = groups.Skipped
	r.GroupsFailed = groups.Failed
	r.UsersProcessed = users.Processed
	r.UsersCreated = users.Created
	r.UsersUpdated = users.Updated
	r.UsersSkipped = users.Skipped
	r.UsersFailed = users.Failed
}

func (r *syncRunRecord) toDomain() core.SyncRun {
	run := core.SyncRun{
		ID:        r.ID,
		Status:    core.RunStatus(r.Status),
		StartedAt: r.StartedAt,
		LastError: r.LastError,
		Groups: core.CollectionStats{
			Processed: r.GroupsProcessed,
			Created:   r.GroupsCreated,
			Updated:   r.GroupsUpdated,
			Skipped:   r.GroupsSkipped,
			Failed:    r.GroupsFailed,
		},
		Users: core.CollectionStats{
			Processed: r.UsersProcessed,
			Created:   r.UsersCreated,
			Updated:   r.UsersUpdated,
			Skipped:   r.UsersSkipped,
			Failed:    r.UsersFailed,
		},
		Warnings: warningsFromPayload(r.Warnings),
	}
	if r.FinishedAt != nil {
		finished := *r.FinishedAt
		run.FinishedAt = &finished
	}
	return run
}

func warningsToPayload(warnings []core.RunWarning) []runWarningPayload {
	out := make([]runWarningPayload, 0, len(warnings))
	for _, warning := range warnings {
		out = append(out, runWarningPayload{
			Collection: string(warning.Collection),
			EntityID:   warning.EntityID,
			Message:    warning.Message,
		})
	}
	return out
}

func warningsFromPayload(payload []runWarningPayload) []core.RunWarning {
	if len(payload) == 0 {
		return nil
	}
	out := make([]core.RunWarning, 0, len(payload))
	for _, warning := range payload {
		out = append(out, core.RunWarning{
			Collection: core.Collection(warning.Collection),
			EntityID:   warning.EntityID,
			Message:    warning.Message,
		})
	}
	return out
}
