package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-dirsync/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RunStore persists the reconciliation run ledger.
type RunStore struct {
	db   *bun.DB
	repo repository.Repository[*syncRunRecord]
}

func NewRunStore(db *bun.DB) (*RunStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*syncRunRecord](db, runHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid run repository wiring: %w", err)
		}
	}
	return &RunStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *RunStore) Create(ctx context.Context, run core.SyncRun) (core.SyncRun, error) {
	if s == nil || s.db == nil {
		return core.SyncRun{}, fmt.Errorf("sqlstore: run store is not configured")
	}

	run.ID = strings.TrimSpace(run.ID)
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = core.RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	record := newSyncRunRecord(run)
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.SyncRun{}, fmt.Errorf("sqlstore: insert sync run: %w", err)
	}
	return record.toDomain(), nil
}

// Complete finalizes an existing run with its stats, warnings, and terminal
// status. The run must have been created first.
func (s *RunStore) Complete(ctx context.Context, run core.SyncRun) (core.SyncRun, error) {
	if s == nil || s.db == nil {
		return core.SyncRun{}, fmt.Errorf("sqlstore: run store is not configured")
	}
	run.ID = strings.TrimSpace(run.ID)
	if run.ID == "" {
		return core.SyncRun{}, fmt.Errorf("sqlstore: run id is required")
	}

	var out core.SyncRun
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &syncRunRecord{}
		err := tx.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", run.ID).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("sqlstore: sync run %q not found", run.ID)
			}
			return err
		}

		record.Status = string(run.Status)
		record.LastError = run.LastError
		record.Warnings = warningsToPayload(run.Warnings)
		record.applyStats(run.Groups, run.Users)
		record.UpdatedAt = time.Now().UTC()
		if run.FinishedAt != nil {
			finished := run.FinishedAt.UTC()
			record.FinishedAt = &finished
		}

		if _, updateErr := tx.NewUpdate().Model(record).Where("id = ?", record.ID).Exec(ctx); updateErr != nil {
			return updateErr
		}
		out = record.toDomain()
		return nil
	})
	if err != nil {
		return core.SyncRun{}, err
	}
	return out, nil
}

func (s *RunStore) Get(ctx context.Context, id string) (core.SyncRun, error) {
	if s == nil || s.db == nil {
		return core.SyncRun{}, fmt.Errorf("sqlstore: run store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.SyncRun{}, fmt.Errorf("sqlstore: run id is required")
	}

	record := &syncRunRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.SyncRun{}, fmt.Errorf("sqlstore: sync run %q not found", id)
		}
		return core.SyncRun{}, err
	}
	return record.toDomain(), nil
}

func (s *RunStore) List(ctx context.Context, filter core.SyncRunFilter) ([]core.SyncRun, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: run store is not configured")
	}

	var records []*syncRunRecord
	query := s.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.started_at DESC")
	if filter.Status != "" {
		query = query.Where("?TableAlias.status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	runs := make([]core.SyncRun, 0, len(records))
	for _, record := range records {
		runs = append(runs, record.toDomain())
	}
	return runs, nil
}
