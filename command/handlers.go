package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-dirsync/core"
	"github.com/goliatone/go-dirsync/sync"
)

type SyncService interface {
	Run(ctx context.Context) (sync.RunReport, error)
	ValidateMappings(ctx context.Context, collection core.Collection) (core.ValidationResult, error)
}

type RunSyncCommand struct {
	service SyncService
}

func NewRunSyncCommand(service SyncService) *RunSyncCommand {
	return &RunSyncCommand{service: service}
}

func (c *RunSyncCommand) Execute(ctx context.Context, _ RunSyncMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sync service is required")
	}
	report, err := c.service.Run(ctx)
	storeResult(ctx, report)
	return err
}

type ValidateMappingsCommand struct {
	service SyncService
}

func NewValidateMappingsCommand(service SyncService) *ValidateMappingsCommand {
	return &ValidateMappingsCommand{service: service}
}

func (c *ValidateMappingsCommand) Execute(ctx context.Context, msg ValidateMappingsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sync service is required")
	}
	if err := msg.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid validate mappings message")
	}
	result, err := c.service.ValidateMappings(ctx, msg.Collection)
	if err != nil {
		return err
	}
	storeResult(ctx, result)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
