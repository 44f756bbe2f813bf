// Package dirsync reconciles identity-directory groups and users into a
// record-management system: field mapping with validation, value coercion
// against a live field catalog, choice vocabulary growth, and page-by-page
// record creation and update with per-entity fault isolation.
package dirsync

import (
	"context"

	"github.com/goliatone/go-dirsync/core"
	dirsyncsync "github.com/goliatone/go-dirsync/sync"
)

type Config = core.Config

type CollectionConfig = core.CollectionConfig

type StatusConfig = core.StatusConfig

type GroupFilter = core.GroupFilter

type Collection = core.Collection

type DirectoryClient = core.DirectoryClient
type TargetClient = core.TargetClient
type RunStore = core.RunStore
type MetricsRecorder = core.MetricsRecorder

type DirectoryGroup = core.DirectoryGroup
type DirectoryUser = core.DirectoryUser
type TargetField = core.TargetField
type TargetRecord = core.TargetRecord
type FieldValue = core.FieldValue
type FieldMappings = core.FieldMappings
type SyncRun = core.SyncRun
type RunWarning = core.RunWarning

type Processor = dirsyncsync.Processor
type ProcessorDependencies = dirsyncsync.ProcessorDependencies
type RunReport = dirsyncsync.RunReport

const (
	CollectionGroups = core.CollectionGroups
	CollectionUsers  = core.CollectionUsers
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewProcessor(cfg Config, deps ProcessorDependencies) (*Processor, error) {
	return dirsyncsync.NewProcessor(cfg, deps)
}

// NewProcessorFromProvider builds a processor from layered configuration:
// package defaults, the configured provider (a file source by default), and
// the runtime overrides, in ascending precedence.
func NewProcessorFromProvider(ctx context.Context, runtime Config, deps ProcessorDependencies) (*Processor, error) {
	return dirsyncsync.NewProcessorFromProvider(ctx, runtime, deps)
}

// ExitCode maps a run error to the process exit code contract.
func ExitCode(err error) int {
	return core.ExitCode(err)
}
