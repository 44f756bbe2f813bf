package dirsync

import (
	"fmt"

	dirsynccommand "github.com/goliatone/go-dirsync/command"
	dirsyncquery "github.com/goliatone/go-dirsync/query"
)

type Commands struct {
	RunSync          *dirsynccommand.RunSyncCommand
	ValidateMappings *dirsynccommand.ValidateMappingsCommand
}

type Queries struct {
	GetSyncRun   *dirsyncquery.GetSyncRunQuery
	ListSyncRuns *dirsyncquery.ListSyncRunsQuery
}

// Facade bundles the command and query handlers over one sync service and
// one run ledger reader.
type Facade struct {
	service  dirsynccommand.SyncService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	runReader dirsyncquery.RunReader
}

func WithRunReader(reader dirsyncquery.RunReader) FacadeOption {
	return func(options *facadeOptions) {
		options.runReader = reader
	}
}

func NewFacade(service dirsynccommand.SyncService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("dirsync: sync service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.runReader
	if reader == nil {
		if candidate, ok := service.(dirsyncquery.RunReader); ok {
			reader = candidate
		}
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		RunSync:          dirsynccommand.NewRunSyncCommand(service),
		ValidateMappings: dirsynccommand.NewValidateMappingsCommand(service),
	}
	facade.queries = Queries{
		GetSyncRun:   dirsyncquery.NewGetSyncRunQuery(reader),
		ListSyncRuns: dirsyncquery.NewListSyncRunsQuery(reader),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() dirsynccommand.SyncService {
	if f == nil {
		return nil
	}
	return f.service
}
