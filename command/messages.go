package command

import (
	"fmt"

	"github.com/goliatone/go-dirsync/core"
)

const (
	TypeRunSync          = "dirsync.command.run"
	TypeValidateMappings = "dirsync.command.mappings.validate"
)

type RunSyncMessage struct{}

func (RunSyncMessage) Type() string { return TypeRunSync }

func (RunSyncMessage) Validate() error { return nil }

type ValidateMappingsMessage struct {
	Collection core.Collection
}

func (ValidateMappingsMessage) Type() string { return TypeValidateMappings }

func (m ValidateMappingsMessage) Validate() error {
	if !m.Collection.Valid() {
		return fmt.Errorf("command: unknown collection %q", m.Collection)
	}
	return nil
}
