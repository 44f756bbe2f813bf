package core

import (
	"context"
	"fmt"
	"strconv"

	glog "github.com/goliatone/go-logger/glog"
)

type ListValueRequest struct {
	FieldID int
	ListID  string
	Name    string
}

// VocabularySynchronizer grows choice-field vocabularies ahead of record
// building: any mapped value not yet present in a field's allowed set is
// added to the target system's underlying list, and the catalog entry is
// refreshed once the scan completes. Add failures degrade to warnings; the
// batch never aborts.
type VocabularySynchronizer struct {
	catalog *FieldCatalog
	client  TargetClient
	logger  Logger

	// pending tracks names submitted this pass so repeated values across
	// pages are not re-added before the catalog refresh lands.
	pending map[int]map[string]struct{}
}

func NewVocabularySynchronizer(catalog *FieldCatalog, client TargetClient, logger Logger) *VocabularySynchronizer {
	return &VocabularySynchronizer{
		catalog: catalog,
		client:  client,
		logger:  glog.Ensure(logger),
		pending: map[int]map[string]struct{}{},
	}
}

// SyncListValues scans one batch of entities for choice values missing from
// the collection's vocabulary and submits them. A nil entity, a nil mapped
// value, or a property that does not resolve on the entity kind is skipped
// without error.
func (s *VocabularySynchronizer) SyncListValues(
	ctx context.Context,
	collection Collection,
	mappings FieldMappings,
	entities []DirectoryEntity,
) error {
	if s == nil || s.catalog == nil {
		return fmt.Errorf("core: vocabulary synchronizer is not configured")
	}
	registry := RegistryForCollection(collection)
	if registry == nil {
		return fmt.Errorf("core: unknown collection %q", collection)
	}

	for _, field := range s.catalog.ChoiceFields(collection) {
		property, mapped := mappings.PropertyFor(field.ID)
		if !mapped {
			continue
		}
		accessor, ok := registry.Resolve(property)
		if !ok {
			continue
		}
		for _, entity := range entities {
			if entity == nil {
				continue
			}
			s.syncEntityValue(ctx, field, accessor, entity)
		}
	}
	return nil
}

func (s *VocabularySynchronizer) syncEntityValue(ctx context.Context, field TargetField, accessor Accessor, entity DirectoryEntity) {
	raw := accessor.Get(entity)
	switch typed := raw.(type) {
	case nil:
		return
	case string:
		s.addIfMissing(ctx, field, typed)
	case bool:
		s.addIfMissing(ctx, field, strconv.FormatBool(typed))
	case []string:
		if field.Type == FieldTypeChoiceSingle {
			return
		}
		for _, value := range typed {
			s.addIfMissing(ctx, field, value)
		}
	}
}

func (s *VocabularySynchronizer) addIfMissing(ctx context.Context, field TargetField, candidate string) {
	request, ok := s.TryGetNewListValue(&field, candidate)
	if !ok {
		return
	}
	if s.markPending(field.ID, candidate) {
		return
	}
	result, err := s.client.AddListValue(ctx, request.ListID, request.Name)
	if err != nil || result == nil {
		s.logger.Warn(
			"list value add returned no result",
			"field_id", field.ID,
			"value", candidate,
		)
		return
	}
	s.logger.Debug("added list value", "field_id", field.ID, "value", candidate)
}

// TryGetNewListValue reports whether candidate must be added to the field's
// vocabulary. False when the field is nil, the candidate is empty, or the
// candidate already exists among the allowed values.
func (s *VocabularySynchronizer) TryGetNewListValue(field *TargetField, candidate string) (ListValueRequest, bool) {
	if field == nil || candidate == "" {
		return ListValueRequest{}, false
	}
	if field.HasValueName(candidate) {
		return ListValueRequest{}, false
	}
	return ListValueRequest{
		FieldID: field.ID,
		ListID:  field.ListID,
		Name:    candidate,
	}, true
}

// Refresh reloads the collection's catalog entry so records built afterwards
// can resolve values added during this pass, then forgets the pending set.
func (s *VocabularySynchronizer) Refresh(ctx context.Context, collection Collection, appID int) error {
	if s == nil || s.catalog == nil {
		return fmt.Errorf("core: vocabulary synchronizer is not configured")
	}
	if err := s.catalog.Refresh(ctx, s.client, collection, appID); err != nil {
		return err
	}
	s.pending = map[int]map[string]struct{}{}
	return nil
}

// markPending records a submission and reports whether it was already made
// earlier in the same pass.
func (s *VocabularySynchronizer) markPending(fieldID int, name string) bool {
	if s.pending == nil {
		s.pending = map[int]map[string]struct{}{}
	}
	values, ok := s.pending[fieldID]
	if !ok {
		values = map[string]struct{}{}
		s.pending[fieldID] = values
	}
	if _, seen := values[name]; seen {
		return true
	}
	values[name] = struct{}{}
	return false
}
