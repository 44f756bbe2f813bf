package core

// UserRecordContext carries per-user resolution state that generic field
// mapping cannot produce: resolved directory group ids and the record ids of
// the target-system group records they map to.
type UserRecordContext struct {
	GroupIDs       []string
	GroupRecordIDs []int
}

// RecordBuilder composes the coercion engine over a mapping table to build
// either a brand-new record or a minimal diff against an existing one. The
// status field and the group-reference field, when configured, are layered
// on top of generic mapping.
type RecordBuilder struct {
	coercer       *Coercer
	status        *StatusResolver
	groupsFieldID int
}

func NewRecordBuilder(catalog *FieldCatalog, status *StatusResolver, groupsFieldID int) *RecordBuilder {
	return &RecordBuilder{
		coercer:       NewCoercer(catalog),
		status:        status,
		groupsFieldID: groupsFieldID,
	}
}

// BuildNewRecord coerces every mapped property into a fresh record for the
// collection app. Entries that coerce to an empty value are omitted.
func (b *RecordBuilder) BuildNewRecord(
	entity DirectoryEntity,
	mappings FieldMappings,
	appID int,
	user *UserRecordContext,
) TargetRecord {
	record := NewTargetRecord(appID, 0)
	registry := RegistryFor(entity.Kind())

	for fieldID, property := range mappings {
		if b.isResolverField(entity, fieldID) {
			continue
		}
		accessor, ok := registry.Resolve(property)
		if !ok {
			continue
		}
		value := b.coercer.Coerce(fieldID, accessor.Get(entity))
		if value.FieldID == 0 || value.IsEmpty() {
			continue
		}
		record.SetValue(value)
	}

	b.layerResolverFields(entity, nil, user, &record)
	return record
}

// BuildUpdatedRecord clones the existing record's identity and includes only
// fields whose coerced value differs from the stored one. An empty result
// signals "nothing to write".
func (b *RecordBuilder) BuildUpdatedRecord(
	entity DirectoryEntity,
	existing TargetRecord,
	mappings FieldMappings,
	user *UserRecordContext,
) TargetRecord {
	record := NewTargetRecord(existing.AppID, existing.RecordID)
	registry := RegistryFor(entity.Kind())

	for fieldID, property := range mappings {
		if b.isResolverField(entity, fieldID) {
			continue
		}
		accessor, ok := registry.Resolve(property)
		if !ok {
			continue
		}
		value := b.coercer.Coerce(fieldID, accessor.Get(entity))
		if value.FieldID == 0 {
			continue
		}
		var stored *FieldValue
		if existingValue, ok := existing.Value(fieldID); ok {
			stored = &existingValue
		}
		next := value
		if !ValuesAreEqual(&next, stored) {
			record.SetValue(next)
		}
	}

	b.layerResolverFields(entity, &existing, user, &record)
	return record
}

func (b *RecordBuilder) isResolverField(entity DirectoryEntity, fieldID int) bool {
	if entity == nil || entity.Kind() != EntityKindUser {
		return false
	}
	if b.status.Enabled() && fieldID == b.status.FieldID() {
		return true
	}
	return b.groupsFieldID > 0 && fieldID == b.groupsFieldID
}

func (b *RecordBuilder) layerResolverFields(
	entity DirectoryEntity,
	existing *TargetRecord,
	user *UserRecordContext,
	record *TargetRecord,
) {
	if entity == nil || entity.Kind() != EntityKindUser || user == nil {
		return
	}
	directoryUser, ok := entity.(DirectoryUser)
	if !ok {
		return
	}

	if b.status.Enabled() {
		if status := b.status.UserStatus(directoryUser, existing, user.GroupIDs); status != nil {
			record.SetValue(*status)
		}
	}

	if b.groupsFieldID > 0 {
		references := NewRecordListValue(b.groupsFieldID, user.GroupRecordIDs)
		if existing == nil {
			if !references.IsEmpty() {
				record.SetValue(references)
			}
			return
		}
		var stored *FieldValue
		if existingValue, ok := existing.Value(b.groupsFieldID); ok {
			stored = &existingValue
		}
		if !ValuesAreEqual(&references, stored) {
			record.SetValue(references)
		}
	}
}

// ValuesAreEqual is the diff equality contract:
//   - both absent: equal;
//   - empty list against absent: equal;
//   - two lists: equal iff same elements in the same order;
//   - list against a present scalar: never equal;
//   - otherwise scalar string representations decide.
func ValuesAreEqual(a, b *FieldValue) bool {
	if a == nil && b == nil {
		return true
	}

	aIsList := a != nil && a.IsList()
	bIsList := b != nil && b.IsList()

	switch {
	case aIsList && bIsList:
		return stringSlicesEqual(a.ListItems(), b.ListItems())
	case aIsList:
		if b == nil {
			return len(a.ListItems()) == 0
		}
		return false
	case bIsList:
		if a == nil {
			return len(b.ListItems()) == 0
		}
		return false
	default:
		return scalarString(a) == scalarString(b)
	}
}

func scalarString(value *FieldValue) string {
	if value == nil {
		return ""
	}
	return value.StringValue()
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
