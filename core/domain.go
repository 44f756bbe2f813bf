package core

import (
	"strconv"
	"strings"
	"time"
)

type Collection string

const (
	CollectionGroups Collection = "groups"
	CollectionUsers  Collection = "users"
)

func (c Collection) Valid() bool {
	return c == CollectionGroups || c == CollectionUsers
}

type EntityKind string

const (
	EntityKindGroup EntityKind = "group"
	EntityKindUser  EntityKind = "user"
)

// DirectoryEntity is an immutable snapshot of a group or user coming from
// the identity directory. Snapshots are owned by the directory client and
// read-only to the reconciliation core.
type DirectoryEntity interface {
	Kind() EntityKind
	EntityID() string
}

type DirectoryGroup struct {
	ID          string
	DisplayName string
	Description string
	CreatedAt   *time.Time
}

func (DirectoryGroup) Kind() EntityKind { return EntityKindGroup }

func (g DirectoryGroup) EntityID() string { return strings.TrimSpace(g.ID) }

type DirectoryUser struct {
	ID                string
	UserPrincipalName string
	DisplayName       string
	GivenName         string
	Surname           string
	Mail              string
	Department        string
	JobTitle          string
	OfficeLocation    string
	City              string
	State             string
	AccountEnabled    *bool
	EmployeeHireDate  *time.Time
	OtherMails        []string

	// GroupIDs is derived from the directory's membership lookup and is
	// populated by the caller before record building.
	GroupIDs []string
}

func (DirectoryUser) Kind() EntityKind { return EntityKindUser }

func (u DirectoryUser) EntityID() string { return strings.TrimSpace(u.ID) }

type FieldType int

const (
	FieldTypeOther FieldType = iota
	FieldTypeText
	FieldTypeDate
	FieldTypeChoiceSingle
	FieldTypeChoiceMulti
	FieldTypeReference
	FieldTypeAutoNumber
)

func (t FieldType) String() string {
	switch t {
	case FieldTypeText:
		return "text"
	case FieldTypeDate:
		return "date"
	case FieldTypeChoiceSingle:
		return "choice_single"
	case FieldTypeChoiceMulti:
		return "choice_multi"
	case FieldTypeReference:
		return "reference"
	case FieldTypeAutoNumber:
		return "auto_number"
	default:
		return "other"
	}
}

func (t FieldType) IsChoice() bool {
	return t == FieldTypeChoiceSingle || t == FieldTypeChoiceMulti
}

// ListValue is one entry of a choice field's vocabulary. IDs are opaque and
// distinct from display names; name lookups are exact and case-sensitive.
type ListValue struct {
	ID   string
	Name string
}

type TargetField struct {
	ID       int
	AppID    int
	Name     string
	Type     FieldType
	ListID   string
	Required bool
	Unique   bool
	Values   []ListValue
}

// ValueIDByName resolves a display name to its value id. Exact match only.
func (f *TargetField) ValueIDByName(name string) (string, bool) {
	if f == nil {
		return "", false
	}
	for _, value := range f.Values {
		if value.Name == name {
			return value.ID, true
		}
	}
	return "", false
}

func (f *TargetField) HasValueName(name string) bool {
	_, ok := f.ValueIDByName(name)
	return ok
}

// FieldMappings associates a target field id with a directory property name.
// Property names match accessors case-insensitively. Mappings are mutated
// only by default seeding and external configuration, never during
// reconciliation.
type FieldMappings map[int]string

func (m FieldMappings) PropertyFor(fieldID int) (string, bool) {
	property, ok := m[fieldID]
	return property, ok
}

// FieldIDFor returns the target field mapped to a property name. The first
// match wins; a property mapped to several fields is not rejected here.
func (m FieldMappings) FieldIDFor(property string) (int, bool) {
	needle := canonicalPropertyName(property)
	if needle == "" {
		return 0, false
	}
	for fieldID, mapped := range m {
		if canonicalPropertyName(mapped) == needle {
			return fieldID, true
		}
	}
	return 0, false
}

func (m FieldMappings) Clone() FieldMappings {
	if m == nil {
		return FieldMappings{}
	}
	out := make(FieldMappings, len(m))
	for fieldID, property := range m {
		out[fieldID] = property
	}
	return out
}

type ValueKind int

const (
	ValueKindText ValueKind = iota
	ValueKindDate
	ValueKindChoiceSingle
	ValueKindChoiceList
	ValueKindRecordList
)

func (k ValueKind) String() string {
	switch k {
	case ValueKindDate:
		return "date"
	case ValueKindChoiceSingle:
		return "choice_single"
	case ValueKindChoiceList:
		return "choice_list"
	case ValueKindRecordList:
		return "record_list"
	default:
		return "text"
	}
}

// FieldValue is the closed coerced-value union: one case per target field
// kind the engine can write. The zero value is an empty text value.
type FieldValue struct {
	FieldID int
	Kind    ValueKind
	Text    string
	Date    *time.Time
	List    []string
	Records []int
}

func NewTextValue(fieldID int, text string) FieldValue {
	return FieldValue{FieldID: fieldID, Kind: ValueKindText, Text: text}
}

func NewDateValue(fieldID int, at time.Time) FieldValue {
	utc := at.UTC()
	return FieldValue{FieldID: fieldID, Kind: ValueKindDate, Date: &utc}
}

func EmptyDateValue(fieldID int) FieldValue {
	return FieldValue{FieldID: fieldID, Kind: ValueKindDate}
}

func NewChoiceValue(fieldID int, valueID string) FieldValue {
	return FieldValue{FieldID: fieldID, Kind: ValueKindChoiceSingle, Text: valueID}
}

func EmptyChoiceValue(fieldID int) FieldValue {
	return FieldValue{FieldID: fieldID, Kind: ValueKindChoiceSingle}
}

func NewChoiceListValue(fieldID int, valueIDs []string) FieldValue {
	return FieldValue{FieldID: fieldID, Kind: ValueKindChoiceList, List: append([]string(nil), valueIDs...)}
}

func NewRecordListValue(fieldID int, recordIDs []int) FieldValue {
	return FieldValue{FieldID: fieldID, Kind: ValueKindRecordList, Records: append([]int(nil), recordIDs...)}
}

func (v FieldValue) IsEmpty() bool {
	switch v.Kind {
	case ValueKindDate:
		return v.Date == nil
	case ValueKindChoiceList:
		return len(v.List) == 0
	case ValueKindRecordList:
		return len(v.Records) == 0
	default:
		return v.Text == ""
	}
}

func (v FieldValue) IsList() bool {
	return v.Kind == ValueKindChoiceList || v.Kind == ValueKindRecordList
}

// ListItems returns the list payload as strings regardless of list kind.
func (v FieldValue) ListItems() []string {
	switch v.Kind {
	case ValueKindChoiceList:
		return append([]string(nil), v.List...)
	case ValueKindRecordList:
		items := make([]string, 0, len(v.Records))
		for _, id := range v.Records {
			items = append(items, strconv.Itoa(id))
		}
		return items
	default:
		return nil
	}
}

// StringValue is the scalar representation used for diff equality.
func (v FieldValue) StringValue() string {
	switch v.Kind {
	case ValueKindDate:
		if v.Date == nil {
			return ""
		}
		return v.Date.UTC().Format(DateTextFormat)
	case ValueKindChoiceList:
		return strings.Join(v.List, ",")
	case ValueKindRecordList:
		return strings.Join(v.ListItems(), ",")
	default:
		return v.Text
	}
}

// DateTextFormat renders timestamps written into text fields.
const DateTextFormat = "2006-01-02T15:04:05Z"

// TargetRecord is an existing or pending record in the target system.
// RecordID zero means the record does not exist yet.
type TargetRecord struct {
	AppID    int
	RecordID int
	Values   map[int]FieldValue
}

func NewTargetRecord(appID int, recordID int) TargetRecord {
	return TargetRecord{AppID: appID, RecordID: recordID, Values: map[int]FieldValue{}}
}

func (r TargetRecord) Value(fieldID int) (FieldValue, bool) {
	if r.Values == nil {
		return FieldValue{}, false
	}
	value, ok := r.Values[fieldID]
	return value, ok
}

func (r *TargetRecord) SetValue(value FieldValue) {
	if r.Values == nil {
		r.Values = map[int]FieldValue{}
	}
	r.Values[value.FieldID] = value
}

func (r TargetRecord) IsNew() bool { return r.RecordID == 0 }

// Empty reports whether the record carries no field values, which signals
// "nothing to write" to the processor.
func (r TargetRecord) Empty() bool { return len(r.Values) == 0 }

func (r TargetRecord) Clone() TargetRecord {
	out := NewTargetRecord(r.AppID, r.RecordID)
	for _, value := range r.Values {
		out.SetValue(value)
	}
	return out
}

func canonicalPropertyName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
