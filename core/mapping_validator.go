package core

import (
	"fmt"
	"sort"
	"strings"
)

type MappingIssueSeverity int

const (
	MappingIssueError MappingIssueSeverity = iota
	MappingIssueWarning
)

func (s MappingIssueSeverity) String() string {
	if s == MappingIssueWarning {
		return "warning"
	}
	return "error"
}

type MappingIssue struct {
	Code     string
	Message  string
	FieldID  int
	Property string
	Severity MappingIssueSeverity
}

type ValidationResult struct {
	Valid  bool
	Issues []MappingIssue
}

// MappingValidator checks a field-mapping table against the accessor
// registry of the mapped entity kind and the field catalog of the target
// collection. Pure predicate: no side effects, callers decide whether a
// failed result aborts the run.
type MappingValidator struct{}

func NewMappingValidator() *MappingValidator {
	return &MappingValidator{}
}

func (v *MappingValidator) Validate(
	catalog *FieldCatalog,
	collection Collection,
	mappings FieldMappings,
	registry *AccessorRegistry,
) ValidationResult {
	var issues []MappingIssue
	issues = append(issues, v.resolvePropertyIssues(mappings, registry)...)
	issues = append(issues, v.typeCompatibilityIssues(catalog, mappings, registry)...)
	issues = append(issues, v.knownFieldIssues(catalog, collection, mappings)...)
	issues = append(issues, v.requiredFieldIssues(catalog, collection, mappings)...)

	sortMappingIssues(issues)
	return ValidationResult{
		Valid:  !containsMappingErrors(issues),
		Issues: issues,
	}
}

// HasResolvableProperties reports whether every mapped property name
// resolves against the entity kind's accessors (case-insensitive).
func (v *MappingValidator) HasResolvableProperties(mappings FieldMappings, registry *AccessorRegistry) bool {
	return !containsMappingErrors(v.resolvePropertyIssues(mappings, registry))
}

// HasCompatibleTypes reports whether every resolvable mapping pairs a
// property kind with a compatible target field type.
func (v *MappingValidator) HasCompatibleTypes(catalog *FieldCatalog, mappings FieldMappings, registry *AccessorRegistry) bool {
	return !containsMappingErrors(v.typeCompatibilityIssues(catalog, mappings, registry))
}

// HasKnownTargetFields reports whether every mapped field id exists in the
// collection's catalog entry.
func (v *MappingValidator) HasKnownTargetFields(catalog *FieldCatalog, collection Collection, mappings FieldMappings) bool {
	return !containsMappingErrors(v.knownFieldIssues(catalog, collection, mappings))
}

// HasRequiredFieldsMapped reports whether every required catalog field has
// at least one mapping entry.
func (v *MappingValidator) HasRequiredFieldsMapped(catalog *FieldCatalog, collection Collection, mappings FieldMappings) bool {
	return !containsMappingErrors(v.requiredFieldIssues(catalog, collection, mappings))
}

func (v *MappingValidator) resolvePropertyIssues(mappings FieldMappings, registry *AccessorRegistry) []MappingIssue {
	var issues []MappingIssue
	for fieldID, property := range mappings {
		if _, ok := registry.Resolve(property); !ok {
			issues = append(issues, MappingIssue{
				Code:     "property_not_found",
				Message:  fmt.Sprintf("core: property %q does not exist on %s entities", property, registry.EntityKind()),
				FieldID:  fieldID,
				Property: property,
				Severity: MappingIssueError,
			})
		}
	}
	return issues
}

func (v *MappingValidator) typeCompatibilityIssues(catalog *FieldCatalog, mappings FieldMappings, registry *AccessorRegistry) []MappingIssue {
	var issues []MappingIssue
	for fieldID, property := range mappings {
		accessor, ok := registry.Resolve(property)
		if !ok {
			continue
		}
		field, ok := catalog.Field(fieldID)
		if !ok {
			continue
		}
		if !IsCompatibleFieldType(field.Type, accessor.Kind) {
			issues = append(issues, MappingIssue{
				Code:     "type_incompatible",
				Message:  fmt.Sprintf("core: %s property %q cannot map to %s field %d", accessor.Kind, property, field.Type, fieldID),
				FieldID:  fieldID,
				Property: property,
				Severity: MappingIssueError,
			})
		}
	}
	return issues
}

func (v *MappingValidator) knownFieldIssues(catalog *FieldCatalog, collection Collection, mappings FieldMappings) []MappingIssue {
	var issues []MappingIssue
	for fieldID, property := range mappings {
		if _, ok := catalog.CollectionField(collection, fieldID); !ok {
			issues = append(issues, MappingIssue{
				Code:     "target_field_unknown",
				Message:  fmt.Sprintf("core: target field %d is not in the %s catalog", fieldID, collection),
				FieldID:  fieldID,
				Property: property,
				Severity: MappingIssueError,
			})
		}
	}
	return issues
}

func (v *MappingValidator) requiredFieldIssues(catalog *FieldCatalog, collection Collection, mappings FieldMappings) []MappingIssue {
	var issues []MappingIssue
	for _, field := range catalog.Fields(collection) {
		if !field.Required {
			continue
		}
		if _, ok := mappings.PropertyFor(field.ID); !ok {
			issues = append(issues, MappingIssue{
				Code:     "required_field_unmapped",
				Message:  fmt.Sprintf("core: required field %q (%d) has no mapping", field.Name, field.ID),
				FieldID:  field.ID,
				Severity: MappingIssueError,
			})
		}
	}
	return issues
}

// IsCompatibleFieldType is the type-compatibility table between directory
// property kinds and target field types:
//   - string and bool map to text or choice fields;
//   - times map to text or date fields;
//   - string lists map to text or multi-select choice fields, never to a
//     single-select choice.
func IsCompatibleFieldType(fieldType FieldType, propertyKind PropertyKind) bool {
	switch propertyKind {
	case PropertyKindString, PropertyKindBool:
		return fieldType == FieldTypeText || fieldType.IsChoice()
	case PropertyKindTime:
		return fieldType == FieldTypeText || fieldType == FieldTypeDate
	case PropertyKindStringList:
		return fieldType == FieldTypeText || fieldType == FieldTypeChoiceMulti
	default:
		return false
	}
}

func containsMappingErrors(issues []MappingIssue) bool {
	for _, issue := range issues {
		if issue.Severity == MappingIssueError {
			return true
		}
	}
	return false
}

func sortMappingIssues(issues []MappingIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		left := issues[i]
		right := issues[j]
		if left.Severity != right.Severity {
			return left.Severity < right.Severity
		}
		if left.Code != right.Code {
			return left.Code < right.Code
		}
		if left.FieldID != right.FieldID {
			return left.FieldID < right.FieldID
		}
		if left.Property != right.Property {
			return strings.Compare(left.Property, right.Property) < 0
		}
		return left.Message < right.Message
	})
}
