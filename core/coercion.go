package core

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Coercer converts a raw directory property value into a field value of the
// target field's kind. Pure: it reads the catalog and never mutates it.
type Coercer struct {
	catalog *FieldCatalog
}

func NewCoercer(catalog *FieldCatalog) *Coercer {
	return &Coercer{catalog: catalog}
}

// Coerce dispatches on the raw value's runtime shape. A field id unknown to
// either collection yields a text value carrying the JSON form of the raw
// value, tagged with field id 0.
func (c *Coercer) Coerce(fieldID int, raw any) FieldValue {
	field, ok := c.field(fieldID)
	if !ok {
		return NewTextValue(0, jsonText(raw))
	}

	switch typed := raw.(type) {
	case nil:
		return emptyValueFor(field)
	case string:
		return c.coerceString(field, typed)
	case bool:
		return c.coerceString(field, strconv.FormatBool(typed))
	case time.Time:
		return coerceTime(field, typed)
	case *time.Time:
		if typed == nil {
			return emptyValueFor(field)
		}
		return coerceTime(field, *typed)
	case []string:
		return c.coerceStringList(field, typed)
	default:
		return NewTextValue(field.ID, jsonText(raw))
	}
}

func (c *Coercer) field(fieldID int) (TargetField, bool) {
	if c == nil || c.catalog == nil {
		return TargetField{}, false
	}
	return c.catalog.Field(fieldID)
}

func (c *Coercer) coerceString(field TargetField, value string) FieldValue {
	switch {
	case field.Type == FieldTypeChoiceSingle:
		if valueID, ok := field.ValueIDByName(value); ok {
			return NewChoiceValue(field.ID, valueID)
		}
		return EmptyChoiceValue(field.ID)
	case field.Type == FieldTypeChoiceMulti:
		if valueID, ok := field.ValueIDByName(value); ok {
			return NewChoiceListValue(field.ID, []string{valueID})
		}
		return NewChoiceListValue(field.ID, nil)
	default:
		return NewTextValue(field.ID, value)
	}
}

func (c *Coercer) coerceStringList(field TargetField, values []string) FieldValue {
	if field.Type == FieldTypeChoiceMulti {
		// Absent display names are skipped here; adding them is the
		// vocabulary synchronizer's job.
		var valueIDs []string
		for _, value := range values {
			if valueID, ok := field.ValueIDByName(value); ok {
				valueIDs = append(valueIDs, valueID)
			}
		}
		return NewChoiceListValue(field.ID, valueIDs)
	}
	return NewTextValue(field.ID, strings.Join(values, ","))
}

func coerceTime(field TargetField, at time.Time) FieldValue {
	if field.Type == FieldTypeDate {
		return NewDateValue(field.ID, at)
	}
	return NewTextValue(field.ID, at.UTC().Format(DateTextFormat))
}

func emptyValueFor(field TargetField) FieldValue {
	switch field.Type {
	case FieldTypeDate:
		return EmptyDateValue(field.ID)
	case FieldTypeChoiceSingle:
		return EmptyChoiceValue(field.ID)
	case FieldTypeChoiceMulti:
		return NewChoiceListValue(field.ID, nil)
	default:
		return NewTextValue(field.ID, "")
	}
}

func jsonText(raw any) string {
	payload, err := json.Marshal(raw)
	if err != nil {
		return ""
	}
	return string(payload)
}
