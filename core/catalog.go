package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// FieldCatalog holds the target system's field definitions for the groups
// and users collections. It is mutated only during the sequential setup and
// vocabulary phases; the parallel entity phase reads it without locking.
type FieldCatalog struct {
	fields map[Collection][]TargetField
}

func NewFieldCatalog() *FieldCatalog {
	return &FieldCatalog{fields: map[Collection][]TargetField{}}
}

func (c *FieldCatalog) SetFields(collection Collection, fields []TargetField) {
	if c == nil {
		return
	}
	if c.fields == nil {
		c.fields = map[Collection][]TargetField{}
	}
	copied := append([]TargetField(nil), fields...)
	sort.SliceStable(copied, func(i, j int) bool { return copied[i].ID < copied[j].ID })
	c.fields[collection] = copied
}

func (c *FieldCatalog) Fields(collection Collection) []TargetField {
	if c == nil {
		return nil
	}
	return append([]TargetField(nil), c.fields[collection]...)
}

// Field looks up a field id across both collections.
func (c *FieldCatalog) Field(fieldID int) (TargetField, bool) {
	if c == nil {
		return TargetField{}, false
	}
	for _, collection := range []Collection{CollectionGroups, CollectionUsers} {
		for _, field := range c.fields[collection] {
			if field.ID == fieldID {
				return field, true
			}
		}
	}
	return TargetField{}, false
}

func (c *FieldCatalog) CollectionField(collection Collection, fieldID int) (TargetField, bool) {
	if c == nil {
		return TargetField{}, false
	}
	for _, field := range c.fields[collection] {
		if field.ID == fieldID {
			return field, true
		}
	}
	return TargetField{}, false
}

// FieldByName resolves a field by display name within one collection.
// Display names are matched case-insensitively; the first match wins.
func (c *FieldCatalog) FieldByName(collection Collection, name string) (TargetField, bool) {
	if c == nil {
		return TargetField{}, false
	}
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return TargetField{}, false
	}
	for _, field := range c.fields[collection] {
		if strings.ToLower(strings.TrimSpace(field.Name)) == needle {
			return field, true
		}
	}
	return TargetField{}, false
}

func (c *FieldCatalog) ChoiceFields(collection Collection) []TargetField {
	if c == nil {
		return nil
	}
	var choices []TargetField
	for _, field := range c.fields[collection] {
		if field.Type.IsChoice() {
			choices = append(choices, field)
		}
	}
	return choices
}

// Refresh replaces a collection's fields from the target system, paging
// until the reported total is reached and concatenating all pages.
func (c *FieldCatalog) Refresh(ctx context.Context, client TargetClient, collection Collection, appID int) error {
	if c == nil {
		return fmt.Errorf("core: field catalog is nil")
	}
	if client == nil {
		return fmt.Errorf("core: target client is required")
	}
	if appID <= 0 {
		return fmt.Errorf("core: app id is required for %s", collection)
	}

	var fields []TargetField
	for pageNumber := 1; ; pageNumber++ {
		page, err := client.GetFieldsPage(ctx, appID, pageNumber)
		if err != nil {
			return fmt.Errorf("core: fetch %s fields page %d: %w", collection, pageNumber, err)
		}
		fields = append(fields, page.Fields...)
		if page.TotalPages <= pageNumber {
			break
		}
	}
	c.SetFields(collection, fields)
	return nil
}
