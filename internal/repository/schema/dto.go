package schema

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/collection/field"
)

// fieldRow is the JSON-serializable representation of a field definition for HSET.
type fieldRow struct {
	Key         string            `json:"key"`
	Type        string            `json:"type"`
	Label       map[string]string `json:"label,omitempty"`
	Description map[string]string `json:"description,omitempty"`
	Options     []field.Option    `json:"options,omitempty"`
	Ref         string            `json:"ref,omitempty"`
	Required    bool              `json:"required,omitempty"`
	Unique      bool              `json:"unique,omitempty"`
	Indexed     bool              `json:"indexed,omitempty"`
	Multiple    bool              `json:"multiple,omitempty"`
	Default     any               `json:"default,omitempty"`
}

// collectionToHash converts a domain Collection to a map for HSET.
func collectionToHash(col collection.Collection) (map[string]string, error) {
	rows := make([]fieldRow, len(col.Fields()))
	for i, f := range col.Fields() {
		spec := f.ToSpec()
		rows[i] = fieldRow{
			Key:         spec.Key,
			Type:        string(spec.Type),
			Label:       spec.Label,
			Description: spec.Description,
			Options:     spec.Options,
			Ref:         spec.Ref,
			Required:    spec.Required,
			Unique:      spec.Unique,
			Indexed:     spec.Indexed,
			Multiple:    spec.Multiple,
			Default:     spec.DefaultValue,
		}
	}
	fieldsJSON, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	nameJSON, err := json.Marshal(col.Name())
	if err != nil {
		return nil, fmt.Errorf("marshal name: %w", err)
	}
	descJSON, err := json.Marshal(col.Description())
	if err != nil {
		return nil, fmt.Errorf("marshal description: %w", err)
	}
	settingsJSON, err := json.Marshal(col.Settings())
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	return map[string]string{
		"tenant_id":     col.TenantID(),
		"key":           col.Key(),
		"name_json":     string(nameJSON),
		"desc_json":     string(descJSON),
		"fields_json":   string(fieldsJSON),
		"settings_json": string(settingsJSON),
		"status":        string(col.Status()),
		"created_at":    strconv.FormatInt(col.CreatedAt(), 10),
		"updated_at":    strconv.FormatInt(col.UpdatedAt(), 10),
	}, nil
}

// collectionFromHash hydrates a domain Collection from an HGETALL result map.
func collectionFromHash(m map[string]string) (collection.Collection, error) {
	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return collection.Collection{}, fmt.Errorf("invalid created_at: %w", err)
	}
	updatedAt, err := strconv.ParseInt(m["updated_at"], 10, 64)
	if err != nil {
		return collection.Collection{}, fmt.Errorf("invalid updated_at: %w", err)
	}

	var name, desc map[string]string
	if raw := m["name_json"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &name); err != nil {
			return collection.Collection{}, fmt.Errorf("unmarshal name: %w", err)
		}
	}
	if raw := m["desc_json"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &desc); err != nil {
			return collection.Collection{}, fmt.Errorf("unmarshal description: %w", err)
		}
	}

	var settings collection.Settings
	if raw := m["settings_json"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			return collection.Collection{}, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	var rows []fieldRow
	if raw := m["fields_json"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &rows); err != nil {
			return collection.Collection{}, fmt.Errorf("unmarshal fields: %w", err)
		}
	}

	fields := make([]field.Field, len(rows))
	for i, row := range rows {
		fields[i] = field.Reconstruct(field.Spec{
			Key:          row.Key,
			Type:         field.Type(row.Type),
			Label:        row.Label,
			Description:  row.Description,
			Options:      row.Options,
			Ref:          row.Ref,
			Required:     row.Required,
			Unique:       row.Unique,
			Indexed:      row.Indexed,
			Multiple:     row.Multiple,
			DefaultValue: row.Default,
		})
	}

	return collection.Reconstruct(
		m["tenant_id"], m["key"], name, desc, fields, settings,
		collection.Status(m["status"]), createdAt, updatedAt,
	), nil
}
