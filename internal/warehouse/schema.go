package warehouse

import (
	"cloud.google.com/go/bigquery"

	"bqdesc-backupper/internal/description"
)

const (
	modeNullable = "NULLABLE"
	modeRequired = "REQUIRED"
	modeRepeated = "REPEATED"
)

// fieldsFromSchema converts a BigQuery schema into description fields,
// keeping type, mode and nesting.
func fieldsFromSchema(schema bigquery.Schema) []description.Field {
	if len(schema) == 0 {
		return nil
	}
	fields := make([]description.Field, 0, len(schema))
	for _, fs := range schema {
		if fs == nil {
			continue
		}
		fields = append(fields, description.Field{
			Name:        fs.Name,
			Type:        string(fs.Type),
			Mode:        fieldMode(fs),
			Description: fs.Description,
			Fields:      fieldsFromSchema(fs.Schema),
		})
	}
	return fields
}

func fieldMode(fs *bigquery.FieldSchema) string {
	switch {
	case fs.Repeated:
		return modeRepeated
	case fs.Required:
		return modeRequired
	default:
		return modeNullable
	}
}

// applyFieldDescriptions copies descriptions from fields onto the live schema by
// name, recursing into records. Every other attribute of the live schema
// (policy tags, defaults, collation, columns not in fields) is left as is.
// It returns the number of descriptions that changed.
func applyFieldDescriptions(schema bigquery.Schema, fields []description.Field) int {
	byName := make(map[string]description.Field, len(fields))
	for _, f := range fields {
		if _, exists := byName[f.Name]; !exists {
			byName[f.Name] = f
		}
	}

	changed := 0
	for _, fs := range schema {
		if fs == nil {
			continue
		}
		f, ok := byName[fs.Name]
		if !ok {
			continue
		}
		if fs.Description != f.Description {
			fs.Description = f.Description
			changed++
		}
		if len(fs.Schema) > 0 && len(f.Fields) > 0 {
			changed += applyFieldDescriptions(fs.Schema, f.Fields)
		}
	}
	return changed
}
