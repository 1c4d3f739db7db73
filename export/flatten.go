package export

import (
	"strings"
)

// versionField is the store's internal document-version counter; it never
// belongs in an export.
const versionField = "__v"

// FlatRow is one flattened document: column name to primitive value.
type FlatRow map[string]interface{}

// Flatten converts an arbitrarily nested document into a single flat row.
// Rules, in priority order:
//
//  1. null branches are omitted entirely
//  2. the internal version field is omitted
//  3. identifier scalars are stringified
//  4. temporal scalars render as RFC3339
//  5. nested objects recurse, prefixing child keys with parent_child
//  6. lists of primitives join into one |-separated string
//  7. lists holding objects serialize whole as a JSON string
//  8. remaining primitives pass through unchanged
//
// Pure: the input document is never mutated, and output is deterministic
// in the document's key definition order.
func Flatten(doc Value) FlatRow {
	row := make(FlatRow)
	flattenInto(row, "", doc)
	return row
}

func flattenInto(row FlatRow, prefix string, v Value) {
	if v.Kind() != KindMap {
		if prefix != "" && v.Kind() != KindNull {
			row[prefix] = flattenLeaf(v)
		}
		return
	}

	for _, key := range v.Keys() {
		if key == versionField {
			continue
		}
		child, _ := v.Get(key)
		column := key
		if prefix != "" {
			column = prefix + "_" + key
		}

		switch child.Kind() {
		case KindNull:
			// omitted
		case KindMap:
			flattenInto(row, column, child)
		case KindList:
			if cell, ok := flattenList(child); ok {
				row[column] = cell
			}
		default:
			row[column] = child.Primitive()
		}
	}
}

func flattenLeaf(v Value) interface{} {
	if v.Kind() == KindList {
		cell, _ := flattenList(v)
		return cell
	}
	return v.Primitive()
}

func flattenList(v Value) (interface{}, bool) {
	items := v.Items()

	for _, item := range items {
		if item.Kind() == KindMap || item.Kind() == KindList {
			// Object lists keep their structure as one JSON cell rather
			// than exploding into unbounded columns.
			raw, err := v.MarshalJSON()
			if err != nil {
				return nil, false
			}
			return string(raw), true
		}
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, item.primitiveString())
	}
	return strings.Join(parts, "|"), true
}
