// Package validate checks an event against a schema of field
// (type, mandatory) conditions, short-circuiting on the first failure.
package validate

import (
	"github.com/invisible-tech/sca-event-decoder/internal/event"
	"github.com/invisible-tech/sca-event-decoder/internal/field"
)

// PathFunc resolves a field to its source-side JSON pointer.
type PathFunc func(field.Name) string

// IsValidEvent checks doc against conditions in order: if a field exists
// at its source path, its observed type must match; if it is absent and
// mandatory, the check fails. The first failing condition short-circuits
// to false; the order of conditions does not otherwise alter the result.
func IsValidEvent(doc *event.Document, sourcePath PathFunc, conditions []field.Condition) bool {
	for _, cond := range conditions {
		path := sourcePath(cond.Field)
		if doc.Exists(path) {
			if !matchesType(doc, path, cond.Type) {
				return false
			}
		} else if cond.Mandatory {
			return false
		}
	}
	return true
}

func matchesType(doc *event.Document, path string, t field.FieldType) bool {
	switch t {
	case field.TypeString:
		return doc.IsString(path)
	case field.TypeInt:
		return doc.IsInt(path)
	case field.TypeBool:
		return doc.IsBool(path)
	case field.TypeArray:
		return doc.IsArray(path)
	case field.TypeObject:
		return doc.IsObject(path)
	default:
		return false
	}
}
