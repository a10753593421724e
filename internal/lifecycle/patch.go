package lifecycle

import "reflect"

// FieldMap is an edit-form snapshot keyed by field name.
type FieldMap map[string]interface{}

// Clone returns a shallow copy of the map.
func (m FieldMap) Clone() FieldMap {
	if m == nil {
		return FieldMap{}
	}
	out := make(FieldMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// BuildPatch computes the minimal partial update between two snapshots. A key
// is included exactly when the edited value differs from the original under
// strict comparison: values of different dynamic types are never equal.
// Keys present only in the original are ignored; deletions go through the
// record-removal path, not a patch. An empty result means nothing to submit.
func BuildPatch(original, edited FieldMap) FieldMap {
	patch := FieldMap{}
	for key, editedValue := range edited {
		originalValue, exists := original[key]
		if !exists || !sameValue(originalValue, editedValue) {
			patch[key] = editedValue
		}
	}
	return patch
}

func sameValue(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return reflect.DeepEqual(a, b)
}
