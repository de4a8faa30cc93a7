package tasl

import "github.com/jmatsushita/taslite/internal/errs"

// Class is one named entity type in a Schema, with a stable 0-based index
// equal to its position in the schema's insertion order (spec.md §3).
type Class struct {
	Key   string
	Type  Type
	Index int
}

// Schema is an ordered mapping from class key to class type (spec.md §3).
type Schema struct {
	classes []Class
	byKey   map[string]int
}

// NewSchema builds a Schema from an ordered list of (key, type) pairs.
// Class indices are assigned by position. Duplicate keys are rejected.
func NewSchema(entries ...struct {
	Key  string
	Type Type
}) (*Schema, error) {
	s := &Schema{byKey: make(map[string]int, len(entries))}
	for _, e := range entries {
		if _, exists := s.byKey[e.Key]; exists {
			return nil, &errs.TypeError{Reason: "duplicate class key " + e.Key}
		}
		idx := len(s.classes)
		s.byKey[e.Key] = idx
		s.classes = append(s.classes, Class{Key: e.Key, Type: e.Type, Index: idx})
	}
	return s, nil
}

// Classes returns the schema's classes in canonical (insertion) order.
func (s *Schema) Classes() []Class { return s.classes }

// Class looks up a class by key.
func (s *Schema) Class(key string) (Class, bool) {
	idx, ok := s.byKey[key]
	if !ok {
		return Class{}, false
	}
	return s.classes[idx], true
}

// ClassAt looks up a class by its 0-based index.
func (s *Schema) ClassAt(index int) (Class, bool) {
	if index < 0 || index >= len(s.classes) {
		return Class{}, false
	}
	return s.classes[index], true
}

// Len returns the number of classes in the schema.
func (s *Schema) Len() int { return len(s.classes) }

// HasClass reports whether key names a class in the schema.
func (s *Schema) HasClass(key string) bool {
	_, ok := s.byKey[key]
	return ok
}

// Equal reports whether two schemas are structurally identical: same
// classes, in the same order, with structurally identical types
// (spec.md §8's "schema persistence" property and §4.7's SchemaMismatch
// check both depend on this).
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.classes) != len(other.classes) {
		return false
	}
	for i := range s.classes {
		if NormalizeString(s.classes[i].Key) != NormalizeString(other.classes[i].Key) {
			return false
		}
		if !Equal(s.classes[i].Type, other.classes[i].Type) {
			return false
		}
	}
	return true
}
