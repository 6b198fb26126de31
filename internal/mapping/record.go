package mapping

import (
	"fmt"
	"strings"
)

// Row is one flat source row keyed by column header.
type Row map[string]string

// Record is the nested structure built from one row: every dotted target
// path becomes a chain of nested maps ending in a string leaf.
type Record map[string]any

// Set inserts value at the dotted path, creating intermediate levels.
// It fails when a segment of path is already a leaf, or when path itself
// already holds nested fields.
func (r Record) Set(path, value string) error {
	parts := strings.Split(path, ".")
	level := r
	for i, part := range parts[:len(parts)-1] {
		switch next := level[part].(type) {
		case nil:
			child := Record{}
			level[part] = child
			level = child
		case Record:
			level = next
		default:
			return fmt.Errorf("path %q conflicts with value at %q", path, strings.Join(parts[:i+1], "."))
		}
	}

	last := parts[len(parts)-1]
	if _, nested := level[last].(Record); nested {
		return fmt.Errorf("path %q already holds nested fields", path)
	}
	level[last] = value
	return nil
}

// Get returns the string leaf at path.
func (r Record) Get(path string) (string, bool) {
	parts := strings.Split(path, ".")
	level := r
	for _, part := range parts[:len(parts)-1] {
		next, ok := level[part].(Record)
		if !ok {
			return "", false
		}
		level = next
	}
	v, ok := level[parts[len(parts)-1]].(string)
	return v, ok
}

// Has reports whether anything, leaf or nested, exists at path.
func (r Record) Has(path string) bool {
	parts := strings.Split(path, ".")
	level := r
	for _, part := range parts[:len(parts)-1] {
		next, ok := level[part].(Record)
		if !ok {
			return false
		}
		level = next
	}
	_, ok := level[parts[len(parts)-1]]
	return ok
}
