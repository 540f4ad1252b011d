// Package types implements the type registry of the dataset model. A type is identified by a tag
// and knows how to order two values of the type and how to convert raw input into a value of the
// type.
//
// The registry is populated once when the process starts and it is only read afterwards, so it
// is not protected against concurrent registration.
package types

import (
	"sort"
)

// Tag is the name of a type.
type Tag string

const (
	Number  Tag = "number"
	String  Tag = "string"
	Boolean Tag = "boolean"
	Time    Tag = "time"
	Mixed   Tag = "mixed"
)

// Comparator returns a negative number if a < b, zero if a == b and a positive number if a > b.
// It must be a total order over the output domain of the type's Coercer.
type Comparator func(a, b any) int

// Coercer converts a raw value into a value of the type. The format is an optional type-specific
// hint, e.g., a strptime layout for times; it is empty if unset.
type Coercer func(raw any, format string) (any, error)

// Type is an immutable type descriptor.
type Type struct {
	Tag     Tag
	Compare Comparator
	Coerce  Coercer
	// Exact is set if Compare is plain equality on the coerced values, so that the values can be
	// used as hash keys directly.
	Exact bool
}

// Registry maps tags to types.
type Registry struct {
	types map[Tag]Type
}

// DefaultRegistry holds the built-in types. It is used by datasets that are not given an explicit
// registry.
var DefaultRegistry = Default()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: map[Tag]Type{}}
}

// Default creates a new registry with the built-in types registered.
func Default() *Registry {
	r := NewRegistry()
	for _, t := range builtins() {
		r.Register(t)
	}
	return r
}

// Register adds a type to the registry, replacing any previous type with the same tag.
func (r *Registry) Register(t Type) {
	r.types[t.Tag] = t
}

// Lookup returns the type for a tag.
func (r *Registry) Lookup(tag Tag) (Type, error) {
	t, ok := r.types[tag]
	if !ok {
		return Type{}, NewUnknownTypeError(tag)
	}
	return t, nil
}

// Has reports whether a tag is registered.
func (r *Registry) Has(tag Tag) bool {
	_, ok := r.types[tag]
	return ok
}

// Tags lists the registered tags in lexical order.
func (r *Registry) Tags() []Tag {
	ret := make([]Tag, 0, len(r.types))
	for t := range r.types {
		ret = append(ret, t)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// Compare orders two values of the given type.
func (r *Registry) Compare(tag Tag, a, b any) (int, error) {
	t, err := r.Lookup(tag)
	if err != nil {
		return 0, err
	}
	return t.Compare(a, b), nil
}

// Coerce converts a raw value to the given type.
func (r *Registry) Coerce(tag Tag, raw any) (any, error) {
	return r.CoerceFormat(tag, raw, "")
}

// CoerceFormat converts a raw value to the given type using a type-specific format.
func (r *Registry) CoerceFormat(tag Tag, raw any, format string) (any, error) {
	t, err := r.Lookup(tag)
	if err != nil {
		return nil, err
	}
	return t.Coerce(raw, format)
}

// IsExact reports whether values of the tag can be grouped by hashing.
func (r *Registry) IsExact(tag Tag) bool {
	t, ok := r.types[tag]
	return ok && t.Exact
}
