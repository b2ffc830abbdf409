// Package searchspec implements the search spec DSL and its compiler.
//
// A spec is one of four shapes:
//
//	{"name": "Dave *"}                                  // Simple
//	{"either": [{...}, {...}]}                          // OR
//	{"all": [{...}, {...}]}                             // AND
//	{"either": [{...}], "not": [{...}]}                 // OR with exclusions
//
// Specs are built with [Match], [Fields], [Either], [All] and [Spec.Not],
// or decoded from a mapping with [Parse]. Shape errors are detected when a
// spec is constructed and reported by [Spec.Err] and [Compile].
package searchspec

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Reserved spec keys.
const (
	KeyEither = "either"
	KeyAll    = "all"
	KeyNot    = "not"
)

type mode int

const (
	modeSimple mode = iota
	modeEither
	modeAll
)

// Field is a single field/value match of a Simple spec.
type Field struct {
	Name  string
	Value string
}

// Spec is a validated search spec.
//
// The zero value is an empty Simple spec and does not compile.
type Spec struct {
	mode     mode
	fields   []Field
	children []Spec
	not      []Spec
	err      error
}

// Match returns a Simple spec matching a single field.
func Match(field, value string) Spec {
	return Fields(map[string]string{field: value})
}

// Fields returns a Simple spec matching every field in m.
// Fields are kept in name order so the compiled query is stable.
func Fields(m map[string]string) Spec {
	s := Spec{mode: modeSimple}
	for _, name := range slices.Sorted(maps.Keys(m)) {
		s.fields = append(s.fields, Field{Name: name, Value: m[name]})
	}
	s.err = s.validateSimple()
	return s
}

// Either returns a spec matching records that match at least one child.
func Either(children ...Spec) Spec {
	return group(modeEither, KeyEither, children)
}

// All returns a spec matching records that match every child.
func All(children ...Spec) Spec {
	return group(modeAll, KeyAll, children)
}

// Not attaches exclusions to an Either or All spec. Records matching any
// of the given specs are excluded. Calling Not on a Simple spec yields an
// invalid spec.
func (s Spec) Not(children ...Spec) Spec {
	if s.err != nil {
		return s
	}
	s.not = append(slices.Clone(s.not), children...)
	if s.mode == modeSimple {
		s.err = &ShapeError{Path: KeyNot, Reason: "only allowed alongside either or all"}
		return s
	}
	s.err = validateList(KeyNot, s.not)
	return s
}

// Err returns the shape error recorded when the spec was built, if any.
func (s Spec) Err() error {
	if s.err != nil {
		return s.err
	}
	if s.mode == modeSimple && len(s.fields) == 0 {
		return &ShapeError{Reason: "spec has no fields and no either/all key"}
	}
	return nil
}

func group(m mode, key string, children []Spec) Spec {
	s := Spec{mode: m, children: children}
	s.err = validateList(key, children)
	return s
}

func validateList(key string, specs []Spec) error {
	if len(specs) == 0 {
		return &ShapeError{Path: key, Reason: "must be a non-empty list"}
	}
	for i, child := range specs {
		if err := child.Err(); err != nil {
			return nest(key+"["+strconv.Itoa(i)+"]", err)
		}
	}
	return nil
}

func (s Spec) validateSimple() error {
	for _, f := range s.fields {
		switch f.Name {
		case "":
			return &ShapeError{Reason: "empty field name"}
		case KeyEither, KeyAll, KeyNot:
			return &ShapeError{Path: f.Name, Reason: "reserved key used as a field name"}
		}
		if f.Value == "" {
			return &ShapeError{Path: f.Name, Reason: "empty match value"}
		}
	}
	return nil
}

// Parse builds a spec from a decoded mapping, such as the result of
// unmarshaling JSON or YAML into map[string]any.
//
// Scalar field values (strings, numbers, booleans) become Simple matches.
// The either, all and not keys must hold lists of mappings.
func Parse(m map[string]any) (Spec, error) {
	s, err := parse(m)
	if err != nil {
		return Spec{}, err
	}
	return s, s.Err()
}

func parse(m map[string]any) (Spec, error) {
	_, hasEither := m[KeyEither]
	_, hasAll := m[KeyAll]
	_, hasNot := m[KeyNot]

	if hasEither && hasAll {
		return Spec{}, &ShapeError{Reason: "either and all cannot be combined at the same level"}
	}

	if !hasEither && !hasAll {
		if hasNot {
			return Spec{}, &ShapeError{Path: KeyNot, Reason: "only allowed alongside either or all"}
		}
		fields := make(map[string]string, len(m))
		for name, v := range m {
			value, err := scalarString(v)
			if err != nil {
				return Spec{}, &ShapeError{Path: name, Reason: err.Error()}
			}
			fields[name] = value
		}
		return Fields(fields), nil
	}

	key := KeyAll
	if hasEither {
		key = KeyEither
	}
	for name := range m {
		if name != key && name != KeyNot {
			return Spec{}, &ShapeError{Path: name, Reason: "field matches cannot be mixed with " + key}
		}
	}

	children, err := parseList(key, m[key])
	if err != nil {
		return Spec{}, err
	}
	var s Spec
	if hasEither {
		s = Either(children...)
	} else {
		s = All(children...)
	}

	if hasNot {
		not, err := parseList(KeyNot, m[KeyNot])
		if err != nil {
			return Spec{}, err
		}
		s = s.Not(not...)
	}
	return s, nil
}

func parseList(key string, v any) ([]Spec, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, &ShapeError{Path: key, Reason: fmt.Sprintf("must be a list, got %T", v)}
	}
	if len(items) == 0 {
		return nil, &ShapeError{Path: key, Reason: "must be a non-empty list"}
	}
	specs := make([]Spec, 0, len(items))
	for i, item := range items {
		path := key + "[" + strconv.Itoa(i) + "]"
		child, ok := item.(map[string]any)
		if !ok {
			return nil, &ShapeError{Path: path, Reason: fmt.Sprintf("must be a mapping, got %T", item)}
		}
		s, err := parse(child)
		if err != nil {
			return nil, nest(path, err)
		}
		if err := s.Err(); err != nil {
			return nil, nest(path, err)
		}
		specs = append(specs, s)
	}
	return specs, nil
}

func scalarString(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("match value must be a scalar, got %T", v)
	}
}
