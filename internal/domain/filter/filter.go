package filter

import (
	"fmt"
	"sort"
	"strconv"
)

// MaxPredicates is the maximum number of predicates per set.
const MaxPredicates = 32

// Range is a numeric range with gt/gte/lt/lte boundaries. Bounds are
// inclusive unless the query implied a strict one.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRange validates and creates a Range. At least one boundary is
// required; gt/gte and lt/lte are mutually exclusive.
func NewRange(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }

// Contains reports whether v satisfies the range.
func (r Range) Contains(v float64) bool {
	if r.gt != nil && v <= *r.gt {
		return false
	}
	if r.gte != nil && v < *r.gte {
		return false
	}
	if r.lt != nil && v >= *r.lt {
		return false
	}
	if r.lte != nil && v > *r.lte {
		return false
	}
	return true
}

// Predicate is a single constraint on one field: exact value,
// set-membership, numeric range or boolean equality.
type Predicate struct {
	equals  string
	in      []string
	rng     *Range
	boolean *bool
}

// NewEquals creates an exact-value predicate.
func NewEquals(value string) (Predicate, error) {
	if value == "" {
		return Predicate{}, fmt.Errorf("equals value is required")
	}
	return Predicate{equals: value}, nil
}

// NewIn creates a set-membership predicate.
func NewIn(values []string) (Predicate, error) {
	if len(values) == 0 {
		return Predicate{}, fmt.Errorf("at least one membership value is required")
	}
	for _, v := range values {
		if v == "" {
			return Predicate{}, fmt.Errorf("empty membership value")
		}
	}
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	return Predicate{in: sorted}, nil
}

// NewRangePredicate creates a numeric range predicate.
func NewRangePredicate(r Range) Predicate {
	return Predicate{rng: &r}
}

// NewBool creates a boolean equality predicate.
func NewBool(v bool) Predicate {
	return Predicate{boolean: &v}
}

// IsEquals reports whether this is an exact-value predicate.
func (p Predicate) IsEquals() bool { return p.equals != "" }

// IsIn reports whether this is a set-membership predicate.
func (p Predicate) IsIn() bool { return len(p.in) > 0 }

// IsRange reports whether this is a numeric range predicate.
func (p Predicate) IsRange() bool { return p.rng != nil }

// IsBool reports whether this is a boolean equality predicate.
func (p Predicate) IsBool() bool { return p.boolean != nil }

// Equals returns the exact-match value.
func (p Predicate) Equals() string { return p.equals }

// In returns the sorted membership values.
func (p Predicate) In() []string { return p.in }

// Range returns the numeric range.
func (p Predicate) Range() *Range { return p.rng }

// Bool returns the boolean value.
func (p Predicate) Bool() *bool { return p.boolean }

// matches checks one payload value against the predicate. Keyword and
// bool payloads arrive as tag strings, numerics as float64.
func (p Predicate) matches(tag string, numeric float64, isNumeric bool) bool {
	switch {
	case p.IsEquals():
		return tag == p.equals
	case p.IsIn():
		i := sort.SearchStrings(p.in, tag)
		return i < len(p.in) && p.in[i] == tag
	case p.IsBool():
		return tag == strconv.FormatBool(*p.boolean)
	case p.IsRange():
		return isNumeric && p.rng.Contains(numeric)
	}
	return false
}

// Set maps field names to predicates. Predicates combine with logical
// AND; an empty set means no hard filtering.
type Set struct {
	preds map[string]Predicate
}

// NewSet creates an empty predicate set.
func NewSet() Set {
	return Set{preds: make(map[string]Predicate)}
}

// Add sets the predicate for a field, replacing any existing one.
func (s Set) Add(field string, p Predicate) (Set, error) {
	if field == "" {
		return s, fmt.Errorf("predicate field is required")
	}
	if s.preds == nil {
		s.preds = make(map[string]Predicate)
	}
	if _, exists := s.preds[field]; !exists && len(s.preds) >= MaxPredicates {
		return s, fmt.Errorf("too many predicates (max %d)", MaxPredicates)
	}
	s.preds[field] = p
	return s, nil
}

// Get returns the predicate for a field.
func (s Set) Get(field string) (Predicate, bool) {
	p, ok := s.preds[field]
	return p, ok
}

// Fields returns the constrained field names in sorted order, so every
// consumer (query compilation, logging, responses) sees a deterministic
// view of the set.
func (s Set) Fields() []string {
	out := make([]string, 0, len(s.preds))
	for f := range s.preds {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// IsEmpty reports whether the set has no predicates.
func (s Set) IsEmpty() bool { return len(s.preds) == 0 }

// Len returns the number of predicates.
func (s Set) Len() int { return len(s.preds) }

// Matches reports whether a payload satisfies every predicate in the
// set. Used to assert the hard pre-filter invariant in tests.
func (s Set) Matches(tags map[string]string, numerics map[string]float64) bool {
	for field, p := range s.preds {
		if n, ok := numerics[field]; ok {
			if !p.matches("", n, true) {
				return false
			}
			continue
		}
		if !p.matches(tags[field], 0, false) {
			return false
		}
	}
	return true
}
