package filter

import (
	"fmt"

	"github.com/jetkart/jetkart/internal/domain/vocab"
)

// Dropped records a predicate removed during validation and why. A
// dropped predicate degrades the filter, it never fails the query.
type Dropped struct {
	Field  string
	Reason string
}

// Validate checks every predicate against the vocabulary and returns
// the valid subset plus the dropped entries. An unknown field, a
// type-mismatched predicate or an out-of-domain value is dropped, not
// passed through. Validation is idempotent: re-validating its own
// output against the same vocabulary drops nothing further.
func Validate(s Set, v vocab.Vocabulary) (Set, []Dropped) {
	valid := NewSet()
	var dropped []Dropped

	for _, name := range s.Fields() {
		p, _ := s.Get(name)

		f, ok := v.FieldByName(name)
		if !ok {
			dropped = append(dropped, Dropped{Field: name, Reason: "unknown field"})
			continue
		}

		kept, reason := checkPredicate(p, f)
		if reason != "" {
			dropped = append(dropped, Dropped{Field: name, Reason: reason})
			continue
		}
		valid, _ = valid.Add(name, kept)
	}

	return valid, dropped
}

// checkPredicate validates one predicate against its vocabulary field.
// For set-membership predicates, out-of-domain values are trimmed; the
// predicate survives as long as one value remains.
func checkPredicate(p Predicate, f vocab.Field) (Predicate, string) {
	switch f.FieldType() {
	case vocab.Keyword:
		switch {
		case p.IsEquals():
			if !f.Allows(p.Equals()) {
				return Predicate{}, fmt.Sprintf("value %q not in field domain", p.Equals())
			}
			return p, ""
		case p.IsIn():
			kept := make([]string, 0, len(p.In()))
			for _, val := range p.In() {
				if f.Allows(val) {
					kept = append(kept, val)
				}
			}
			if len(kept) == 0 {
				return Predicate{}, "no values in field domain"
			}
			trimmed, err := NewIn(kept)
			if err != nil {
				return Predicate{}, err.Error()
			}
			return trimmed, ""
		default:
			return Predicate{}, "keyword field requires exact or set-membership match"
		}

	case vocab.Integer:
		if !p.IsRange() {
			return Predicate{}, "integer field requires a numeric range"
		}
		return p, ""

	case vocab.Bool:
		if !p.IsBool() {
			return Predicate{}, "bool field requires boolean equality"
		}
		return p, ""
	}

	return Predicate{}, fmt.Sprintf("unsupported field type %q", f.FieldType())
}
