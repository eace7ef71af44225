package vocab

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Type is the declared type of a filterable field.
type Type string

// Field type constants.
const (
	// Keyword fields support exact and set-membership matching over an
	// enumerated value domain observed in the corpus.
	Keyword Type = "keyword"
	Integer Type = "integer"
	Bool    Type = "bool"
)

// MaxFieldNameLen bounds vocabulary field names.
const MaxFieldNameLen = 64

// Field is an immutable vocabulary entry: a filterable field, its type,
// and (for keyword fields) the sorted set of observed values.
type Field struct {
	name      string
	fieldType Type
	values    []string
}

// NewField validates and creates a vocabulary field. Values are sorted
// and deduplicated; non-keyword fields must not carry values.
func NewField(name string, ft Type, values []string) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if len(name) > MaxFieldNameLen {
		return Field{}, fmt.Errorf("field name %q too long (max %d)", name, MaxFieldNameLen)
	}
	if ft != Keyword && ft != Integer && ft != Bool {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	if ft != Keyword && len(values) > 0 {
		return Field{}, fmt.Errorf("field %q of type %s cannot enumerate values", name, ft)
	}
	return Field{name: name, fieldType: ft, values: dedupe(values)}, nil
}

// Reconstruct creates a Field without validation (storage hydration).
func Reconstruct(name string, ft Type, values []string) Field {
	return Field{name: name, fieldType: ft, values: values}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the declared type.
func (f Field) FieldType() Type { return f.fieldType }

// Values returns the sorted observed value domain (keyword fields only).
func (f Field) Values() []string { return f.values }

// Allows reports whether a synthesized value is inside the field's
// domain. Keyword fields with an empty observed set accept any value;
// bool fields accept only "true"/"false"; integer values are range
// constrained and not checked here.
func (f Field) Allows(value string) bool {
	switch f.fieldType {
	case Bool:
		return value == "true" || value == "false"
	case Integer:
		return true
	default:
		if len(f.values) == 0 {
			return true
		}
		i := sort.SearchStrings(f.values, value)
		return i < len(f.values) && f.values[i] == value
	}
}

// Bucket is a named suggested price range. Max == 0 means unbounded.
type Bucket struct {
	Label string
	Min   int
	Max   int
}

// PriceStats holds the observed price extremes and suggested buckets.
type PriceStats struct {
	Min     int
	Max     int
	Buckets []Bucket
}

// DefaultBuckets returns the suggested price ranges used when a query
// names a vague amount rather than an explicit bound.
func DefaultBuckets() []Bucket {
	return []Bucket{
		{Label: "Budget", Min: 0, Max: 500},
		{Label: "Economy", Min: 500, Max: 1000},
		{Label: "Mid-range", Min: 1000, Max: 2000},
		{Label: "Premium", Min: 2000, Max: 5000},
		{Label: "Luxury", Min: 5000, Max: 0},
	}
}

// BucketFor returns the suggested bucket containing amount.
func (p PriceStats) BucketFor(amount int) (Bucket, bool) {
	for _, b := range p.Buckets {
		if amount >= b.Min && (b.Max == 0 || amount < b.Max) {
			return b, true
		}
	}
	return Bucket{}, false
}

// Vocabulary is the enumerated set of filterable fields and their legal
// value domains, derived from the corpus. Every predicate the filter
// synthesizer emits must name a field that exists here with a matching
// type.
type Vocabulary struct {
	fields []Field
	byName map[string]Field
	price  PriceStats
}

// New validates and creates a Vocabulary. Field names must be unique.
func New(fields []Field, price PriceStats) (Vocabulary, error) {
	byName := make(map[string]Field, len(fields))
	for _, f := range fields {
		if _, dup := byName[f.name]; dup {
			return Vocabulary{}, fmt.Errorf("duplicate vocabulary field %q", f.name)
		}
		byName[f.name] = f
	}
	ordered := make([]Field, len(fields))
	copy(ordered, fields)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].name < ordered[j].name })
	return Vocabulary{fields: ordered, byName: byName, price: price}, nil
}

// Fields returns the vocabulary fields sorted by name.
func (v Vocabulary) Fields() []Field { return v.fields }

// FieldByName looks up a field by name.
func (v Vocabulary) FieldByName(name string) (Field, bool) {
	f, ok := v.byName[name]
	return f, ok
}

// Price returns the price statistics.
func (v Vocabulary) Price() PriceStats { return v.price }

// IsEmpty reports whether the vocabulary has no fields.
func (v Vocabulary) IsEmpty() bool { return len(v.fields) == 0 }

// PromptJSON renders the vocabulary as compact JSON for inclusion in
// the filter synthesizer prompt.
func (v Vocabulary) PromptJSON() (string, error) {
	type promptField struct {
		Type   Type     `json:"type"`
		Values []string `json:"values,omitempty"`
	}
	type promptBucket struct {
		Label string `json:"label"`
		Min   int    `json:"min"`
		Max   int    `json:"max,omitempty"`
	}
	out := struct {
		Fields       map[string]promptField `json:"fields"`
		PriceMin     int                    `json:"price_min"`
		PriceMax     int                    `json:"price_max"`
		PriceBuckets []promptBucket         `json:"price_buckets"`
	}{
		Fields:   make(map[string]promptField, len(v.fields)),
		PriceMin: v.price.Min,
		PriceMax: v.price.Max,
	}
	for _, f := range v.fields {
		out.Fields[f.name] = promptField{Type: f.fieldType, Values: f.values}
	}
	for _, b := range v.price.Buckets {
		out.PriceBuckets = append(out.PriceBuckets, promptBucket(b))
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal vocabulary: %w", err)
	}
	return string(data), nil
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
