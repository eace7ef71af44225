package vocab

import "sort"

// FieldPriceUSD is the numeric price field shared by the fixed schema,
// the payload indexes and the synthesizer's range heuristics.
const FieldPriceUSD = "price_usd"

// schemaTypes is the fixed filterable-field schema. Keyword value
// domains are filled in from the corpus at ingestion time.
var schemaTypes = map[string]Type{
	"airline":          Keyword,
	"alliance":         Keyword,
	"from_country":     Keyword,
	"to_country":       Keyword,
	"travel_class":     Keyword,
	"meal_service":     Keyword,
	"aircraft_type":    Keyword,
	"document_type":    Keyword,
	FieldPriceUSD:      Integer,
	"refundable":       Bool,
	"baggage_included": Bool,
	"wifi_available":   Bool,
}

// SchemaType returns the declared type of a fixed-schema field.
func SchemaType(name string) (Type, bool) {
	t, ok := schemaTypes[name]
	return t, ok
}

// SchemaFieldNames returns the fixed-schema field names sorted.
func SchemaFieldNames() []string {
	names := make([]string, 0, len(schemaTypes))
	for name := range schemaTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build derives a Vocabulary from corpus observations: the distinct
// values seen per keyword field and the observed price range. Fields of
// the fixed schema absent from observations are still emitted (with an
// open value domain) so their payload indexes get provisioned.
func Build(observed map[string][]string, prices []int) (Vocabulary, error) {
	fields := make([]Field, 0, len(schemaTypes))
	for name, ft := range schemaTypes {
		var values []string
		if ft == Keyword {
			values = observed[name]
		}
		f, err := NewField(name, ft, values)
		if err != nil {
			return Vocabulary{}, err
		}
		fields = append(fields, f)
	}

	stats := PriceStats{Buckets: DefaultBuckets()}
	for i, p := range prices {
		if i == 0 || p < stats.Min {
			stats.Min = p
		}
		if p > stats.Max {
			stats.Max = p
		}
	}

	return New(fields, stats)
}
