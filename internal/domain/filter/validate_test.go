package filter

import (
	"strings"
	"testing"

	"github.com/jetkart/jetkart/internal/domain/vocab"
)

func testVocab(t *testing.T) vocab.Vocabulary {
	t.Helper()
	airline, err := vocab.NewField("airline", vocab.Keyword, []string{"Emirates", "Lufthansa", "Qatar Airways"})
	if err != nil {
		t.Fatalf("vocab field: %v", err)
	}
	price, err := vocab.NewField("price_usd", vocab.Integer, nil)
	if err != nil {
		t.Fatalf("vocab field: %v", err)
	}
	refundable, err := vocab.NewField("refundable", vocab.Bool, nil)
	if err != nil {
		t.Fatalf("vocab field: %v", err)
	}
	v, err := vocab.New([]vocab.Field{airline, price, refundable}, vocab.PriceStats{
		Min: 200, Max: 4000, Buckets: vocab.DefaultBuckets(),
	})
	if err != nil {
		t.Fatalf("vocab: %v", err)
	}
	return v
}

// --- Tests ---

func TestValidate_KeepsConformingPredicates(t *testing.T) {
	v := testVocab(t)
	s := NewSet()
	eq, _ := NewEquals("Emirates")
	s, _ = s.Add("airline", eq)
	rng, _ := NewRange(nil, floatPtr(500), floatPtr(1000), nil)
	s, _ = s.Add("price_usd", NewRangePredicate(rng))
	s, _ = s.Add("refundable", NewBool(true))

	valid, dropped := Validate(s, v)
	if len(dropped) != 0 {
		t.Fatalf("dropped = %v, want none", dropped)
	}
	if valid.Len() != 3 {
		t.Errorf("Len() = %d, want 3", valid.Len())
	}
}

func TestValidate_DropsUnknownField(t *testing.T) {
	v := testVocab(t)
	s := NewSet()
	eq, _ := NewEquals("morning")
	s, _ = s.Add("departure_window", eq)

	valid, dropped := Validate(s, v)
	if !valid.IsEmpty() {
		t.Error("valid set should be empty")
	}
	if len(dropped) != 1 || dropped[0].Field != "departure_window" {
		t.Fatalf("dropped = %v", dropped)
	}
	if !strings.Contains(dropped[0].Reason, "unknown field") {
		t.Errorf("Reason = %q", dropped[0].Reason)
	}
}

func TestValidate_DropsOutOfDomainValue(t *testing.T) {
	v := testVocab(t)
	s := NewSet()
	eq, _ := NewEquals("Ryanair")
	s, _ = s.Add("airline", eq)

	valid, dropped := Validate(s, v)
	if !valid.IsEmpty() {
		t.Error("valid set should be empty")
	}
	if len(dropped) != 1 || !strings.Contains(dropped[0].Reason, "not in field domain") {
		t.Fatalf("dropped = %v", dropped)
	}
}

func TestValidate_TrimsMembershipToDomain(t *testing.T) {
	v := testVocab(t)
	s := NewSet()
	in, _ := NewIn([]string{"Emirates", "Ryanair", "Lufthansa"})
	s, _ = s.Add("airline", in)

	valid, dropped := Validate(s, v)
	if len(dropped) != 0 {
		t.Fatalf("dropped = %v, want none", dropped)
	}
	p, ok := valid.Get("airline")
	if !ok {
		t.Fatal("airline predicate missing")
	}
	got := p.In()
	if len(got) != 2 || got[0] != "Emirates" || got[1] != "Lufthansa" {
		t.Errorf("In() = %v, want trimmed to domain", got)
	}
}

func TestValidate_DropsMembershipWhenNothingSurvives(t *testing.T) {
	v := testVocab(t)
	s := NewSet()
	in, _ := NewIn([]string{"Ryanair", "EasyJet"})
	s, _ = s.Add("airline", in)

	valid, dropped := Validate(s, v)
	if !valid.IsEmpty() {
		t.Error("valid set should be empty")
	}
	if len(dropped) != 1 || !strings.Contains(dropped[0].Reason, "no values") {
		t.Fatalf("dropped = %v", dropped)
	}
}

func TestValidate_DropsTypeMismatch(t *testing.T) {
	v := testVocab(t)
	s := NewSet()

	// Equals on an integer field.
	eq, _ := NewEquals("1000")
	s, _ = s.Add("price_usd", eq)
	// Range on a bool field.
	rng, _ := NewRange(nil, floatPtr(0), nil, nil)
	s, _ = s.Add("refundable", NewRangePredicate(rng))
	// Bool on a keyword field.
	s, _ = s.Add("airline", NewBool(true))

	valid, dropped := Validate(s, v)
	if !valid.IsEmpty() {
		t.Errorf("valid set should be empty, got %v", valid.Fields())
	}
	if len(dropped) != 3 {
		t.Fatalf("dropped = %v, want 3 entries", dropped)
	}
}

func TestValidate_DroppedOrderIsDeterministic(t *testing.T) {
	v := testVocab(t)
	s := NewSet()
	eq, _ := NewEquals("x")
	s, _ = s.Add("zeta_field", eq)
	s, _ = s.Add("alpha_field", eq)

	for i := 0; i < 20; i++ {
		_, dropped := Validate(s, v)
		if len(dropped) != 2 || dropped[0].Field != "alpha_field" || dropped[1].Field != "zeta_field" {
			t.Fatalf("run %d: dropped = %v", i, dropped)
		}
	}
}

func TestValidate_Idempotent(t *testing.T) {
	v := testVocab(t)
	s := NewSet()
	in, _ := NewIn([]string{"Emirates", "Ryanair"})
	s, _ = s.Add("airline", in)
	eq, _ := NewEquals("x")
	s, _ = s.Add("unknown", eq)

	first, dropped := Validate(s, v)
	if len(dropped) != 1 {
		t.Fatalf("dropped = %v, want 1", dropped)
	}
	second, droppedAgain := Validate(first, v)
	if len(droppedAgain) != 0 {
		t.Errorf("re-validation dropped %v, want none", droppedAgain)
	}
	if second.Len() != first.Len() {
		t.Errorf("re-validation changed set size: %d != %d", second.Len(), first.Len())
	}
}

func TestValidate_EmptySet(t *testing.T) {
	v := testVocab(t)
	valid, dropped := Validate(NewSet(), v)
	if !valid.IsEmpty() || len(dropped) != 0 {
		t.Errorf("Validate(empty) = %v, %v", valid.Fields(), dropped)
	}
}
