package travel

import (
	"fmt"
	"strconv"
	"strings"
)

// Document type constants for policy content.
const (
	DocTypeVisaRules    = "visa_rules"
	DocTypeRefundPolicy = "refund_policy"
	DocTypeFlight       = "flight"
)

// Layover is a single stop on a multi-leg flight.
type Layover struct {
	City          string  `json:"city"`
	Airport       string  `json:"airport"`
	DurationHours float64 `json:"duration_hours"`
}

// Flight is an immutable corpus entity describing one bookable flight.
// Created during corpus generation, never mutated at query time.
type Flight struct {
	FlightID               string    `json:"flight_id"`
	Airline                string    `json:"airline"`
	Alliance               string    `json:"alliance"`
	From                   string    `json:"from"`
	FromAirport            string    `json:"from_airport"`
	FromCountry            string    `json:"from_country"`
	To                     string    `json:"to"`
	ToAirport              string    `json:"to_airport"`
	ToCountry              string    `json:"to_country"`
	DepartureDate          string    `json:"departure_date"`
	ReturnDate             string    `json:"return_date"`
	TravelClass            string    `json:"travel_class"`
	Layovers               []Layover `json:"layovers"`
	LayoverDurationHours   float64   `json:"layover_duration_hours"`
	PriceUSD               int       `json:"price_usd"`
	Refundable             bool      `json:"refundable"`
	CancellationFeePercent int       `json:"cancellation_fee_percent"`
	BaggageIncluded        bool      `json:"baggage_included"`
	WifiAvailable          bool      `json:"wifi_available"`
	MealService            string    `json:"meal_service"`
	FlightDurationHours    int       `json:"flight_duration_hours"`
	AircraftType           string    `json:"aircraft_type"`
	Availability           int       `json:"availability"`
}

// Validate checks the invariants a corpus flight must satisfy.
func (f Flight) Validate() error {
	if f.FlightID == "" {
		return fmt.Errorf("flight_id is required")
	}
	if f.Airline == "" {
		return fmt.Errorf("flight %s: airline is required", f.FlightID)
	}
	if f.PriceUSD <= 0 {
		return fmt.Errorf("flight %s: price_usd must be positive", f.FlightID)
	}
	switch f.TravelClass {
	case "economy", "premium_economy", "business", "first":
	default:
		return fmt.Errorf("flight %s: invalid travel_class %q", f.FlightID, f.TravelClass)
	}
	return nil
}

// Content renders the flight as retrievable prose: the text that gets
// embedded and matched lexically.
func (f Flight) Content() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s flight %s from %s (%s, %s) to %s (%s, %s), %s class, $%d.",
		f.Airline, f.FlightID,
		f.From, f.FromAirport, f.FromCountry,
		f.To, f.ToAirport, f.ToCountry,
		strings.ReplaceAll(f.TravelClass, "_", " "), f.PriceUSD)
	fmt.Fprintf(&b, " Departs %s, returns %s.", f.DepartureDate, f.ReturnDate)
	if len(f.Layovers) == 0 {
		b.WriteString(" Direct flight.")
	} else {
		stops := make([]string, len(f.Layovers))
		for i, l := range f.Layovers {
			stops[i] = fmt.Sprintf("%s (%s, %.1fh)", l.City, l.Airport, l.DurationHours)
		}
		fmt.Fprintf(&b, " Layovers: %s.", strings.Join(stops, ", "))
	}
	fmt.Fprintf(&b, " Alliance: %s. Aircraft: %s. Meal service: %s.",
		f.Alliance, f.AircraftType, f.MealService)
	if f.Refundable {
		fmt.Fprintf(&b, " Refundable with %d%% cancellation fee.", f.CancellationFeePercent)
	} else {
		b.WriteString(" Non-refundable.")
	}
	if f.BaggageIncluded {
		b.WriteString(" Baggage included.")
	}
	if f.WifiAvailable {
		b.WriteString(" WiFi available.")
	}
	fmt.Fprintf(&b, " %d seats available.", f.Availability)
	return b.String()
}

// Tags returns the keyword and bool payload fields for indexing.
func (f Flight) Tags() map[string]string {
	return map[string]string{
		"airline":          f.Airline,
		"alliance":         f.Alliance,
		"from_country":     f.FromCountry,
		"to_country":       f.ToCountry,
		"travel_class":     f.TravelClass,
		"meal_service":     f.MealService,
		"aircraft_type":    f.AircraftType,
		"document_type":    DocTypeFlight,
		"refundable":       strconv.FormatBool(f.Refundable),
		"baggage_included": strconv.FormatBool(f.BaggageIncluded),
		"wifi_available":   strconv.FormatBool(f.WifiAvailable),
	}
}

// Numerics returns the numeric payload fields for indexing.
func (f Flight) Numerics() map[string]float64 {
	return map[string]float64{
		"price_usd": float64(f.PriceUSD),
	}
}

// PolicyChunk is one retrievable unit of a policy document, produced by
// ingestion-time chunking.
type PolicyChunk struct {
	ID           string
	DocumentType string
	Content      string
}

// Validate checks the invariants a policy chunk must satisfy.
func (c PolicyChunk) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("chunk id is required")
	}
	if c.Content == "" {
		return fmt.Errorf("chunk %s: content is required", c.ID)
	}
	switch c.DocumentType {
	case DocTypeVisaRules, DocTypeRefundPolicy:
	default:
		return fmt.Errorf("chunk %s: invalid document_type %q", c.ID, c.DocumentType)
	}
	return nil
}

// Tags returns the keyword payload fields for indexing.
func (c PolicyChunk) Tags() map[string]string {
	return map[string]string{"document_type": c.DocumentType}
}
