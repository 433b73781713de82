package domain

// Gender of a passenger
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid reports whether g is one of the accepted genders
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// AgeCategory drives the per-passenger discount
type AgeCategory string

const (
	AgeCategoryAdult  AgeCategory = "adult"
	AgeCategoryChild  AgeCategory = "child"
	AgeCategorySenior AgeCategory = "senior"
)

// AgeCategoryRules maps each category to its discount percentage
var AgeCategoryRules = map[AgeCategory]int{
	AgeCategoryAdult:  0,
	AgeCategoryChild:  50,
	AgeCategorySenior: 40,
}

// DiscountPercent returns the category discount, 0 for unknown categories
func (c AgeCategory) DiscountPercent() int {
	return AgeCategoryRules[c]
}

// Valid reports whether c has a discount rule
func (c AgeCategory) Valid() bool {
	_, ok := AgeCategoryRules[c]
	return ok
}

// Age thresholds for category derivation
const (
	ChildMinAge  = 5
	ChildMaxAge  = 12 // exclusive
	SeniorMinAge = 60
)

// CategoryForAge derives the category from an age
func CategoryForAge(age int) AgeCategory {
	switch {
	case age >= ChildMinAge && age < ChildMaxAge:
		return AgeCategoryChild
	case age >= SeniorMinAge:
		return AgeCategorySenior
	default:
		return AgeCategoryAdult
	}
}

// PassengerEntry is one traveller on a booking draft.
// Age keeps the raw entered text so partial input survives until validation.
type PassengerEntry struct {
	Name        string      `json:"name"`
	Age         string      `json:"age"`
	Gender      Gender      `json:"gender"`
	AgeCategory AgeCategory `json:"age_category"`
	SeatNumber  *int        `json:"seat_number"`
	Berth       Berth       `json:"berth"`
}

// NewPassengerEntry returns a blank adult male entry
func NewPassengerEntry() PassengerEntry {
	return PassengerEntry{
		Gender:      GenderMale,
		AgeCategory: AgeCategoryAdult,
	}
}

// HasSeat reports whether a seat is assigned
func (p *PassengerEntry) HasSeat() bool {
	return p.SeatNumber != nil
}

// ClearSeat releases the seat and berth
func (p *PassengerEntry) ClearSeat() {
	p.SeatNumber = nil
	p.Berth = BerthNone
}

// Clone returns a deep copy
func (p PassengerEntry) Clone() PassengerEntry {
	if p.SeatNumber != nil {
		n := *p.SeatNumber
		p.SeatNumber = &n
	}
	return p
}

// ClonePassengers deep-copies a passenger slice
func ClonePassengers(in []PassengerEntry) []PassengerEntry {
	out := make([]PassengerEntry, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
