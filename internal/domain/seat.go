package domain

// Berth is the bunk position of a sleeper or AC seat
type Berth string

const (
	BerthNone   Berth = ""
	BerthLower  Berth = "Lower"
	BerthMiddle Berth = "Middle"
	BerthUpper  Berth = "Upper"
)

// SeatRecord is one seat in a class inventory
type SeatRecord struct {
	Number    int    `json:"number"`
	Code      string `json:"code"`
	Berth     Berth  `json:"berth,omitempty"`
	Available bool   `json:"available"`
}

// SeatMap is the availability snapshot taken when a class is selected
type SeatMap struct {
	Class string       `json:"class"`
	Seats []SeatRecord `json:"seats"`
}

// Lookup finds a seat by number
func (m *SeatMap) Lookup(number int) (SeatRecord, bool) {
	if m == nil || number < 1 || number > len(m.Seats) {
		return SeatRecord{}, false
	}
	// Seats are numbered 1..n in order
	s := m.Seats[number-1]
	return s, s.Number == number
}

// AvailableCount counts seats drawn as available
func (m *SeatMap) AvailableCount() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, s := range m.Seats {
		if s.Available {
			n++
		}
	}
	return n
}
