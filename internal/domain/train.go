package domain

// TrainOffering is an immutable catalog entry with per-class price and seat tables
type TrainOffering struct {
	ID            string           `json:"id"`
	TrainNumber   string           `json:"train_number"`
	Name          string           `json:"name"`
	Source        string           `json:"source"`
	Destination   string           `json:"destination"`
	DepartureTime string           `json:"departure_time"`
	ArrivalTime   string           `json:"arrival_time"`
	Duration      string           `json:"duration"`
	RunsOn        []string         `json:"runs_on"`
	Classes       []string         `json:"classes"`
	PriceByClass  map[string]int64 `json:"price_by_class"`
	SeatsByClass  map[string]int   `json:"seats_by_class"`
}

// Offers reports whether class is sold on this train
func (t *TrainOffering) Offers(class string) bool {
	for _, c := range t.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// Price returns the per-passenger base fare for class
func (t *TrainOffering) Price(class string) (int64, bool) {
	if !t.Offers(class) {
		return 0, false
	}
	p, ok := t.PriceByClass[class]
	return p, ok
}

// SeatCount returns the seat inventory size for class
func (t *TrainOffering) SeatCount(class string) int {
	if !t.Offers(class) {
		return 0
	}
	return t.SeatsByClass[class]
}

// DefaultClass is the first class in catalog order
func (t *TrainOffering) DefaultClass() string {
	if len(t.Classes) == 0 {
		return ""
	}
	return t.Classes[0]
}
