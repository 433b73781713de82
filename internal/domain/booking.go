package domain

// BookingDraft is the in-progress booking owned by one workflow session
type BookingDraft struct {
	Train         *TrainOffering   `json:"train"`
	SelectedClass string           `json:"selected_class"`
	JourneyDate   string           `json:"journey_date"`
	Passengers    []PassengerEntry `json:"passengers"`
}

// FareSummary is derived from a draft on demand and never stored
type FareSummary struct {
	TotalBaseFare  int64 `json:"total_base_fare"`
	DiscountedFare int64 `json:"discounted_fare"`
	GSTAmount      int64 `json:"gst_amount"`
	TotalPayable   int64 `json:"total_payable"`
}

// BookingConfirmationRequest is the immutable hand-off from booking to payment
type BookingConfirmationRequest struct {
	BookingID     string           `json:"booking_id"`
	Train         TrainOffering    `json:"train"`
	SelectedClass string           `json:"selected_class"`
	JourneyDate   string           `json:"journey_date"`
	Passengers    []PassengerEntry `json:"passengers"`
	Fare          FareSummary      `json:"fare"`
}

// TotalPayable is the amount the payment step must collect
func (r *BookingConfirmationRequest) TotalPayable() int64 {
	return r.Fare.TotalPayable
}
