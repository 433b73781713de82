package workflow

import (
	"context"
	"sync"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

func testTrain() *domain.TrainOffering {
	return &domain.TrainOffering{
		ID:            "1",
		TrainNumber:   "EXP1234",
		Name:          "Rajdhani Express",
		Source:        "New Delhi",
		Destination:   "Mumbai Central",
		DepartureTime: "16:35",
		ArrivalTime:   "08:15",
		Duration:      "15h 40m",
		RunsOn:        []string{"Mon", "Wed", "Fri"},
		Classes:       []string{"1A", "2A", "3A", "SL"},
		PriceByClass:  map[string]int64{"1A": 3200, "2A": 1900, "3A": 1200, "SL": 650},
		SeatsByClass:  map[string]int{"1A": 12, "2A": 24, "3A": 45, "SL": 110},
	}
}

func chairCarTrain() *domain.TrainOffering {
	return &domain.TrainOffering{
		ID:           "2",
		TrainNumber:  "SF5678",
		Name:         "Shatabdi Express",
		Classes:      []string{"CC", "EC"},
		PriceByClass: map[string]int64{"CC": 1500, "EC": 2800},
		SeatsByClass: map[string]int{"CC": 65, "EC": 30},
	}
}

// constSource returns the same draw every time
type constSource float64

func (s constSource) Float64() float64 { return float64(s) }

// allAvailable marks every seat available
const allAvailable = constSource(0.9)

// seqSource replays draws in order, then repeats the last one
type seqSource struct {
	draws []float64
	i     int
}

func (s *seqSource) Float64() float64 {
	if s.i >= len(s.draws) {
		return s.draws[len(s.draws)-1]
	}
	v := s.draws[s.i]
	s.i++
	return v
}

type fixedIDs struct{}

func (fixedIDs) BookingID() string { return "1234567890" }
func (fixedIDs) PNR() string       { return "PNR00000042" }
func (fixedIDs) PaymentID() string { return "PAY0000000042" }

// stubGateway records calls and can block or fail on demand
type stubGateway struct {
	mu sync.Mutex

	SettleFunc    func(ctx context.Context, req *domain.SettlementRequest) (*domain.SettlementResult, error)
	VerifyOTPFunc func(ctx context.Context, req *domain.OTPVerification) error

	settleCalls int
	verifyCalls int
}

func (g *stubGateway) Settle(ctx context.Context, req *domain.SettlementRequest) (*domain.SettlementResult, error) {
	g.mu.Lock()
	g.settleCalls++
	g.mu.Unlock()
	if g.SettleFunc != nil {
		return g.SettleFunc(ctx, req)
	}
	return &domain.SettlementResult{Reference: "REF-" + req.BookingID}, nil
}

func (g *stubGateway) VerifyOTP(ctx context.Context, req *domain.OTPVerification) error {
	g.mu.Lock()
	g.verifyCalls++
	g.mu.Unlock()
	if g.VerifyOTPFunc != nil {
		return g.VerifyOTPFunc(ctx, req)
	}
	return nil
}

func (g *stubGateway) calls() (settle, verify int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settleCalls, g.verifyCalls
}

func newTestBooking(class string) (*BookingController, error) {
	return NewBookingController(testTrain(), class, "2026-11-02", &BookingControllerConfig{
		Seats: allAvailable,
		IDs:   fixedIDs{},
	})
}

// fillPassenger enters valid details for passenger i
func fillPassenger(c *BookingController, i int, name, age string) error {
	if err := c.UpdatePassenger(i, FieldName, name); err != nil {
		return err
	}
	if err := c.UpdatePassenger(i, FieldAge, age); err != nil {
		return err
	}
	return c.UpdatePassenger(i, FieldGender, string(domain.GenderFemale))
}

// submittedRequest builds a hand-off request for two passengers in 2A
func submittedRequest() *domain.BookingConfirmationRequest {
	seat1, seat2 := 1, 2
	return &domain.BookingConfirmationRequest{
		BookingID:     "1234567890",
		Train:         *testTrain(),
		SelectedClass: "2A",
		JourneyDate:   "2026-11-02",
		Passengers: []domain.PassengerEntry{
			{Name: "Asha Rao", Age: "34", Gender: domain.GenderFemale, AgeCategory: domain.AgeCategoryAdult, SeatNumber: &seat1, Berth: domain.BerthLower},
			{Name: "Ravi Rao", Age: "36", Gender: domain.GenderMale, AgeCategory: domain.AgeCategoryAdult, SeatNumber: &seat2, Berth: domain.BerthMiddle},
		},
		Fare: domain.FareSummary{TotalBaseFare: 3800, DiscountedFare: 3800, GSTAmount: 190, TotalPayable: 3990},
	}
}
