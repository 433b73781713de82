package dto

import (
	"strings"
	"time"

	"github.com/prohmpiriya/rail-booking/internal/domain"
	"github.com/prohmpiriya/rail-booking/internal/workflow"
)

// PaymentMethodRequest represents request to choose a payment method
type PaymentMethodRequest struct {
	Method string `json:"method" binding:"required"`
}

// PaymentDetailsRequest carries the method-specific entry fields. Only the
// fields of Method are read.
type PaymentDetailsRequest struct {
	Method     string `json:"method" binding:"required"`
	CardNumber string `json:"card_number,omitempty"`
	NameOnCard string `json:"name_on_card,omitempty"`
	ExpiryDate string `json:"expiry_date,omitempty"`
	CVV        string `json:"cvv,omitempty"`
	UPIID      string `json:"upi_id,omitempty"`
	Bank       string `json:"bank,omitempty"`
}

// ToDetails converts the request into the details of its method
func (r *PaymentDetailsRequest) ToDetails() (domain.PaymentDetails, error) {
	switch domain.PaymentMethod(r.Method) {
	case domain.PaymentMethodCard:
		return domain.CardDetails{
			CardNumber: r.CardNumber,
			NameOnCard: r.NameOnCard,
			ExpiryDate: r.ExpiryDate,
			CVV:        r.CVV,
		}, nil
	case domain.PaymentMethodUPI:
		return domain.UPIDetails{UPIID: r.UPIID}, nil
	case domain.PaymentMethodNetBanking:
		return domain.NetBankingDetails{Bank: r.Bank}, nil
	}
	return nil, domain.NewValidationError("Unsupported payment method",
		domain.FieldError{Field: "method", Message: "Unsupported payment method"})
}

// OTPRequest represents the OTP dialog submission
type OTPRequest struct {
	OTP string `json:"otp"`
}

// PaymentResponse is the payment side of the session view
type PaymentResponse struct {
	Stage        string                `json:"stage"`
	BookingID    string                `json:"booking_id"`
	Amount       int64                 `json:"amount"`
	Method       string                `json:"method"`
	Details      map[string]string     `json:"details"`
	FieldErrors  map[string]string     `json:"field_errors,omitempty"`
	RequiresOTP  bool                  `json:"requires_otp"`
	Confirmation *ConfirmationResponse `json:"confirmation,omitempty"`
}

// ConfirmationResponse is the finalized booking
type ConfirmationResponse struct {
	BookingID     string              `json:"booking_id"`
	PNR           string              `json:"pnr"`
	PaymentID     string              `json:"payment_id"`
	Method        string              `json:"method"`
	Amount        int64               `json:"amount"`
	Train         *TrainResponse      `json:"train"`
	SelectedClass string              `json:"selected_class"`
	JourneyDate   string              `json:"journey_date"`
	Passengers    []PassengerResponse `json:"passengers"`
	Fare          FareResponse        `json:"fare"`
	ConfirmedAt   time.Time           `json:"confirmed_at"`
}

// ConfirmResponse is returned by confirm and OTP submission. Confirmation
// is nil while an OTP challenge is pending.
type ConfirmResponse struct {
	Stage        string                `json:"stage"`
	RequiresOTP  bool                  `json:"requires_otp"`
	Confirmation *ConfirmationResponse `json:"confirmation,omitempty"`
}

// ConfirmationFromDomain converts a confirmation
func ConfirmationFromDomain(c *domain.Confirmation) *ConfirmationResponse {
	if c == nil {
		return nil
	}
	train := c.Train
	return &ConfirmationResponse{
		BookingID:     c.BookingID,
		PNR:           c.PNR,
		PaymentID:     c.PaymentID,
		Method:        string(c.Method),
		Amount:        c.Amount,
		Train:         TrainFromDomain(&train),
		SelectedClass: c.SelectedClass,
		JourneyDate:   c.JourneyDate,
		Passengers:    PassengersFromDomain(c.Passengers),
		Fare:          FareFromDomain(c.Fare),
		ConfirmedAt:   c.ConfirmedAt,
	}
}

// PaymentFromDomain converts a payment snapshot. Card secrets never leave
// the process: the number is masked and the CVV dropped.
func PaymentFromDomain(p workflow.PaymentSnapshot) *PaymentResponse {
	details := map[string]string{}
	if p.Draft.Details != nil {
		for k, v := range p.Draft.Details.Fields() {
			switch k {
			case "cvv":
				continue
			case "card_number":
				v = MaskCardNumber(v)
			}
			details[k] = v
		}
	}

	resp := &PaymentResponse{
		Stage:        string(p.Stage),
		BookingID:    p.BookingID,
		Amount:       p.Amount,
		Method:       string(p.Draft.Method),
		Details:      details,
		RequiresOTP:  p.Draft.Method.RequiresOTP(),
		Confirmation: ConfirmationFromDomain(p.Confirmation),
	}
	if len(p.FieldErrors) > 0 {
		resp.FieldErrors = p.FieldErrors
	}
	return resp
}

// MaskCardNumber keeps the last four digits
func MaskCardNumber(number string) string {
	digits := strings.ReplaceAll(number, " ", "")
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}
