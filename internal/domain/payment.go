package domain

import "time"

// PaymentMethod is the chosen payment instrument
type PaymentMethod string

const (
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodNetBanking PaymentMethod = "netbanking"
)

// Valid reports whether m is a supported method
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodUPI, PaymentMethodNetBanking:
		return true
	}
	return false
}

// RequiresOTP reports whether settlement is followed by an OTP challenge
func (m PaymentMethod) RequiresOTP() bool {
	return m == PaymentMethodCard || m == PaymentMethodNetBanking
}

// Banks is the fixed list of net banking institutions
var Banks = []string{
	"State Bank of India",
	"HDFC Bank",
	"ICICI Bank",
	"Axis Bank",
	"Punjab National Bank",
	"Bank of Baroda",
	"Kotak Mahindra Bank",
	"Yes Bank",
}

// PaymentDetails is the method-specific part of a payment draft.
// Exactly one implementation exists per PaymentMethod.
type PaymentDetails interface {
	Method() PaymentMethod
	// Fields returns the entered values keyed by field name
	Fields() map[string]string
}

// CardDetails holds card entry fields
type CardDetails struct {
	CardNumber string `json:"card_number"`
	NameOnCard string `json:"name_on_card"`
	ExpiryDate string `json:"expiry_date"`
	CVV        string `json:"cvv"`
}

func (CardDetails) Method() PaymentMethod { return PaymentMethodCard }

func (d CardDetails) Fields() map[string]string {
	return map[string]string{
		"card_number":  d.CardNumber,
		"name_on_card": d.NameOnCard,
		"expiry_date":  d.ExpiryDate,
		"cvv":          d.CVV,
	}
}

// UPIDetails holds the UPI virtual payment address
type UPIDetails struct {
	UPIID string `json:"upi_id"`
}

func (UPIDetails) Method() PaymentMethod { return PaymentMethodUPI }

func (d UPIDetails) Fields() map[string]string {
	return map[string]string{"upi_id": d.UPIID}
}

// NetBankingDetails holds the chosen bank
type NetBankingDetails struct {
	Bank string `json:"bank"`
}

func (NetBankingDetails) Method() PaymentMethod { return PaymentMethodNetBanking }

func (d NetBankingDetails) Fields() map[string]string {
	return map[string]string{"bank": d.Bank}
}

// EmptyDetails returns the zero details for a method
func EmptyDetails(m PaymentMethod) PaymentDetails {
	switch m {
	case PaymentMethodUPI:
		return UPIDetails{}
	case PaymentMethodNetBanking:
		return NetBankingDetails{}
	default:
		return CardDetails{}
	}
}

// PaymentDraft is the transient payment entry owned by the payment controller
type PaymentDraft struct {
	Method  PaymentMethod  `json:"method"`
	Details PaymentDetails `json:"details"`
	OTP     string         `json:"otp,omitempty"`
}

// SettlementRequest is sent to the settlement gateway on confirm
type SettlementRequest struct {
	BookingID string
	Method    PaymentMethod
	Amount    int64
}

// SettlementResult is the gateway's answer to a settlement request
type SettlementResult struct {
	Reference string
}

// OTPVerification asks the gateway to verify the challenge for a settlement
type OTPVerification struct {
	BookingID string
	Reference string
	OTP       string
}

// Confirmation is the finalized booking handed to the ticket renderer
type Confirmation struct {
	BookingID     string           `json:"booking_id"`
	PNR           string           `json:"pnr"`
	PaymentID     string           `json:"payment_id"`
	Method        PaymentMethod    `json:"method"`
	Amount        int64            `json:"amount"`
	Train         TrainOffering    `json:"train"`
	SelectedClass string           `json:"selected_class"`
	JourneyDate   string           `json:"journey_date"`
	Passengers    []PassengerEntry `json:"passengers"`
	Fare          FareSummary      `json:"fare"`
	ConfirmedAt   time.Time        `json:"confirmed_at"`
}
