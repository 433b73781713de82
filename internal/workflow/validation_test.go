package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

func fieldMessages(errs []domain.FieldError) map[string]string {
	m := map[string]string{}
	for _, e := range errs {
		m[e.Field] = e.Message
	}
	return m
}

func TestValidatePassenger(t *testing.T) {
	tests := []struct {
		name  string
		entry domain.PassengerEntry
		want  map[string]string
	}{
		{
			name:  "valid",
			entry: domain.PassengerEntry{Name: "Sunita", Age: "45", Gender: domain.GenderFemale, AgeCategory: domain.AgeCategoryAdult},
			want:  map[string]string{},
		},
		{
			name:  "blank",
			entry: domain.PassengerEntry{},
			want: map[string]string{
				"name":         "Name is required",
				"age":          "Age is required",
				"gender":       "Gender is required",
				"age_category": "Age category is required",
			},
		},
		{
			name:  "short name and bad age",
			entry: domain.PassengerEntry{Name: " Jo ", Age: "twenty", Gender: domain.GenderMale, AgeCategory: domain.AgeCategoryAdult},
			want: map[string]string{
				"name": "Name should be at least 3 characters",
				"age":  "Age must be an integer",
			},
		},
		{
			name:  "age out of range",
			entry: domain.PassengerEntry{Name: "Baby", Age: "0", Gender: domain.GenderMale, AgeCategory: domain.AgeCategoryAdult},
			want:  map[string]string{"age": "Age must be between 1 and 120"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fieldMessages(ValidatePassenger(tt.entry)))
		})
	}
}

func TestValidatePaymentDetails(t *testing.T) {
	tests := []struct {
		name    string
		details domain.PaymentDetails
		want    map[string]string
	}{
		{
			name:    "card with spaces",
			details: domain.CardDetails{CardNumber: "4111 1111 1111 1111", NameOnCard: "A Rao", ExpiryDate: "09/28", CVV: "123"},
			want:    map[string]string{},
		},
		{
			name:    "card empty",
			details: domain.CardDetails{},
			want: map[string]string{
				"card_number":  "Card number is required",
				"name_on_card": "Name is required",
				"expiry_date":  "Expiry date is required",
				"cvv":          "CVV is required",
			},
		},
		{
			name:    "card malformed",
			details: domain.CardDetails{CardNumber: "4111", NameOnCard: "A Rao", ExpiryDate: "9/2028", CVV: "12"},
			want: map[string]string{
				"card_number": "Invalid card number",
				"expiry_date": "Use MM/YY format",
				"cvv":         "Invalid CVV",
			},
		},
		{
			name:    "upi valid",
			details: domain.UPIDetails{UPIID: "ramesh.k@okaxis"},
			want:    map[string]string{},
		},
		{
			name:    "upi without handle",
			details: domain.UPIDetails{UPIID: "abc"},
			want:    map[string]string{"upi_id": "Invalid UPI ID"},
		},
		{
			// The handle pattern is matched as a prefix only
			name:    "upi trailing characters",
			details: domain.UPIDetails{UPIID: "ramesh@ok9"},
			want:    map[string]string{},
		},
		{
			name:    "netbanking known bank",
			details: domain.NetBankingDetails{Bank: "HDFC Bank"},
			want:    map[string]string{},
		},
		{
			name:    "netbanking unknown bank",
			details: domain.NetBankingDetails{Bank: "Bank of Nowhere"},
			want:    map[string]string{"bank": "Please select a bank"},
		},
		{
			name:    "no details",
			details: nil,
			want:    map[string]string{"method": "Please select a payment method"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fieldMessages(ValidatePaymentDetails(tt.details)))
		})
	}
}

func TestValidateOTP(t *testing.T) {
	assert.Empty(t, ValidateOTP("123456"))
	for _, otp := range []string{"", "12345", "1234567", "12a456"} {
		assert.Len(t, ValidateOTP(otp), 1, otp)
	}
}
