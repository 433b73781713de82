package workflow

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

// PassengerRules are the bounds checked on every roster entry
var PassengerRules = struct {
	NameMinLength int
	AgeMin        int
	AgeMax        int
}{
	NameMinLength: 3,
	AgeMin:        1,
	AgeMax:        120,
}

// PaymentPatterns are the formats enforced on payment details
var PaymentPatterns = struct {
	CardNumber *regexp.Regexp
	Expiry     *regexp.Regexp
	CVV        *regexp.Regexp
	UPIID      *regexp.Regexp
	OTP        *regexp.Regexp
}{
	CardNumber: regexp.MustCompile(`^\d{16}$`),
	Expiry:     regexp.MustCompile(`^\d{2}/\d{2}$`),
	CVV:        regexp.MustCompile(`^\d{3,4}$`),
	UPIID:      regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,49}@[a-zA-Z]{2,}`),
	OTP:        regexp.MustCompile(`^\d{6}$`),
}

// Notices shown when a step gate refuses to advance
const (
	NoticePassengerDetails = "Please fill in all required passenger details correctly"
	NoticeSeatSelection    = "Please select seats for all passengers"
	NoticeTerms            = "Please accept the terms and conditions"
	NoticePaymentDetails   = "Please correct the payment details"
	NoticeOTP              = "Please enter a valid 6-digit OTP"
)

// ParseAge parses the raw age text
func ParseAge(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	return n, err == nil
}

// ValidatePassenger checks one entry and returns its field errors
func ValidatePassenger(p domain.PassengerEntry) []domain.FieldError {
	var errs []domain.FieldError

	name := strings.TrimSpace(p.Name)
	switch {
	case name == "":
		errs = append(errs, domain.FieldError{Field: "name", Message: "Name is required"})
	case len([]rune(name)) < PassengerRules.NameMinLength:
		errs = append(errs, domain.FieldError{Field: "name", Message: fmt.Sprintf("Name should be at least %d characters", PassengerRules.NameMinLength)})
	}

	if strings.TrimSpace(p.Age) == "" {
		errs = append(errs, domain.FieldError{Field: "age", Message: "Age is required"})
	} else if age, ok := ParseAge(p.Age); !ok {
		errs = append(errs, domain.FieldError{Field: "age", Message: "Age must be an integer"})
	} else if age < PassengerRules.AgeMin || age > PassengerRules.AgeMax {
		errs = append(errs, domain.FieldError{Field: "age", Message: fmt.Sprintf("Age must be between %d and %d", PassengerRules.AgeMin, PassengerRules.AgeMax)})
	}

	if !p.Gender.Valid() {
		errs = append(errs, domain.FieldError{Field: "gender", Message: "Gender is required"})
	}
	if !p.AgeCategory.Valid() {
		errs = append(errs, domain.FieldError{Field: "age_category", Message: "Age category is required"})
	}

	return errs
}

// ValidatePaymentDetails checks the details entered for a method
func ValidatePaymentDetails(details domain.PaymentDetails) []domain.FieldError {
	var errs []domain.FieldError

	switch d := details.(type) {
	case domain.CardDetails:
		number := strings.Join(strings.Fields(d.CardNumber), "")
		if number == "" {
			errs = append(errs, domain.FieldError{Field: "card_number", Message: "Card number is required"})
		} else if !PaymentPatterns.CardNumber.MatchString(number) {
			errs = append(errs, domain.FieldError{Field: "card_number", Message: "Invalid card number"})
		}
		if strings.TrimSpace(d.NameOnCard) == "" {
			errs = append(errs, domain.FieldError{Field: "name_on_card", Message: "Name is required"})
		}
		if d.ExpiryDate == "" {
			errs = append(errs, domain.FieldError{Field: "expiry_date", Message: "Expiry date is required"})
		} else if !PaymentPatterns.Expiry.MatchString(d.ExpiryDate) {
			errs = append(errs, domain.FieldError{Field: "expiry_date", Message: "Use MM/YY format"})
		}
		if d.CVV == "" {
			errs = append(errs, domain.FieldError{Field: "cvv", Message: "CVV is required"})
		} else if !PaymentPatterns.CVV.MatchString(d.CVV) {
			errs = append(errs, domain.FieldError{Field: "cvv", Message: "Invalid CVV"})
		}

	case domain.UPIDetails:
		if d.UPIID == "" {
			errs = append(errs, domain.FieldError{Field: "upi_id", Message: "UPI ID is required"})
		} else if !PaymentPatterns.UPIID.MatchString(d.UPIID) {
			errs = append(errs, domain.FieldError{Field: "upi_id", Message: "Invalid UPI ID"})
		}

	case domain.NetBankingDetails:
		if !slices.Contains(domain.Banks, d.Bank) {
			errs = append(errs, domain.FieldError{Field: "bank", Message: "Please select a bank"})
		}

	default:
		errs = append(errs, domain.FieldError{Field: "method", Message: "Please select a payment method"})
	}

	return errs
}

// ValidateOTP checks the one-time password format
func ValidateOTP(otp string) []domain.FieldError {
	if !PaymentPatterns.OTP.MatchString(otp) {
		return []domain.FieldError{{Field: "otp", Message: NoticeOTP}}
	}
	return nil
}
