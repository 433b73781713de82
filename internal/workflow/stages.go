package workflow

import (
	"fmt"

	"github.com/prohmpiriya/rail-booking/internal/domain"
)

// BookingStage is a step of the booking flow
type BookingStage string

const (
	StagePassengerDetails BookingStage = "passenger_details"
	StageSeatSelection    BookingStage = "seat_selection"
	StageReviewAndPay     BookingStage = "review_and_pay"
)

// bookingTransitions lists forward and backward moves per stage
var bookingTransitions = map[BookingStage][]BookingStage{
	StagePassengerDetails: {StageSeatSelection},
	StageSeatSelection:    {StageReviewAndPay, StagePassengerDetails},
	StageReviewAndPay:     {StageSeatSelection},
}

var bookingForward = map[BookingStage]BookingStage{
	StagePassengerDetails: StageSeatSelection,
	StageSeatSelection:    StageReviewAndPay,
}

var bookingBackward = map[BookingStage]BookingStage{
	StageSeatSelection: StagePassengerDetails,
	StageReviewAndPay:  StageSeatSelection,
}

// PaymentStage is a step of the payment flow
type PaymentStage string

const (
	StageReviewBooking       PaymentStage = "review_booking"
	StageSelectMethod        PaymentStage = "select_method"
	StageEnterPaymentDetails PaymentStage = "enter_payment_details"
	StageConfirmDialog       PaymentStage = "confirm_dialog"
	StageProcessing          PaymentStage = "processing"
	StageOtpDialog           PaymentStage = "otp_dialog"
	StageCompleted           PaymentStage = "completed"
)

// paymentTransitions lists every legal payment move
var paymentTransitions = map[PaymentStage][]PaymentStage{
	StageReviewBooking:       {StageSelectMethod},
	StageSelectMethod:        {StageEnterPaymentDetails, StageReviewBooking},
	StageEnterPaymentDetails: {StageConfirmDialog, StageSelectMethod},
	StageConfirmDialog:       {StageProcessing, StageEnterPaymentDetails},
	StageProcessing:          {StageOtpDialog, StageCompleted, StageEnterPaymentDetails},
	StageOtpDialog:           {StageProcessing, StageEnterPaymentDetails},
	StageCompleted:           {},
}

func canTransition[S comparable](table map[S][]S, from, to S) bool {
	for _, s := range table[from] {
		if s == to {
			return true
		}
	}
	return false
}

func validateTransition[S ~string](table map[S][]S, from, to S) error {
	if !canTransition(table, from, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	return nil
}

func stageError[S ~string](op string, stage S) error {
	return fmt.Errorf("%w: %s during %s", domain.ErrInvalidTransition, op, stage)
}
