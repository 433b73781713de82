package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/rail-booking/internal/dto"
	"github.com/prohmpiriya/rail-booking/internal/service"
	"github.com/prohmpiriya/rail-booking/pkg/response"
	"github.com/prohmpiriya/rail-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// WorkflowHandler handles booking session HTTP requests
type WorkflowHandler struct {
	workflowService service.WorkflowService
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(workflowService service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{
		workflowService: workflowService,
	}
}

// RegisterRoutes mounts every session route under rg. Payment writes that
// reach the gateway go through settle, so callers can wrap them with
// idempotency middleware.
func (h *WorkflowHandler) RegisterRoutes(rg *gin.RouterGroup, settle ...gin.HandlerFunc) {
	withSettle := func(final gin.HandlerFunc) []gin.HandlerFunc {
		chain := make([]gin.HandlerFunc, 0, len(settle)+1)
		return append(append(chain, settle...), final)
	}

	rg.GET("/trains", h.ListTrains)

	sessions := rg.Group("/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.GET("/:id", h.GetSession)
		sessions.DELETE("/:id", h.AbandonSession)

		sessions.POST("/:id/class", h.SelectClass)
		sessions.PUT("/:id/journey-date", h.SetJourneyDate)
		sessions.POST("/:id/passengers", h.AddPassenger)
		sessions.DELETE("/:id/passengers/:index", h.RemovePassenger)
		sessions.PATCH("/:id/passengers/:index", h.UpdatePassenger)
		sessions.GET("/:id/seats", h.GetSeatMap)
		sessions.PUT("/:id/passengers/:index/seat", h.AssignSeat)
		sessions.POST("/:id/terms", h.SetTerms)
		sessions.POST("/:id/next", h.Next)
		sessions.POST("/:id/back", h.Back)

		payment := sessions.Group("/:id/payment")
		payment.POST("/method", h.SelectPaymentMethod)
		payment.PUT("/details", h.SetPaymentDetails)
		payment.POST("/next", h.PaymentNext)
		payment.POST("/back", h.PaymentBack)
		payment.POST("/cancel", h.CancelPayment)
		payment.POST("/confirm", withSettle(h.ConfirmPayment)...)
		payment.POST("/otp", withSettle(h.SubmitOTP)...)
	}
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}

func passengerIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.BadRequest(c, "passenger index must be a non-negative integer")
		return 0, false
	}
	return index, true
}

// ListTrains handles GET /trains
func (h *WorkflowHandler) ListTrains(c *gin.Context) {
	trains, err := h.workflowService.ListTrains(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, trains)
}

// CreateSession handles POST /sessions
func (h *WorkflowHandler) CreateSession(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.workflow.create_session")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}
	span.SetAttributes(attribute.String("train_id", req.TrainID))

	result, err := h.workflowService.CreateSession(ctx, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("session_id", result.ID))
	span.SetStatus(codes.Ok, "")
	response.Created(c, result)
}

// GetSession handles GET /sessions/:id
func (h *WorkflowHandler) GetSession(c *gin.Context) {
	result, err := h.workflowService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// AbandonSession handles DELETE /sessions/:id
func (h *WorkflowHandler) AbandonSession(c *gin.Context) {
	if err := h.workflowService.AbandonSession(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SelectClass handles POST /sessions/:id/class
func (h *WorkflowHandler) SelectClass(c *gin.Context) {
	var req dto.SelectClassRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.workflowService.SelectClass(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// SetJourneyDate handles PUT /sessions/:id/journey-date
func (h *WorkflowHandler) SetJourneyDate(c *gin.Context) {
	var req dto.JourneyDateRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.workflowService.SetJourneyDate(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// AddPassenger handles POST /sessions/:id/passengers
func (h *WorkflowHandler) AddPassenger(c *gin.Context) {
	result, err := h.workflowService.AddPassenger(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, result)
}

// RemovePassenger handles DELETE /sessions/:id/passengers/:index
func (h *WorkflowHandler) RemovePassenger(c *gin.Context) {
	index, ok := passengerIndex(c)
	if !ok {
		return
	}
	result, err := h.workflowService.RemovePassenger(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// UpdatePassenger handles PATCH /sessions/:id/passengers/:index
func (h *WorkflowHandler) UpdatePassenger(c *gin.Context) {
	index, ok := passengerIndex(c)
	if !ok {
		return
	}
	var req dto.UpdatePassengerRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.workflowService.UpdatePassenger(c.Request.Context(), c.Param("id"), index, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// GetSeatMap handles GET /sessions/:id/seats
func (h *WorkflowHandler) GetSeatMap(c *gin.Context) {
	result, err := h.workflowService.GetSeatMap(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// AssignSeat handles PUT /sessions/:id/passengers/:index/seat
func (h *WorkflowHandler) AssignSeat(c *gin.Context) {
	index, ok := passengerIndex(c)
	if !ok {
		return
	}
	var req dto.AssignSeatRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.workflowService.AssignSeat(c.Request.Context(), c.Param("id"), index, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// SetTerms handles POST /sessions/:id/terms
func (h *WorkflowHandler) SetTerms(c *gin.Context) {
	var req dto.TermsRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.workflowService.SetTerms(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// Next handles POST /sessions/:id/next
func (h *WorkflowHandler) Next(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.workflow.next")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	result, err := h.workflowService.Next(ctx, c.Param("id"))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}
	span.SetAttributes(attribute.String("stage", result.Stage))
	response.Success(c, result)
}

// Back handles POST /sessions/:id/back
func (h *WorkflowHandler) Back(c *gin.Context) {
	result, err := h.workflowService.Back(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// SelectPaymentMethod handles POST /sessions/:id/payment/method
func (h *WorkflowHandler) SelectPaymentMethod(c *gin.Context) {
	var req dto.PaymentMethodRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.workflowService.SelectPaymentMethod(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// SetPaymentDetails handles PUT /sessions/:id/payment/details
func (h *WorkflowHandler) SetPaymentDetails(c *gin.Context) {
	var req dto.PaymentDetailsRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.workflowService.SetPaymentDetails(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// PaymentNext handles POST /sessions/:id/payment/next
func (h *WorkflowHandler) PaymentNext(c *gin.Context) {
	result, err := h.workflowService.PaymentNext(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// PaymentBack handles POST /sessions/:id/payment/back
func (h *WorkflowHandler) PaymentBack(c *gin.Context) {
	result, err := h.workflowService.PaymentBack(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// CancelPayment handles POST /sessions/:id/payment/cancel
func (h *WorkflowHandler) CancelPayment(c *gin.Context) {
	result, err := h.workflowService.CancelPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// ConfirmPayment handles POST /sessions/:id/payment/confirm.
// A pending OTP challenge answers 202 Accepted.
func (h *WorkflowHandler) ConfirmPayment(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.workflow.confirm_payment")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	result, err := h.workflowService.ConfirmPayment(ctx, c.Param("id"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Bool("requires_otp", result.RequiresOTP))
	span.SetStatus(codes.Ok, "")
	if result.RequiresOTP {
		response.Accepted(c, result)
		return
	}
	response.Success(c, result)
}

// SubmitOTP handles POST /sessions/:id/payment/otp
func (h *WorkflowHandler) SubmitOTP(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.workflow.submit_otp")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.OTPRequest
	if !bindJSON(c, &req) {
		span.SetStatus(codes.Error, "invalid request")
		return
	}

	result, err := h.workflowService.SubmitOTP(ctx, c.Param("id"), &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}
