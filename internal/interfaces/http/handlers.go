package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/temple-membership/internal/application/port"
	"github.com/garyjia/temple-membership/internal/application/service"
	"github.com/garyjia/temple-membership/internal/application/workflow"
	"github.com/garyjia/temple-membership/internal/domain/entity"
	domainwf "github.com/garyjia/temple-membership/internal/domain/workflow"
)

const (
	errorCodeKey  = "error_code"
	xlsxMediaType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	version       = "1.0.0"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine       workflow.WorkflowEngine
	applications service.ApplicationService
	members      service.MemberService
	health       HealthChecker
	logger       Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	engine workflow.WorkflowEngine,
	applications service.ApplicationService,
	members service.MemberService,
	health HealthChecker,
	logger Logger,
) *Handlers {
	return &Handlers{
		engine:       engine,
		applications: applications,
		members:      members,
		health:       health,
		logger:       logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Field   string      `json:"field,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Error     string `json:"error,omitempty"`
}

// PermittedActionsResponse lists the actions available in the current state
type PermittedActionsResponse struct {
	ApplicationID int64    `json:"application_id"`
	Status        string   `json:"status"`
	Actions       []string `json:"actions"`
}

type noteRequest struct {
	Notes string `json:"notes"`
}

type rejectRequest struct {
	Reason         string  `json:"reason"`
	Remarks        string  `json:"remarks"`
	RefundEligible bool    `json:"refund_eligible"`
	RefundAmount   *string `json:"refund_amount,omitempty"`
	RefundMethod   string  `json:"refund_method,omitempty"`
}

type refundRequest struct {
	Reference  string `json:"reference"`
	RefundedOn string `json:"refunded_on"`
	Method     string `json:"method,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   version,
	}

	if h.health != nil {
		if err := h.health.Health(c.Request.Context()); err != nil {
			response.Status = "unhealthy"
			response.Error = err.Error()
			c.JSON(http.StatusServiceUnavailable, Response{Success: false, Data: response})
			return
		}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: response})
}

// LookupMembers handles GET /api/members/lookup?q=
func (h *Handlers) LookupMembers(c *gin.Context) {
	members, err := h.members.Lookup(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: members})
}

// CreateApplication handles POST /api/applications
func (h *Handlers) CreateApplication(c *gin.Context) {
	var applicant entity.Applicant
	if !h.bindJSON(c, &applicant) {
		return
	}

	app, err := h.applications.CreateDraft(c.Request.Context(), applicant)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: app})
}

// ListApplications handles GET /api/applications
func (h *Handlers) ListApplications(c *gin.Context) {
	filter := port.ApplicationFilter{Status: strings.ToUpper(c.Query("status"))}

	var ok bool
	if filter.Limit, ok = h.queryInt(c, "limit"); !ok {
		return
	}
	if filter.Offset, ok = h.queryInt(c, "offset"); !ok {
		return
	}

	apps, err := h.applications.ListApplications(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: apps})
}

// StatusSummary handles GET /api/applications/summary
func (h *Handlers) StatusSummary(c *gin.Context) {
	counts, err := h.applications.CountByStatus(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: counts})
}

// ExportRegister handles GET /api/applications/export
func (h *Handlers) ExportRegister(c *gin.Context) {
	status := strings.ToUpper(c.Query("status"))

	var buf bytes.Buffer
	if err := h.applications.ExportRegister(c.Request.Context(), &buf, status); err != nil {
		h.writeError(c, err)
		return
	}

	filename := fmt.Sprintf("membership-register-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxMediaType, buf.Bytes())
}

// GetApplication handles GET /api/applications/:id
func (h *Handlers) GetApplication(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	app, err := h.applications.GetApplication(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: app})
}

// GetHistory handles GET /api/applications/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	history, err := h.applications.GetHistory(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// PermittedActions handles GET /api/applications/:id/actions
func (h *Handlers) PermittedActions(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	state, err := h.engine.GetCurrentState(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	triggers, err := h.engine.PermittedActions(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	actions := make([]string, len(triggers))
	for i, t := range triggers {
		actions[i] = t.String()
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: PermittedActionsResponse{
		ApplicationID: id,
		Status:        state.String(),
		Actions:       actions,
	}})
}

// UpdateDraft handles PUT /api/applications/:id/draft
func (h *Handlers) UpdateDraft(c *gin.Context) {
	var action workflow.UpdateDraftAction
	if !h.bindJSON(c, &action) {
		return
	}
	h.execute(c, action)
}

// Submit handles POST /api/applications/:id/submit
func (h *Handlers) Submit(c *gin.Context) {
	h.execute(c, workflow.SubmitAction{})
}

// StartVerification handles POST /api/applications/:id/verification
func (h *Handlers) StartVerification(c *gin.Context) {
	h.execute(c, workflow.StartVerificationAction{})
}

// VerifyReferral handles POST /api/applications/:id/referrals/:n/verify
func (h *Handlers) VerifyReferral(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		h.writeError(c, domainwf.NewValidationError(domainwf.CodeInvalidReferralNumber, "referral_number",
			"referral number must be 1 or 2"))
		return
	}

	var req noteRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	app, err := h.engine.VerifyReferral(c.Request.Context(), id, n, req.Notes)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: app})
}

// RequestApproval handles POST /api/applications/:id/forward
func (h *Handlers) RequestApproval(c *gin.Context) {
	h.execute(c, workflow.RequestApprovalAction{})
}

// ScheduleInterview handles POST /api/applications/:id/interview
func (h *Handlers) ScheduleInterview(c *gin.Context) {
	var action workflow.ScheduleInterviewAction
	if !h.bindJSON(c, &action) {
		return
	}
	h.execute(c, action)
}

// CompleteInterview handles POST /api/applications/:id/interview/complete
func (h *Handlers) CompleteInterview(c *gin.Context) {
	var req noteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.execute(c, workflow.CompleteInterviewAction{Notes: req.Notes})
}

// Approve handles POST /api/applications/:id/approve
func (h *Handlers) Approve(c *gin.Context) {
	var action workflow.ApproveAction
	if !h.bindJSON(c, &action) {
		return
	}
	h.execute(c, action)
}

// Reject handles POST /api/applications/:id/reject
func (h *Handlers) Reject(c *gin.Context) {
	var req rejectRequest
	if !h.bindJSON(c, &req) {
		return
	}

	action := workflow.RejectAction{
		Reason:         req.Reason,
		Remarks:        req.Remarks,
		RefundEligible: req.RefundEligible,
		RefundMethod:   req.RefundMethod,
	}
	if req.RefundAmount != nil {
		cents, err := entity.ParseCents(*req.RefundAmount)
		if err != nil {
			h.writeError(c, domainwf.NewValidationError(domainwf.CodeInvalidAmount, "refund_amount", err.Error()))
			return
		}
		action.RefundAmountCents = &cents
	}

	h.execute(c, action)
}

// ProcessRefund handles POST /api/applications/:id/refund
func (h *Handlers) ProcessRefund(c *gin.Context) {
	var req refundRequest
	if !h.bindJSON(c, &req) {
		return
	}

	action := workflow.ProcessRefundAction{Reference: req.Reference, Method: req.Method}
	if req.RefundedOn != "" {
		refundedOn, err := parseDate(req.RefundedOn)
		if err != nil {
			h.writeError(c, domainwf.NewValidationError(domainwf.CodeInvalidFieldValue, "refunded_on", err.Error()))
			return
		}
		action.RefundedOn = refundedOn
	}

	h.execute(c, action)
}

func (h *Handlers) execute(c *gin.Context, action workflow.Action) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	app, err := h.engine.Execute(c.Request.Context(), id, action)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: app})
}

func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(c, domainwf.NewValidationError(domainwf.CodeInvalidFieldValue, "id", "invalid application id"))
		return 0, false
	}
	return id, true
}

func (h *Handlers) queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		h.writeError(c, domainwf.NewValidationError(domainwf.CodeInvalidFieldValue, key, fmt.Sprintf("%s must be an integer", key)))
		return 0, false
	}
	return v, true
}

func (h *Handlers) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.writeError(c, domainwf.NewValidationError(domainwf.CodeInvalidFieldValue, "body",
			fmt.Sprintf("invalid request body: %v", err)))
		return false
	}
	return true
}

func (h *Handlers) bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.bindJSON(c, dst)
}

// writeError renders err as a JSON error response
func (h *Handlers) writeError(c *gin.Context, err error) {
	wfErr, ok := domainwf.AsError(err)
	if !ok {
		h.logger.Error("Request failed", "error", err, "path", c.Request.URL.Path)
		c.Set(errorCodeKey, "INTERNAL")
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "internal server error",
			Code:    "INTERNAL",
		})
		return
	}

	if wfErr.Kind == domainwf.KindDependency {
		h.logger.Error("Dependency failure", "error", err, "path", c.Request.URL.Path)
	}

	c.Set(errorCodeKey, string(wfErr.Code))
	c.JSON(statusFor(wfErr.Kind), Response{
		Success: false,
		Error:   wfErr.Message,
		Code:    string(wfErr.Code),
		Field:   wfErr.Field,
	})
}

// statusFor maps a workflow error kind to an HTTP status
func statusFor(kind domainwf.Kind) int {
	switch kind {
	case domainwf.KindValidation:
		return http.StatusBadRequest
	case domainwf.KindGuard:
		return http.StatusUnprocessableEntity
	case domainwf.KindNotFound:
		return http.StatusNotFound
	case domainwf.KindConflict:
		return http.StatusConflict
	case domainwf.KindDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// parseDate accepts a calendar date or an RFC 3339 timestamp
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC 3339 date, got %q", s)
	}
	return t, nil
}

