package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"portal/internal/app/dto"
	"portal/internal/app/entitlement"
)

// GetServices lists services.
// @Summary List services
// @Description Filters combine; status and expiry follow the effective status, so stale Active rows past expiry count as Expired.
// @Tags Services
// @Produce json
// @Security BearerAuth
// @Param status query string false "Pending, Active, Suspended, Cancelled or Expired"
// @Param category query string false "Service category"
// @Param clientId query int false "Client id"
// @Param expiry query string false "expiring, expired or renewed"
// @Param windowDays query int false "Window for expiry=expiring (default 30)"
// @Param autoRenew query bool false "Auto-renew flag"
// @Param search query string false "Matches service name, domain name or client name"
// @Param offset query int false "Offset"
// @Param limit query int false "Page size (max 200)"
// @Success 200 {object} dto.SuccessResponse{data=dto.ListResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/services [get]
func (h *APIHandler) GetServices(c *gin.Context) {
	f := entitlement.ListFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Expiry:   c.Query("expiry"),
		Search:   c.Query("search"),
	}
	clientID, err := queryInt(c, "clientId", 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	f.ClientID = uint(clientID)
	if f.WindowDays, err = queryInt(c, "windowDays", 0); err != nil {
		h.fail(c, err)
		return
	}
	if f.Offset, err = queryInt(c, "offset", 0); err != nil {
		h.fail(c, err)
		return
	}
	if f.Limit, err = queryInt(c, "limit", 50); err != nil {
		h.fail(c, err)
		return
	}
	if raw := c.Query("autoRenew"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.errorResponse(c, http.StatusBadRequest, "autoRenew must be true or false")
			return
		}
		f.AutoRenew = &v
	}

	items, total, err := h.Service.ListServices(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.successResponse(c, http.StatusOK, "", dto.ListResponse{Items: toServiceList(items), Total: total, Offset: f.Offset, Limit: f.Limit})
}

// GetService returns one service with its renewal history.
// @Summary Get service
// @Tags Services
// @Produce json
// @Security BearerAuth
// @Param id path int true "Service id"
// @Success 200 {object} dto.SuccessResponse{data=dto.ServiceDetailResponse}
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/services/{id} [get]
func (h *APIHandler) GetService(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	detail, err := h.Service.GetService(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.successResponse(c, http.StatusOK, "", toServiceDetail(detail))
}

// CreateService registers a service.
// @Summary Create service
// @Tags Services
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateServiceRequest true "Service"
// @Success 201 {object} dto.SuccessResponse{data=dto.ServiceDetailResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/services [post]
func (h *APIHandler) CreateService(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req dto.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.Service.CreateService(c.Request.Context(), actor, entitlement.ServiceInput{
		ClientID:      req.ClientID,
		ServiceName:   req.ServiceName,
		Category:      req.Category,
		DomainName:    req.DomainName,
		Details:       req.ServiceDetails,
		MonthlyPrice:  req.MonthlyPrice,
		BillingCycle:  req.BillingCycle,
		PaymentMethod: req.PaymentMethod,
		AutoRenew:     req.AutoRenew,
		StartDate:     req.StartDate.Time,
		ExpiryDate:    req.ExpiryDate.Time,
		RenewalDate:   dateValue(req.RenewalDate),
		Status:        req.Status,
		Notes:         req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.successResponse(c, http.StatusCreated, "service created", toServiceDetail(detail))
}

// UpdateService edits service fields.
// @Summary Update service
// @Description Omitted fields are left unchanged. Changing expiryDate without renewalDate re-derives the renewal date.
// @Tags Services
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Service id"
// @Param request body dto.UpdateServiceRequest true "Fields to change"
// @Success 200 {object} dto.SuccessResponse{data=dto.ServiceDetailResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/services/{id} [put]
func (h *APIHandler) UpdateService(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.Service.UpdateService(c.Request.Context(), actor, id, entitlement.ServiceUpdate{
		ServiceName:   req.ServiceName,
		Category:      req.Category,
		DomainName:    req.DomainName,
		Details:       req.ServiceDetails,
		MonthlyPrice:  req.MonthlyPrice,
		BillingCycle:  req.BillingCycle,
		PaymentMethod: req.PaymentMethod,
		AutoRenew:     req.AutoRenew,
		StartDate:     dateValue(req.StartDate),
		ExpiryDate:    dateValue(req.ExpiryDate),
		RenewalDate:   dateValue(req.RenewalDate),
		Notes:         req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.successResponse(c, http.StatusOK, "service updated", toServiceDetail(detail))
}

// ChangeServiceStatus moves a service through its lifecycle.
// @Summary Change service status
// @Tags Services
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Service id"
// @Param request body dto.ChangeStatusRequest true "Target status"
// @Success 200 {object} dto.SuccessResponse{data=dto.ServiceDetailResponse}
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/services/{id}/status [put]
func (h *APIHandler) ChangeServiceStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req dto.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.Service.ChangeStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.successResponse(c, http.StatusOK, "status changed", toServiceDetail(detail))
}

// DeleteService soft-deletes a service.
// @Summary Delete service
// @Tags Services
// @Produce json
// @Security BearerAuth
// @Param id path int true "Service id"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/services/{id} [delete]
func (h *APIHandler) DeleteService(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteService(c.Request.Context(), actor, id); err != nil {
		h.fail(c, err)
		return
	}
	h.successResponse(c, http.StatusOK, "service deleted", nil)
}
