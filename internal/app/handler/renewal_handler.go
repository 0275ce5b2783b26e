package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"portal/internal/app/apperr"
	"portal/internal/app/ds"
	"portal/internal/app/dto"
	"portal/internal/app/entitlement"
)

// RenewService records a completed renewal of a service.
// @Summary Renew service
// @Description Extends the expiry by renewalPeriodYears unless updateExpiry is false. An expired service becomes Active again.
// @Tags Renewals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Service id"
// @Param request body dto.RenewRequest true "Renewal"
// @Success 201 {object} dto.SuccessResponse{data=dto.RenewalResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/services/{id}/renew [post]
func (h *APIHandler) RenewService(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req dto.RenewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	updateExpiry := true
	if req.UpdateExpiry != nil {
		updateExpiry = *req.UpdateExpiry
	}
	renewal, err := h.Service.RenewService(c.Request.Context(), actor, id, entitlement.RenewalInput{
		Amount:       req.Amount,
		PeriodYears:  req.RenewalPeriodYears,
		Notes:        req.Notes,
		UpdateExpiry: updateExpiry,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.successResponse(c, http.StatusCreated, "service renewed", toRenewalResponse(*renewal))
}

// GetServiceRenewals lists the renewal history of one service.
// @Summary Service renewal history
// @Tags Renewals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Service id"
// @Param offset query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {object} dto.SuccessResponse{data=dto.ListResponse}
// @Router /api/services/{id}/renewals [get]
func (h *APIHandler) GetServiceRenewals(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if _, err := h.Service.GetService(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.listRenewals(c, entitlement.RenewalQuery{ServiceID: id})
}

// GetRenewals lists the renewal ledger.
// @Summary List renewals
// @Tags Renewals
// @Produce json
// @Security BearerAuth
// @Param serviceId query int false "Service id"
// @Param status query string false "Pending, Completed or Failed"
// @Param from query string false "Renewed on or after (YYYY-MM-DD)"
// @Param to query string false "Renewed on or before (YYYY-MM-DD)"
// @Param offset query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {object} dto.SuccessResponse{data=dto.ListResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/renewals [get]
func (h *APIHandler) GetRenewals(c *gin.Context) {
	serviceID, err := queryInt(c, "serviceId", 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	q := entitlement.RenewalQuery{ServiceID: uint(serviceID), Status: c.Query("status")}
	if q.From, err = queryDate(c, "from"); err != nil {
		h.fail(c, err)
		return
	}
	if q.To, err = queryDate(c, "to"); err != nil {
		h.fail(c, err)
		return
	}
	if q.To != nil {
		// inclusive of the whole day
		end := q.To.AddDate(0, 0, 1).Add(-time.Nanosecond)
		q.To = &end
	}
	h.listRenewals(c, q)
}

func (h *APIHandler) listRenewals(c *gin.Context, q entitlement.RenewalQuery) {
	var err error
	if q.Offset, err = queryInt(c, "offset", 0); err != nil {
		h.fail(c, err)
		return
	}
	if q.Limit, err = queryInt(c, "limit", 50); err != nil {
		h.fail(c, err)
		return
	}
	items, total, err := h.Service.ListRenewals(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.successResponse(c, http.StatusOK, "", dto.ListResponse{Items: toRenewalList(items), Total: total, Offset: q.Offset, Limit: q.Limit})
}

// GetRenewal returns one ledger entry.
// @Summary Get renewal
// @Tags Renewals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Renewal id"
// @Success 200 {object} dto.SuccessResponse{data=dto.RenewalResponse}
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/renewals/{id} [get]
func (h *APIHandler) GetRenewal(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	renewal, err := h.Service.GetRenewal(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.successResponse(c, http.StatusOK, "", toRenewalResponse(*renewal))
}

// EditRenewal changes a pending renewal. Notes may change in any status.
// @Summary Edit renewal
// @Tags Renewals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Renewal id"
// @Param request body dto.EditRenewalRequest true "Fields to change"
// @Success 200 {object} dto.SuccessResponse{data=dto.RenewalResponse}
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/renewals/{id} [put]
func (h *APIHandler) EditRenewal(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req dto.EditRenewalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	renewal, err := h.Service.EditRenewal(c.Request.Context(), actor, id, entitlement.RenewalUpdate{
		Amount:      req.Amount,
		PeriodYears: req.RenewalPeriodYears,
		RenewedAt:   req.RenewedAt,
		Notes:       req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.successResponse(c, http.StatusOK, "renewal updated", toRenewalResponse(*renewal))
}

// CompleteRenewal settles a pending renewal as Completed.
// @Summary Complete renewal
// @Tags Renewals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Renewal id"
// @Success 200 {object} dto.SuccessResponse{data=dto.RenewalResponse}
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/renewals/{id}/complete [put]
func (h *APIHandler) CompleteRenewal(c *gin.Context) {
	h.settleRenewal(c, h.Service.MarkComplete, "renewal completed")
}

// FailRenewal settles a pending renewal as Failed.
// @Summary Fail renewal
// @Tags Renewals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Renewal id"
// @Success 200 {object} dto.SuccessResponse{data=dto.RenewalResponse}
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/renewals/{id}/fail [put]
func (h *APIHandler) FailRenewal(c *gin.Context) {
	h.settleRenewal(c, h.Service.MarkFailed, "renewal failed")
}

func (h *APIHandler) settleRenewal(c *gin.Context, settle func(ctx context.Context, actor entitlement.Actor, id uint) (*ds.ServiceRenewal, error), message string) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	renewal, err := settle(c.Request.Context(), actor, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.successResponse(c, http.StatusOK, message, toRenewalResponse(*renewal))
}

// DeleteRenewal removes a ledger entry. The service itself is not touched.
// @Summary Delete renewal
// @Tags Renewals
// @Produce json
// @Security BearerAuth
// @Param id path int true "Renewal id"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/renewals/{id} [delete]
func (h *APIHandler) DeleteRenewal(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteRenewal(c.Request.Context(), actor, id); err != nil {
		h.fail(c, err)
		return
	}
	h.successResponse(c, http.StatusOK, "renewal deleted", nil)
}

func queryDate(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperr.Validation(name, "must look like 2006-01-02")
	}
	return &t, nil
}
