package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portal/internal/app/apperr"
	"portal/internal/app/dto"
	"portal/internal/app/entitlement"
)

// BulkOperate applies one operation to many services.
// @Summary Bulk operation
// @Description Operations: renew, renew-bulk, change-status, change-category, delete. Each service succeeds or fails on its own; the response lists both.
// @Tags Bulk
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkRequest true "Operation and service ids"
// @Success 200 {object} dto.SuccessResponse{data=dto.BatchResultResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/services/bulk [post]
func (h *APIHandler) BulkOperate(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req dto.BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.Service.BulkOperate(c.Request.Context(), actor, entitlement.BatchRequest{
		Operation:    entitlement.Operation(req.Operation),
		IDs:          req.IDs,
		Status:       req.Status,
		Category:     req.Category,
		PeriodYears:  req.RenewalPeriodYears,
		Amount:       req.Amount,
		Notes:        req.Notes,
		UpdateExpiry: req.UpdateExpiry,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.successResponse(c, http.StatusOK, "", toBatchResult(result))
}

// GetExpiringServices returns the selection offered for bulk renewal.
// @Summary Services up for renewal
// @Description Services that are expired or expire within windowDays, soonest first.
// @Tags Bulk
// @Produce json
// @Security BearerAuth
// @Param windowDays query int false "Window in days (default 30)"
// @Success 200 {object} dto.SuccessResponse{data=[]dto.ServiceResponse}
// @Router /api/services/expiring [get]
func (h *APIHandler) GetExpiringServices(c *gin.Context) {
	var window *int
	if raw, ok := c.GetQuery("windowDays"); ok && raw != "" {
		days, err := queryInt(c, "windowDays", 0)
		if err != nil {
			h.fail(c, err)
			return
		}
		window = &days
	}
	items, err := h.Service.ExpiringSelection(c.Request.Context(), window)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.successResponse(c, http.StatusOK, "", toServiceList(items))
}

// GetBulkReport returns a download link for an archived batch report.
// @Summary Batch report link
// @Tags Bulk
// @Produce json
// @Security BearerAuth
// @Param key path string true "Report key"
// @Success 200 {object} dto.SuccessResponse{data=dto.ReportURLResponse}
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/bulk-reports/{key} [get]
func (h *APIHandler) GetBulkReport(c *gin.Context) {
	if h.Reports == nil {
		h.errorResponse(c, http.StatusNotFound, "report archive is not configured")
		return
	}
	key := c.Param("key")
	url, err := h.Reports.ReportURL(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			h.errorResponse(c, http.StatusNotFound, "report not found")
			return
		}
		h.fail(c, err)
		return
	}
	h.successResponse(c, http.StatusOK, "", dto.ReportURLResponse{Key: key, URL: url})
}
