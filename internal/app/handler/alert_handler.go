package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"portal/internal/app/dto"
)

// GetAlertSchedule returns the reminder thresholds.
// @Summary Alert schedule
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SuccessResponse{data=[]dto.AlertThresholdResponse}
// @Router /api/alerts/schedule [get]
func (h *APIHandler) GetAlertSchedule(c *gin.Context) {
	schedule := h.Service.AlertSchedule()
	out := make([]dto.AlertThresholdResponse, len(schedule))
	for i, th := range schedule {
		out[i] = toThreshold(th)
	}
	h.successResponse(c, http.StatusOK, "", out)
}

// GetDueReminders lists the reminders due on a day.
// @Summary Due reminders
// @Description A service is due when its days until expiry equal a threshold exactly.
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param date query string false "Day to evaluate (YYYY-MM-DD), today by default"
// @Success 200 {object} dto.SuccessResponse{data=[]dto.ReminderResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/alerts/due [get]
func (h *APIHandler) GetDueReminders(c *gin.Context) {
	day, err := queryDate(c, "date")
	if err != nil {
		h.fail(c, err)
		return
	}
	var on time.Time
	if day != nil {
		on = *day
	}
	reminders, err := h.Service.DueReminders(c.Request.Context(), on)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]dto.ReminderResponse, len(reminders))
	for i, r := range reminders {
		out[i] = dto.ReminderResponse{
			Service:        toServiceResponse(r.Service),
			Threshold:      toThreshold(r.Threshold),
			ClientEmail:    r.ClientEmail,
			AccountManager: r.AccountManager,
		}
	}
	h.successResponse(c, http.StatusOK, "", out)
}
