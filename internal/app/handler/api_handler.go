package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"portal/internal/app/apperr"
	"portal/internal/app/dto"
	"portal/internal/app/entitlement"
	"portal/internal/app/middleware"
)

// ReportLinker hands out download links for archived batch reports.
type ReportLinker interface {
	ReportURL(ctx context.Context, key string) (string, error)
}

// Pinger checks the database behind the API.
type Pinger interface {
	Ping(ctx context.Context) error
}

// APIHandler holds the REST handlers.
type APIHandler struct {
	Service     *entitlement.Service
	Reports     ReportLinker
	DB          Pinger
	AuthHandler *AuthHandler
}

func NewAPIHandler(svc *entitlement.Service, reports ReportLinker, db Pinger, authHandler *AuthHandler) *APIHandler {
	return &APIHandler{
		Service:     svc,
		Reports:     reports,
		DB:          db,
		AuthHandler: authHandler,
	}
}

// ============ Helpers ============

func (h *APIHandler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, dto.ErrorResponse{
		Status:  "fail",
		Message: message,
	})
}

func (h *APIHandler) successResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	response := dto.SuccessResponse{
		Status:  "success",
		Message: message,
	}
	if data != nil {
		response.Data = data
	}
	c.JSON(statusCode, response)
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:             http.StatusBadRequest,
	apperr.KindBadRequest:             http.StatusBadRequest,
	apperr.KindInvalidTransition:      http.StatusConflict,
	apperr.KindUniqueness:             http.StatusConflict,
	apperr.KindNotFound:               http.StatusNotFound,
	apperr.KindConcurrentModification: http.StatusConflict,
	apperr.KindImmutableRecord:        http.StatusConflict,
	apperr.KindForbidden:              http.StatusForbidden,
}

// fail writes err as a typed error body. Unclassified errors are logged and
// reported as 500 without their text.
func (h *APIHandler) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	code, ok := statusByKind[kind]
	if !ok {
		logrus.Error("Error handling ", c.Request.Method, " ", c.FullPath(), ": ", err)
		h.errorResponse(c, http.StatusInternalServerError, "internal error")
		return
	}

	resp := dto.ErrorResponse{Status: "fail", Message: err.Error(), Reason: string(kind)}
	var (
		ve *apperr.ValidationError
		ue *apperr.UniquenessError
		te *apperr.TransitionError
		ie *apperr.ImmutableRecordError
	)
	switch {
	case errors.As(err, &ve):
		resp.Details = map[string]interface{}{"field": ve.Field}
	case errors.As(err, &ue):
		resp.Details = map[string]interface{}{"field": ue.Field, "value": ue.Value, "conflictingId": ue.ConflictingID}
	case errors.As(err, &te):
		resp.Details = map[string]interface{}{"current": te.Current, "attempted": te.Attempted}
	case errors.As(err, &ie):
		resp.Details = map[string]interface{}{"status": ie.Status}
	}
	c.JSON(code, resp)
}

func (h *APIHandler) parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		h.errorResponse(c, http.StatusBadRequest, "invalid "+param)
		return 0, false
	}
	return uint(id), true
}

func (h *APIHandler) actor(c *gin.Context) (entitlement.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		logrus.Warn("actor not found in context")
		h.errorResponse(c, http.StatusUnauthorized, "not authenticated")
	}
	return actor, ok
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(name, "must be an integer")
	}
	return v, nil
}

// Ping checks the API and its database.
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} dto.ErrorResponse
// @Router /ping [get]
func (h *APIHandler) Ping(c *gin.Context) {
	if h.DB != nil {
		if err := h.DB.Ping(c.Request.Context()); err != nil {
			logrus.Error("Error pinging database: ", err)
			h.errorResponse(c, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
