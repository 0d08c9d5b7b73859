package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"relief-http-service/internal/domain/services"
	"relief-http-service/internal/error/code"
	"relief-http-service/internal/error/response"
	"relief-http-service/pkg/logger"
)

// ErrorResponse is the error body
type ErrorResponse struct {
	Code    int         `json:"code" example:"101001"`
	Message string      `json:"message" example:"Task not found"`
	Data    interface{} `json:"data,omitempty"`
}

// serviceErrorCodes maps service sentinels onto response codes
var serviceErrorCodes = []struct {
	err  error
	code int
}{
	{services.ErrEmptyMessage, code.ErrEmptyMessage},
	{services.ErrTaskIDRequired, code.ErrTaskIDRequired},
	{services.ErrNeedNotFound, code.ErrTaskNotFound},
	{services.ErrNeedCompleted, code.ErrTaskCompleted},
	{services.ErrNeedInvalidID, code.ErrNeedInvalidID},
	{services.ErrMissionInvalidID, code.ErrMissionInvalidID},
	{services.ErrMissionNotFound, code.ErrMissionNotFound},
	{services.ErrMissionNotActive, code.ErrMissionNotActive},
	{services.ErrMissionStatusInvalid, code.ErrMissionStatusInvalid},
	{services.ErrStationInvalid, code.ErrStationInvalid},
	{services.ErrSourceInvalidID, code.ErrSourceInvalidID},
	{services.ErrRouteInvalidDepot, code.ErrRouteInvalidDepot},
	{services.ErrRouteNoStops, code.ErrRouteNoStops},
}

// errorCode returns the response code for err, ErrUnknown when unmapped
func errorCode(err error) int {
	for _, m := range serviceErrorCodes {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return code.ErrUnknown
}

// failWithError writes the error body for err. Unmapped errors are logged
// and answered with the generic 500 message only.
func failWithError(ctx *gin.Context, op string, err error) {
	errCode := errorCode(err)
	if errCode == code.ErrUnknown {
		logger.Error("[%s] %v", op, err)
		response.ServerError(ctx)
		return
	}
	response.Fail(ctx, errCode, nil)
}
