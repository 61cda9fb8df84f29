package gateway

import (
	"fmt"
	"net/http"

	"github.com/apex/log"
	"github.com/labstack/echo/v4"
	"github.com/veedubyou/stem-splitter/src/server/api_error"
	"github.com/veedubyou/stem-splitter/src/server/internal/errors/api"
	"github.com/veedubyou/stem-splitter/src/server/internal/separation/errors"
)

var httpStatusCodeMap = map[api.ErrorCode]int{
	api.DefaultErrorCode:                     http.StatusInternalServerError,
	separationerrors.BadJobConfigCode:        http.StatusBadRequest,
	separationerrors.NoUploadCode:            http.StatusBadRequest,
	separationerrors.BadUploadCode:           http.StatusBadRequest,
	separationerrors.UnsupportedFileTypeCode: http.StatusUnsupportedMediaType,
	separationerrors.FileTooLargeCode:        http.StatusRequestEntityTooLarge,
	separationerrors.SeparationFailedCode:    http.StatusInternalServerError,
	separationerrors.SessionNotFoundCode:     http.StatusNotFound,
	separationerrors.JobInProgressCode:       http.StatusConflict,
}

func StatusCode(code api.ErrorCode) (int, bool) {
	statusCode, ok := httpStatusCodeMap[code]
	return statusCode, ok
}

func ErrorResponse(c echo.Context, err *api.Error) error {
	statusCode, ok := StatusCode(err.ErrorCode)
	if !ok {
		msg := fmt.Sprintf("Error code %s has no HTTP status code mapping", err.ErrorCode)
		panic(msg)
	}

	if statusCode >= http.StatusInternalServerError {
		log.WithError(err).
			WithField("code", err.ErrorCode).
			Error("Request failed")
	}

	return c.JSON(statusCode, api_error.New(string(err.ErrorCode), err.UserMessage, err.Error()))
}
