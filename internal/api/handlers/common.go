package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mobiusml/aana-chat-with-video/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func apiError(err error) APIError {
	var ae *utils.AppError
	if errors.As(err, &ae) {
		return APIError{Code: ae.Code, Message: ae.Message}
	}
	return APIError{Code: codeFor(utils.HTTPStatus(err)), Message: err.Error()}
}

func writeError(c *gin.Context, err error) {
	c.JSON(utils.HTTPStatus(err), apiError(err))
}

func codeFor(status int) utils.Code {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return utils.CodeInvalidArgument
	case http.StatusNotFound:
		return utils.CodeNotFound
	case http.StatusConflict:
		return utils.CodeConflict
	case http.StatusServiceUnavailable:
		return utils.CodeUnavailable
	case http.StatusGatewayTimeout:
		return utils.CodeTimeout
	default:
		return utils.CodeInternal
	}
}
