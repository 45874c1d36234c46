// Package handlers implements the gin handlers of the molgrid HTTP interface.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/molgrid/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps err's code onto an HTTP status and aborts the request.
func writeError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(errors.HTTPStatusForCode(code), ErrorResponse{
		Code:    string(code),
		Message: err.Error(),
	})
}

//Personal.AI order the ending
