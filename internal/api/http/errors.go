package http

import (
	"errors"
	"net/http"

	"github.com/GriffinCanCode/librarian/internal/domain/install"
	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"github.com/gin-gonic/gin"
)

// Codes used only at the transport boundary
const (
	codeBadRequest   = "bad_request"
	codeShuttingDown = "shutting_down"
)

// statusOf maps an error code to its HTTP status
func statusOf(code types.Code) int {
	switch code {
	case types.CodeNotFound, types.CodeMetadataNotFound:
		return http.StatusNotFound
	case types.CodeInvalidMetadata, types.CodeMetadataUnreadable:
		return http.StatusUnprocessableEntity
	case types.CodeAuthFailure, types.CodeNotLoggedIn:
		return http.StatusUnauthorized
	case types.CodeAlreadyInProgress:
		return http.StatusConflict
	case types.CodeNotSupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body for err
func respondError(c *gin.Context, err error) {
	if errors.Is(err, install.ErrShuttingDown) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": codeShuttingDown, "error": err.Error()})
		return
	}

	code := types.CodeOf(err)
	c.JSON(statusOf(code), gin.H{
		"code":  code,
		"error": types.CauseOf(err),
	})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"code": codeBadRequest, "error": err.Error()})
}
