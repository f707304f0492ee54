package api

import (
	"github.com/gin-gonic/gin"

	"gymdesk/internal/apperr"
	"gymdesk/internal/logger"
)

type ErrorResponse struct {
	Error string `json:"error" example:"slot overlaps an existing booking"`
	Code  string `json:"code,omitempty" example:"overlap"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// Fail maps a core error onto the HTTP surface. Conflict and invalid-transition
// outcomes are expected and surfaced verbatim; anything unclassified is logged
// and reported as a storage failure.
func Fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: apperr.CodeOf(err)})
}
