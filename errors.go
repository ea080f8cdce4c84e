package main

import (
	"strconv"

	"ledger/pkg/apperrors"
	"ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError writes {"error": code, "message": msg, "details": ...}.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.FromError(err)
	l := logger.FromContext(c.Request.Context())
	if appErr.StatusCode >= 500 {
		l.Error("request failed", zap.String("code", appErr.Code), zap.Error(err))
	} else {
		l.Debug("request rejected", zap.String("code", appErr.Code), zap.Error(err))
	}
	body := gin.H{"error": appErr.Code, "message": appErr.Message}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(appErr.StatusCode, body)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperrors.NewValidationError("id", "must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}
