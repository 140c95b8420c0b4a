package controllers

import (
	apperrors "github.com/Badr070118/lupeti-project-sub000/common/errors"
	"github.com/Badr070118/lupeti-project-sub000/common/logger"
	"github.com/Badr070118/lupeti-project-sub000/common/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// fail records the operation outcome and hands err to the error middleware.
func fail(c *gin.Context, operation string, err error) {
	kind := apperrors.KindOf(err)
	if operation != "" {
		middleware.RecordOperation(operation, string(kind))
	}
	if kind == apperrors.KindInternal {
		logger.Error(c, "request failed", err)
	}
	_ = c.Error(err)
}

func succeed(operation string) {
	middleware.RecordOperation(operation, "success")
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		_ = c.Error(apperrors.ErrUnauthorized)
		return uuid.Nil, false
	}
	return userID, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		_ = c.Error(apperrors.Validation(apperrors.CodeValidationFailed, "invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(apperrors.New(apperrors.KindValidation, apperrors.CodeValidationFailed, "Invalid request body", err))
}
