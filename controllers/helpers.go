package controllers

import (
	"strconv"

	apperrors "backoffice-service/common/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// uuidParam parses a path parameter, writing a 400 when it is not a UUID.
func uuidParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid %s ID", label))
		return uuid.Nil, false
	}
	return id, true
}

func boolQuery(c *gin.Context, name string) (bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Query parameter %s must be a boolean", name))
		return false, false
	}
	return v, true
}

func intQuery(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}

func invalidBody(c *gin.Context, err error) {
	apperrors.Respond(c, apperrors.BadRequest("Invalid request: %v", err))
}
