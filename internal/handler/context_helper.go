package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fyp-portal-api/internal/middleware"
	"github.com/noah-isme/fyp-portal-api/internal/models"
	appErrors "github.com/noah-isme/fyp-portal-api/pkg/errors"
	"github.com/noah-isme/fyp-portal-api/pkg/response"
)

// claimsFromContext returns the caller set by middleware.JWT, or nil on
// routes mounted outside the authenticated group.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

// requireClaims is claimsFromContext for handlers that record an actor. It
// writes the 401 itself so callers only need to return.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}
