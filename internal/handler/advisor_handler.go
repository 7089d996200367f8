package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fyp-portal-api/internal/dto"
	"github.com/noah-isme/fyp-portal-api/internal/models"
	"github.com/noah-isme/fyp-portal-api/pkg/response"
)

type advisorService interface {
	List(ctx context.Context, filter models.AdvisorFilter) ([]models.Advisor, *models.Pagination, error)
	Workload(ctx context.Context, id string) (*dto.AdvisorWorkloadResponse, error)
}

// AdvisorHandler exposes advisor listing and workload endpoints.
type AdvisorHandler struct {
	advisors advisorService
}

// NewAdvisorHandler constructs an AdvisorHandler.
func NewAdvisorHandler(advisors advisorService) *AdvisorHandler {
	return &AdvisorHandler{advisors: advisors}
}

// List godoc
// @Summary List advisors
// @Tags Advisors
// @Produce json
// @Param search query string false "Name or email search"
// @Param majorId query string false "Only advisors specialized in this major"
// @Param active query bool false "Active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /advisors [get]
func (h *AdvisorHandler) List(c *gin.Context) {
	filter := models.AdvisorFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		MajorID:   strings.TrimSpace(c.Query("majorId")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if active := c.Query("active"); active != "" {
		switch strings.ToLower(active) {
		case "true":
			val := true
			filter.Active = &val
		case "false":
			val := false
			filter.Active = &val
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	advisors, pagination, err := h.advisors.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, advisors, pagination)
}

// Workload godoc
// @Summary Advisor workload against quotas
// @Tags Advisors
// @Produce json
// @Param id path string true "Advisor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /advisors/{id}/workload [get]
func (h *AdvisorHandler) Workload(c *gin.Context) {
	workload, err := h.advisors.Workload(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, workload, nil)
}
