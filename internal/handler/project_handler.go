package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fyp-portal-api/internal/dto"
	"github.com/noah-isme/fyp-portal-api/internal/models"
	appErrors "github.com/noah-isme/fyp-portal-api/pkg/errors"
	"github.com/noah-isme/fyp-portal-api/pkg/response"
)

type projectService interface {
	List(ctx context.Context, filter models.ProjectGroupFilter) ([]models.ProjectGroup, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ProjectGroup, error)
	OverrideDefense(ctx context.Context, id string, req dto.OverrideDefenseRequest, actor *models.JWTClaims) (*models.ProjectGroup, error)
}

// ProjectHandler exposes project groups.
type ProjectHandler struct {
	projects projectService
}

// NewProjectHandler constructs a ProjectHandler.
func NewProjectHandler(projects projectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// List godoc
// @Summary List project groups
// @Tags Projects
// @Produce json
// @Param status query string false "PENDING, APPROVED, REJECTED or COMPLETED"
// @Param advisorId query string false "Supervisor or committee member"
// @Param unscheduled query bool false "Only projects without a defense slot"
// @Param search query string false "Title search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	filter := models.ProjectGroupFilter{
		AdvisorID: strings.TrimSpace(c.Query("advisorId")),
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("status"))); raw != "" {
		status := models.ProjectStatus(raw)
		switch status {
		case models.ProjectStatusPending, models.ProjectStatusApproved, models.ProjectStatusRejected, models.ProjectStatusCompleted:
			filter.Status = &status
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown project status"))
			return
		}
	}
	if unscheduled, err := strconv.ParseBool(c.DefaultQuery("unscheduled", "false")); err == nil {
		filter.Unscheduled = unscheduled
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	projects, pagination, err := h.projects.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, pagination)
}

// Get godoc
// @Summary Get project group detail
// @Tags Projects
// @Produce json
// @Param id path string true "Project group ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// OverrideDefense godoc
// @Summary Manually set committee members or the defense slot
// @Description Null fields are left unchanged and empty strings clear a field. The version may also be sent as If-Match.
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project group ID"
// @Param payload body dto.OverrideDefenseRequest true "Override payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /projects/{id}/defense [patch]
func (h *ProjectHandler) OverrideDefense(c *gin.Context) {
	var req dto.OverrideDefenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}
	if req.Version == 0 {
		if version, err := strconv.Atoi(strings.Trim(c.GetHeader("If-Match"), `"W/`)); err == nil {
			req.Version = version
		}
	}
	project, err := h.projects.OverrideDefense(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}
