package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fyp-portal-api/internal/dto"
	"github.com/noah-isme/fyp-portal-api/internal/models"
	appErrors "github.com/noah-isme/fyp-portal-api/pkg/errors"
	"github.com/noah-isme/fyp-portal-api/pkg/response"
)

type defenseScheduler interface {
	Run(ctx context.Context, req dto.RunScheduleRequest, actor *models.JWTClaims) (*dto.DefenseRunResponse, error)
	Preview(ctx context.Context, req dto.RunScheduleRequest, actor *models.JWTClaims) (*dto.DefenseRunResponse, error)
	LastRun(ctx context.Context) (*dto.DefenseRunSummary, error)
}

type defenseSettingsService interface {
	Get(ctx context.Context) (*models.DefenseSettings, error)
	Update(ctx context.Context, req dto.DefenseSettingsRequest, actor *models.JWTClaims) (*models.DefenseSettings, error)
}

// DefenseHandler exposes the defense scheduler and its settings.
type DefenseHandler struct {
	scheduler defenseScheduler
	settings  defenseSettingsService
}

// NewDefenseHandler constructs a DefenseHandler.
func NewDefenseHandler(scheduler defenseScheduler, settings defenseSettingsService) *DefenseHandler {
	return &DefenseHandler{scheduler: scheduler, settings: settings}
}

// Run godoc
// @Summary Assign committees and defense slots
// @Description Saves the optional settings, fills missing committee roles, schedules defenses and commits all changes in one transaction.
// @Tags Defense
// @Accept json
// @Produce json
// @Param payload body dto.RunScheduleRequest false "Optional settings to save before the run"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /defense/schedule/run [post]
func (h *DefenseHandler) Run(c *gin.Context) {
	req, ok := bindRunRequest(c)
	if !ok {
		return
	}
	result, err := h.scheduler.Run(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, map[string]interface{}{"message": result.Message})
}

// Preview godoc
// @Summary Dry-run the defense scheduler
// @Tags Defense
// @Accept json
// @Produce json
// @Param payload body dto.RunScheduleRequest false "Optional settings to try"
// @Success 200 {object} response.Envelope
// @Router /defense/schedule/preview [post]
func (h *DefenseHandler) Preview(c *gin.Context) {
	req, ok := bindRunRequest(c)
	if !ok {
		return
	}
	result, err := h.scheduler.Preview(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, map[string]interface{}{"message": result.Message})
}

// LastRun godoc
// @Summary Last committed scheduler run
// @Tags Defense
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /defense/schedule/last-run [get]
func (h *DefenseHandler) LastRun(c *gin.Context) {
	summary, err := h.scheduler.LastRun(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// GetSettings godoc
// @Summary Get defense scheduler settings
// @Tags Defense
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /defense/settings [get]
func (h *DefenseHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// UpdateSettings godoc
// @Summary Update defense scheduler settings
// @Tags Defense
// @Accept json
// @Produce json
// @Param payload body dto.DefenseSettingsRequest true "Defense settings"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /defense/settings [put]
func (h *DefenseHandler) UpdateSettings(c *gin.Context) {
	var req dto.DefenseSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid defense settings payload"))
		return
	}
	settings, err := h.settings.Update(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// bindRunRequest accepts an empty body as a run with the stored settings.
func bindRunRequest(c *gin.Context) (dto.RunScheduleRequest, bool) {
	var req dto.RunScheduleRequest
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid run payload"))
		return req, false
	}
	return req, true
}
