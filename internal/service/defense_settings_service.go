package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/fyp-portal-api/internal/defense"
	"github.com/noah-isme/fyp-portal-api/internal/dto"
	"github.com/noah-isme/fyp-portal-api/internal/models"
	appErrors "github.com/noah-isme/fyp-portal-api/pkg/errors"
)

const (
	settingStartDate          = "defense.start_date"
	settingTimeSlots          = "defense.time_slots"
	settingRooms              = "defense.rooms"
	settingStationaryAdvisors = "defense.stationary_advisors"
	settingTimezone           = "defense.timezone"
)

var defenseSettingKeys = []string{
	settingStartDate,
	settingTimeSlots,
	settingRooms,
	settingStationaryAdvisors,
	settingTimezone,
}

type settingRepository interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Setting, error)
	BulkUpsert(ctx context.Context, settings []models.Setting) error
}

// DefenseSettingsServiceConfig tunes defaults for unset values.
type DefenseSettingsServiceConfig struct {
	DefaultTimezone string
}

// DefenseSettingsService reads and writes the scheduler settings stored in portal_settings.
type DefenseSettingsService struct {
	repo      settingRepository
	validator *validator.Validate
	logger    *zap.Logger
	cfg       DefenseSettingsServiceConfig
}

// NewDefenseSettingsService constructs a DefenseSettingsService.
func NewDefenseSettingsService(repo settingRepository, validate *validator.Validate, logger *zap.Logger, cfg DefenseSettingsServiceConfig) *DefenseSettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefenseSettingsService{repo: repo, validator: validate, logger: logger, cfg: cfg}
}

// Get loads the persisted settings. Missing keys are left empty.
func (s *DefenseSettingsService) Get(ctx context.Context) (*models.DefenseSettings, error) {
	rows, err := s.repo.ListByKeys(ctx, defenseSettingKeys)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load defense settings")
	}

	settings := &models.DefenseSettings{
		Rooms:              []models.Room{},
		StationaryAdvisors: map[string]string{},
		Timezone:           s.cfg.DefaultTimezone,
	}
	for _, row := range rows {
		switch row.Key {
		case settingStartDate:
			settings.StartDefenseDate = row.Value
		case settingTimeSlots:
			settings.TimeSlots = row.Value
		case settingRooms:
			if err := json.Unmarshal([]byte(row.Value), &settings.Rooms); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored defense rooms are corrupt")
			}
		case settingStationaryAdvisors:
			if err := json.Unmarshal([]byte(row.Value), &settings.StationaryAdvisors); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored stationary advisors are corrupt")
			}
		case settingTimezone:
			if row.Value != "" {
				settings.Timezone = row.Value
			}
		}
		if settings.UpdatedAt == nil || row.UpdatedAt.After(*settings.UpdatedAt) {
			updatedAt := row.UpdatedAt
			settings.UpdatedAt = &updatedAt
			settings.UpdatedBy = row.UpdatedBy
		}
	}
	return settings, nil
}

// Update validates the request and persists it.
func (s *DefenseSettingsService) Update(ctx context.Context, req dto.DefenseSettingsRequest, actor *models.JWTClaims) (*models.DefenseSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid defense settings payload")
	}
	return s.Save(ctx, req.ToModel(), actor)
}

// Save validates settings the same way a scheduler run does and writes all keys in one transaction.
func (s *DefenseSettingsService) Save(ctx context.Context, settings models.DefenseSettings, actor *models.JWTClaims) (*models.DefenseSettings, error) {
	settings.StartDefenseDate = strings.TrimSpace(settings.StartDefenseDate)
	settings.TimeSlots = strings.TrimSpace(settings.TimeSlots)
	if settings.Timezone == "" {
		settings.Timezone = s.cfg.DefaultTimezone
	}
	if settings.StationaryAdvisors == nil {
		settings.StationaryAdvisors = map[string]string{}
	}
	if _, err := defense.Compile(settings); err != nil {
		return nil, err
	}
	for roomID := range settings.StationaryAdvisors {
		if _, ok := findRoom(settings.Rooms, roomID); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("stationary advisor references unknown room %s", roomID))
		}
	}

	rooms, err := json.Marshal(settings.Rooms)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode rooms")
	}
	stationary, err := json.Marshal(settings.StationaryAdvisors)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode stationary advisors")
	}

	updatedBy := userIDPtr(actor)
	rows := []models.Setting{
		{Key: settingStartDate, Value: settings.StartDefenseDate, Type: models.SettingTypeDate, UpdatedBy: updatedBy},
		{Key: settingTimeSlots, Value: settings.TimeSlots, Type: models.SettingTypeString, UpdatedBy: updatedBy},
		{Key: settingRooms, Value: string(rooms), Type: models.SettingTypeJSON, UpdatedBy: updatedBy},
		{Key: settingStationaryAdvisors, Value: string(stationary), Type: models.SettingTypeJSON, UpdatedBy: updatedBy},
		{Key: settingTimezone, Value: settings.Timezone, Type: models.SettingTypeString, UpdatedBy: updatedBy},
	}
	if err := s.repo.BulkUpsert(ctx, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save defense settings")
	}

	updatedAt := rows[0].UpdatedAt
	settings.UpdatedAt = &updatedAt
	settings.UpdatedBy = updatedBy
	s.logger.Sugar().Infow("defense settings saved", "startDate", settings.StartDefenseDate, "rooms", len(settings.Rooms), "updatedBy", valueOrEmpty(updatedBy))
	return &settings, nil
}

func userIDPtr(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	id := actor.UserID
	return &id
}

func valueOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
