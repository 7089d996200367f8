package models

import "time"

// SettingType defines supported types for persisted setting values.
type SettingType string

const (
	SettingTypeString SettingType = "STRING"
	SettingTypeJSON   SettingType = "JSON"
	SettingTypeDate   SettingType = "DATE"
)

// Setting is a persisted key/value entry in portal_settings.
type Setting struct {
	Key       string      `db:"key" json:"key"`
	Value     string      `db:"value" json:"value"`
	Type      SettingType `db:"type" json:"type"`
	UpdatedBy *string     `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}
