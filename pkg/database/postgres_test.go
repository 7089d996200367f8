package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/fyp-portal-api/pkg/config"
)

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(config.DatabaseConfig{
		Host:           "db",
		Port:           5432,
		User:           "portal",
		Password:       "it's secret",
		Name:           "fyp_portal",
		SSLMode:        "disable",
		ConnectTimeout: 1500 * time.Millisecond,
	})

	assert.Equal(t, `host=db port=5432 user=portal password='it\'s secret' dbname=fyp_portal sslmode=disable application_name=fyp-portal-api connect_timeout=1`, dsn)
}

func TestPostgresDSNQuotesEmptyValues(t *testing.T) {
	dsn := postgresDSN(config.DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "fyp_portal", SSLMode: "disable"})

	assert.Contains(t, dsn, "password='' ")
	assert.NotContains(t, dsn, "connect_timeout")
}
