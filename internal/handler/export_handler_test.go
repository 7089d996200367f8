package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fyp-portal-api/internal/dto"
	"github.com/noah-isme/fyp-portal-api/internal/middleware"
	"github.com/noah-isme/fyp-portal-api/internal/models"
	"github.com/noah-isme/fyp-portal-api/internal/service"
	appErrors "github.com/noah-isme/fyp-portal-api/pkg/errors"
)

type exportServiceMock struct {
	createReq   *dto.ExportRequest
	createActor string
	createResp  *dto.ExportJobResponse
	createErr   error
	statusResp  *dto.ExportStatusResponse
	statusErr   error
	download    *service.ExportDownload
	downloadErr error
}

func (m *exportServiceMock) CreateJob(ctx context.Context, req dto.ExportRequest, actorID string) (*dto.ExportJobResponse, error) {
	m.createReq = &req
	m.createActor = actorID
	return m.createResp, m.createErr
}

func (m *exportServiceMock) GetStatus(ctx context.Context, id string) (*dto.ExportStatusResponse, error) {
	return m.statusResp, m.statusErr
}

func (m *exportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	return m.download, m.downloadErr
}

func TestExportHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &exportServiceMock{createResp: &dto.ExportJobResponse{ID: "job-1", Status: models.ExportStatusQueued}}
	handler := NewExportHandler(svc)

	payload, _ := json.Marshal(dto.ExportRequest{Format: models.ExportFormatICS})
	c, w := newGinContext(http.MethodPost, "/defense/exports", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.Create(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "/defense/exports/job-1", w.Header().Get("Location"))
	require.NotNil(t, svc.createReq)
	assert.Equal(t, models.ExportFormatICS, svc.createReq.Format)
	assert.Equal(t, "admin", svc.createActor)
}

func TestExportHandlerCreateRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &exportServiceMock{}
	handler := NewExportHandler(svc)

	c, w := newGinContext(http.MethodPost, "/defense/exports", []byte(`{"format":"csv"}`))
	handler.Create(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, svc.createReq)
}

func TestExportHandlerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	url := "/api/v1/defense/exports/download/token"
	handler := NewExportHandler(&exportServiceMock{
		statusResp: &dto.ExportStatusResponse{ID: "job-1", Status: models.ExportStatusFinished, Progress: 100, ResultURL: &url},
	})

	c, w := newGinContext(http.MethodGet, "/defense/exports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	handler.Status(c)

	require.Equal(t, http.StatusOK, w.Code)
	var got dto.ExportStatusResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
	require.NotNil(t, got.ResultURL)
	assert.Equal(t, url, *got.ResultURL)
}

func TestExportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tmp, err := os.CreateTemp(t.TempDir(), "export-*.ics")
	require.NoError(t, err)
	_, err = tmp.WriteString("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")
	require.NoError(t, err)
	_, err = tmp.Seek(0, 0)
	require.NoError(t, err)

	handler := NewExportHandler(&exportServiceMock{download: &service.ExportDownload{
		File:      tmp,
		Filename:  "defense-schedule.ics",
		Format:    models.ExportFormatICS,
		ExpiresAt: time.Now().Add(time.Hour),
	}})

	c, w := newGinContext(http.MethodGet, "/defense/exports/download/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}
	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/calendar", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "defense-schedule.ics")
	assert.Contains(t, w.Body.String(), "BEGIN:VCALENDAR")
}

func TestExportHandlerDownloadInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exportServiceMock{downloadErr: appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")})

	c, w := newGinContext(http.MethodGet, "/defense/exports/download/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	handler.Download(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExportContentType(t *testing.T) {
	assert.Equal(t, "text/csv", exportContentType(models.ExportFormatCSV))
	assert.Equal(t, "application/pdf", exportContentType(models.ExportFormatPDF))
	assert.Equal(t, "application/octet-stream", exportContentType(models.ExportFormat("xlsx")))
}
