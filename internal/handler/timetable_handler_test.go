package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type timetableServiceMock struct {
	captured    dto.GenerateTimetableRequest
	requestedBy string
	proposal    *models.TimetableProposal
	err         error
}

func (m *timetableServiceMock) Generate(ctx context.Context, req dto.GenerateTimetableRequest, requestedBy string) (*models.TimetableProposal, error) {
	m.captured = req
	m.requestedBy = requestedBy
	return m.proposal, m.err
}

func (m *timetableServiceMock) Get(ctx context.Context, id string) (*models.TimetableProposal, error) {
	if m.proposal == nil || m.proposal.ID != id {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	return m.proposal, nil
}

type exporterMock struct {
	format   string
	result   *service.ExportResult
	download *service.ExportDownload
	err      error
}

func (m *exporterMock) Export(ctx context.Context, proposal *models.TimetableProposal, format string) (*service.ExportResult, error) {
	m.format = format
	return m.result, m.err
}

func (m *exporterMock) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	return m.download, m.err
}

func newTestContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func sampleProposal() *models.TimetableProposal {
	return &models.TimetableProposal{
		ID:        "6f0b1c2d-3e4f-4a5b-8c7d-9e0f1a2b3c4d",
		GroupName: "XI IPA",
		Seed:      42,
		Timetable: models.MultiSectionTimetable{Sections: []models.Timetable{{Section: "Section 1"}}},
		Warnings:  []models.GenerationWarning{},
	}
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestTimetableHandlerGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &timetableServiceMock{proposal: sampleProposal()}
	handler := &TimetableHandler{service: svc, exporter: &exporterMock{}}

	payload, _ := json.Marshal(dto.GenerateTimetableRequest{
		StartTime:     "08:00",
		EndTime:       "14:00",
		ClassesPerDay: 5,
		Subjects:      []dto.SubjectRequest{{Name: "Math", Faculty: []string{"Alice"}}},
	})
	c, w := newTestContext(http.MethodPost, "/timetables/generate", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "coord-7", Role: models.RoleCoordinator})

	handler.Generate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "coord-7", svc.requestedBy)
	assert.Equal(t, 5, svc.captured.ClassesPerDay)
	body := decodeEnvelope(t, w)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, sampleProposal().ID, data["proposalId"])
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, float64(42), meta["seed"])
}

func TestTimetableHandlerGenerateErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := &TimetableHandler{service: &timetableServiceMock{}, exporter: &exporterMock{}}
	c, w := newTestContext(http.MethodPost, "/timetables/generate", []byte(`{"startTime":`))
	handler.Generate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	handler = &TimetableHandler{service: &timetableServiceMock{err: appErrors.Clone(appErrors.ErrInsufficientTime, "")}, exporter: &exporterMock{}}
	c, w = newTestContext(http.MethodPost, "/timetables/generate", []byte(`{"startTime":"08:00","endTime":"08:05","classesPerDay":9}`))
	handler.Generate(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "INSUFFICIENT_TIME", errBody["code"])
}

func TestTimetableHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TimetableHandler{service: &timetableServiceMock{proposal: sampleProposal()}, exporter: &exporterMock{}}

	c, w := newTestContext(http.MethodGet, "/timetables/x", nil)
	c.Params = gin.Params{{Key: "id", Value: sampleProposal().ID}}
	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext(http.MethodGet, "/timetables/x", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &exporterMock{result: &service.ExportResult{
		ProposalID: sampleProposal().ID,
		Format:     "pdf",
		URL:        "/api/v1/export/token",
		ExpiresAt:  time.Now().Add(time.Hour),
	}}
	handler := &TimetableHandler{service: &timetableServiceMock{proposal: sampleProposal()}, exporter: exporter}

	c, w := newTestContext(http.MethodPost, "/timetables/x/export", []byte(`{"format":"pdf"}`))
	c.Params = gin.Params{{Key: "id", Value: sampleProposal().ID}}
	handler.Export(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "pdf", exporter.format)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "/api/v1/export/token", data["url"])

	c, w = newTestContext(http.MethodPost, "/timetables/x/export", []byte(`{"format":"docx"}`))
	c.Params = gin.Params{{Key: "id", Value: sampleProposal().ID}}
	handler.Export(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	file, err := os.CreateTemp(t.TempDir(), "timetable*.csv")
	require.NoError(t, err)
	_, _ = file.WriteString("Section,Day\n")
	_, _ = file.Seek(0, 0)

	handler := &TimetableHandler{service: &timetableServiceMock{}, exporter: &exporterMock{download: &service.ExportDownload{
		File:        file,
		Filename:    "xi_ipa.csv",
		ContentType: "text/csv",
		ExpiresAt:   time.Now().Add(time.Hour),
	}}}

	c, w := newTestContext(http.MethodGet, "/export/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}
	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "xi_ipa.csv")
	assert.Equal(t, "Section,Day\n", w.Body.String())
}

func TestTimetableHandlerDownloadForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TimetableHandler{service: &timetableServiceMock{}, exporter: &exporterMock{err: appErrors.Clone(appErrors.ErrForbidden, "invalid download token")}}

	c, w := newTestContext(http.MethodGet, "/export/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	handler.Download(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
