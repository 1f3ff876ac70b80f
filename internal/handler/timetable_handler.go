package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest, requestedBy string) (*models.TimetableProposal, error)
	Get(ctx context.Context, id string) (*models.TimetableProposal, error)
}

type timetableExporter interface {
	Export(ctx context.Context, proposal *models.TimetableProposal, format string) (*service.ExportResult, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// TimetableHandler exposes timetable generation endpoints.
type TimetableHandler struct {
	service  timetableGenerator
	exporter timetableExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService, exporter *service.ExportService) *TimetableHandler {
	return &TimetableHandler{service: svc, exporter: exporter}
}

// Generate godoc
// @Summary Generate a weekly timetable proposal
// @Description Plans the day around the breaks and assigns subjects and instructors for every section. The seed in the response replays the same timetable.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable payload"))
		return
	}
	proposal, err := h.service.Generate(c.Request.Context(), req, requesterID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "seed", proposal.Seed)
	middleware.SetMeta(c, "warnings", len(proposal.Warnings))
	middleware.SetMeta(c, "sections", len(proposal.Timetable.Sections))
	response.Created(c, proposal, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Fetch a generated proposal
// @Tags Timetables
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	proposal, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proposal, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Render a proposal as PDF or CSV
// @Description Returns a signed, expiring download URL for the rendered file.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param payload body dto.ExportTimetableRequest true "Export format"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id}/export [post]
func (h *TimetableHandler) Export(c *gin.Context) {
	var req dto.ExportTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be pdf or csv"))
		return
	}
	proposal, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), proposal, req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ExportTimetableResponse{
		ProposalID: result.ProposalID,
		Format:     result.Format,
		URL:        result.URL,
		ExpiresAt:  result.ExpiresAt,
	})
}

// Download godoc
// @Summary Download a rendered timetable
// @Tags Timetables
// @Produce application/pdf
// @Produce text/csv
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /export/{token} [get]
func (h *TimetableHandler) Download(c *gin.Context) {
	download, err := h.exporter.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export file"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
		"Cache-Control":       "private, no-store",
	})
}
