package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

// Export formats.
const (
	FormatPDF = "pdf"
	FormatCSV = "csv"
)

// Column layouts of the rendered timetables.
var (
	pdfHeaders = []string{"Time", "Type", "Subject", "Instructor", "Room"}
	csvHeaders = []string{"Section", "Day", "Start", "End", "Type", "Subject", "Instructor", "Room"}
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	ProposalID   string
	RelativePath string
	Token        string
	URL          string
	Format       string
	ExpiresAt    time.Time
}

// ExportDownload is an opened export ready to stream. Callers close File.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportService renders proposals and persists the files behind signed download links.
type ExportService struct {
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(storage fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		storage: storage,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Render produces the file body for a proposal without storing it.
func (s *ExportService) Render(proposal *models.TimetableProposal, format string) ([]byte, error) {
	if proposal == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
	}
	var (
		payload []byte
		err     error
	)
	switch strings.ToLower(format) {
	case FormatCSV:
		payload, err = s.csv.Render(TimetableTable(proposal))
	case FormatPDF:
		payload, err = s.pdf.Render(TimetableDocument(proposal))
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}
	return payload, nil
}

// Export renders the proposal, stores it and returns a signed download URL.
func (s *ExportService) Export(ctx context.Context, proposal *models.TimetableProposal, format string) (*ExportResult, error) {
	format = strings.ToLower(format)
	payload, err := s.Render(proposal, format)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(proposal, format), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(proposal.ID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	s.metrics.ObserveExport(format)
	s.logger.Info("timetable exported",
		zap.String("proposal_id", proposal.ID),
		zap.String("format", format),
		zap.String("path", relPath),
		zap.Int("bytes", len(payload)))

	return &ExportResult{
		ProposalID:   proposal.ID,
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ResolveDownload validates a token and opens the stored export file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	signed, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download token expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	file, err := s.storage.Open(signed.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	filename := filepath.Base(signed.Path)
	return &ExportDownload{
		File:        file,
		Filename:    filename,
		ContentType: contentTypeFor(filename),
		ExpiresAt:   signed.ExpiresAt,
	}, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// StartCleanup boots a goroutine that purges expired exports until ctx is cancelled.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.Cleanup(0)
				if err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(deleted) > 0 {
					s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
				}
			}
		}
	}()
}

func (s *ExportService) buildFilename(proposal *models.TimetableProposal, format string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	id := proposal.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return filepath.Join("timetables", fmt.Sprintf("%s_%s_%s.%s", sanitizeFilename(strings.ToLower(proposal.GroupName)), id, timestamp, format))
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "timetable"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

// TimetableDocument lays out every section and day as its own titled table.
func TimetableDocument(proposal *models.TimetableProposal) export.Document {
	doc := export.Document{
		Title:    proposal.GroupName,
		Subtitle: fmt.Sprintf("Seed %d, generated %s", proposal.Seed, proposal.RequestedAt.UTC().Format("2006-01-02 15:04 MST")),
	}
	for _, section := range proposal.Timetable.Sections {
		for _, day := range section.Days {
			table := export.Table{
				Title:   fmt.Sprintf("%s - %s", section.Section, day.Day),
				Headers: pdfHeaders,
				Rows:    make([][]string, 0, len(day.Entries)),
				Shaded:  make(map[int]bool),
			}
			for i, entry := range day.Entries {
				subject, instructor := entryCells(entry)
				table.Rows = append(table.Rows, []string{
					fmt.Sprintf("%s-%s", entry.Slot.Start, entry.Slot.End),
					string(entry.Slot.Kind),
					subject,
					instructor,
					entry.Room,
				})
				if entry.Status == models.EntryStatusBreak {
					table.Shaded[i] = true
				}
			}
			doc.Tables = append(doc.Tables, table)
		}
	}
	return doc
}

// TimetableTable flattens the proposal into one row per entry.
func TimetableTable(proposal *models.TimetableProposal) export.Table {
	table := export.Table{Title: proposal.GroupName, Headers: csvHeaders}
	for _, section := range proposal.Timetable.Sections {
		for _, day := range section.Days {
			for _, entry := range day.Entries {
				subject, instructor := entryCells(entry)
				table.Rows = append(table.Rows, []string{
					section.Section,
					day.Day,
					entry.Slot.Start.String(),
					entry.Slot.End.String(),
					string(entry.Slot.Kind),
					subject,
					instructor,
					entry.Room,
				})
			}
		}
	}
	return table
}

func entryCells(entry models.DayEntry) (string, string) {
	switch entry.Status {
	case models.EntryStatusBreak:
		return entry.Slot.Label, ""
	case models.EntryStatusNoFaculty:
		return models.FreeLabel, models.NoFacultyAvailableNote
	}
	return entry.Subject, entry.Instructor
}
