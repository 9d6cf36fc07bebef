package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/qr-attend-api/internal/models"
	appErrors "github.com/noah-isme/qr-attend-api/pkg/errors"
	"github.com/noah-isme/qr-attend-api/pkg/export"
	"github.com/noah-isme/qr-attend-api/pkg/storage"
)

type attendanceEntriesProvider interface {
	Entries(ctx context.Context) ([]models.AttendanceEntry, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	FileName  string              `json:"file_name"`
	Token     string              `json:"token"`
	URL       string              `json:"url"`
	Format    models.ExportFormat `json:"format"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// Columns of the attendance export artifact, one row per record joined
// with its student snapshot.
var exportHeaders = []string{
	"Student ID", "Student Name", "Age", "Group", "Subscription Type",
	"Duration", "Level", "Category", "Attendance Type", "Date", "Time", "Notes",
}

const missingValue = "N/A"

// ExportService renders the attendance projection into a spreadsheet
// artifact, persists it and hands back a signed download reference.
type ExportService struct {
	entries attendanceEntriesProvider
	storage fileStorage
	signer  *storage.SignedURLSigner
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(entries attendanceEntriesProvider, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		entries: entries,
		storage: files,
		signer:  signer,
		csv:     csv,
		pdf:     pdf,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// ExportAttendance renders the full attendance listing in the requested
// format and stores it under the exports directory.
func (s *ExportService) ExportAttendance(ctx context.Context, format models.ExportFormat) (*ExportResult, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	entries, err := s.entries.Entries(ctx)
	if err != nil {
		return nil, err
	}
	dataset := buildAttendanceDataset(entries)

	var payload []byte
	switch format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Attendance Records")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	filename := fmt.Sprintf("attendance_export_%s_%s.%s", s.now().Format(models.DateLayout), exportID[:8], format)
	if _, err := s.storage.Save(filename, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, filename)
	if err != nil {
		// An artifact nobody can reference is dead weight on disk.
		if cleanupErr := s.storage.Delete(filename); cleanupErr != nil {
			s.logger.Warn("failed to remove unsigned export", zap.String("file", filename), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export url")
	}

	s.logger.Info("attendance export generated",
		zap.String("file", filename),
		zap.String("format", string(format)),
		zap.Int("rows", len(dataset.Rows)),
	)
	return &ExportResult{
		FileName:  filename,
		Token:     token,
		URL:       fmt.Sprintf("%s/exports/%s?token=%s", s.cfg.APIPrefix, filename, token),
		Format:    format,
		ExpiresAt: expiresAt,
	}, nil
}

// OpenExport validates the signed token and opens the referenced artifact.
func (s *ExportService) OpenExport(filename, token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil || relPath != filename {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found or link expired")
	}
	file, err := s.storage.Open(filename)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found or link expired")
	}
	return file, nil
}

func buildAttendanceDataset(entries []models.AttendanceEntry) export.Dataset {
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, map[string]string{
			"Student ID":        entry.StudentID,
			"Student Name":      entry.StudentName,
			"Age":               orMissingInt(entry.Student.Age),
			"Group":             orMissing(entry.Student.GroupName),
			"Subscription Type": orMissing(string(entry.Student.SubscriptionType)),
			"Duration":          orMissing(entry.Student.Duration),
			"Level":             orMissingInt(entry.Student.Level),
			"Category":          orMissing(entry.Student.Category),
			"Attendance Type":   orMissing(entry.Student.AttendanceType),
			"Date":              entry.Date,
			"Time":              entry.Time,
			"Notes":             orMissing(entry.Student.Notes),
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}

func orMissing(value string) string {
	if value == "" {
		return missingValue
	}
	return value
}

func orMissingInt(value int) string {
	if value <= 0 {
		return missingValue
	}
	return fmt.Sprintf("%d", value)
}
