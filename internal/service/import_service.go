package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/qr-attend-api/internal/models"
	appErrors "github.com/noah-isme/qr-attend-api/pkg/errors"
)

// Fixed positional columns of the roster import format. One header row,
// comma separated.
const (
	importColStudentID = iota
	importColGroup
	importColParentID
	importColName
	importColAge
	importColSubscriptionType
	importColDuration
	importColLevel
	importColCategory
	importColAttendanceType
	importColSubscriptionStart
	importColSubscriptionEnd
	importColNotes
)

// ImportService loads students from delimiter-separated text into the
// roster store.
type ImportService struct {
	roster RosterStore
	logger *zap.Logger
}

// NewImportService constructs the import service.
func NewImportService(roster RosterStore, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{roster: roster, logger: logger}
}

// ImportStudents parses the tabular text and inserts one student per valid
// row. Rows missing an identifier or a name are dropped silently; malformed
// numeric fields fall back to zero; identifiers already present in the
// roster are counted as skipped. Imported students default to active.
func (s *ImportService) ImportStudents(ctx context.Context, r io.Reader) (*models.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &models.ImportResult{}
	line := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("malformed import row %d", line+1))
		}
		line++
		if line == 1 {
			// header row
			continue
		}

		student := studentFromRow(row)
		if student == nil {
			result.Skipped++
			continue
		}

		if err := s.roster.Insert(ctx, student); err != nil {
			var appErr *appErrors.Error
			if errors.As(err, &appErr) && appErr.Code == appErrors.ErrDuplicateStudentID.Code {
				result.Skipped++
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to import students")
		}
		result.Imported++
	}

	s.logger.Info("roster import finished",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func studentFromRow(row []string) *models.Student {
	studentID := field(row, importColStudentID)
	name := field(row, importColName)
	if studentID == "" || name == "" {
		return nil
	}

	subscription := models.SubscriptionType(strings.ToLower(field(row, importColSubscriptionType)))
	if !subscription.Valid() {
		subscription = models.SubscriptionSquad
	}
	category := field(row, importColCategory)
	if category == "" {
		category = "First"
	}
	attendanceType := field(row, importColAttendanceType)
	if attendanceType == "" {
		attendanceType = "Offline"
	}

	return &models.Student{
		StudentID:         studentID,
		Name:              name,
		Age:               parseIntField(field(row, importColAge)),
		GroupName:         field(row, importColGroup),
		ParentID:          field(row, importColParentID),
		SubscriptionType:  subscription,
		Duration:          field(row, importColDuration),
		Level:             parseIntField(field(row, importColLevel)),
		Category:          category,
		AttendanceType:    attendanceType,
		SubscriptionStart: field(row, importColSubscriptionStart),
		SubscriptionEnd:   field(row, importColSubscriptionEnd),
		Notes:             field(row, importColNotes),
		Active:            true,
	}
}

func field(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseIntField(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
