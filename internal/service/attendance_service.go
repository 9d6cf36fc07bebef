package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/qr-attend-api/internal/models"
	appErrors "github.com/noah-isme/qr-attend-api/pkg/errors"
)

const summaryCacheKey = "attendance:summary:today"

// AttendanceService derives read-only projections over the attendance log
// joined with the current roster snapshot. It holds no state of its own:
// every projection is recomputed from the stores on each read.
type AttendanceService struct {
	attendance AttendanceStore
	roster     RosterStore
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
}

// NewAttendanceService constructs the attendance projection service.
func NewAttendanceService(attendance AttendanceStore, roster RosterStore, cache *CacheService, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		attendance: attendance,
		roster:     roster,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// Entries returns every attendance record enriched with the student looked
// up by identifier in the current roster. A record whose student is gone
// from the roster keeps a zero-value snapshot instead of failing the whole
// projection.
func (s *AttendanceService) Entries(ctx context.Context) ([]models.AttendanceEntry, error) {
	records, err := s.attendance.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list attendance")
	}
	index, err := s.rosterIndex(ctx)
	if err != nil {
		return nil, err
	}
	return joinEntries(records, index), nil
}

// Today returns the entries for the current local calendar date, latest
// check-in first.
func (s *AttendanceService) Today(ctx context.Context) ([]models.AttendanceEntry, error) {
	today := s.now().Format(models.DateLayout)
	records, err := s.attendance.ListByDate(ctx, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list todays attendance")
	}
	index, err := s.rosterIndex(ctx)
	if err != nil {
		return nil, err
	}
	return joinEntries(records, index), nil
}

// StudentHistory returns the full history for one student identifier,
// newest date and time first. Records of deactivated students remain
// visible here.
func (s *AttendanceService) StudentHistory(ctx context.Context, studentID string) ([]models.AttendanceEntry, error) {
	records, err := s.attendance.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list attendance")
	}
	filtered := make([]models.AttendanceRecord, 0, len(records))
	for _, record := range records {
		if record.StudentID == studentID {
			filtered = append(filtered, record)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Date == filtered[j].Date {
			return filtered[i].Time > filtered[j].Time
		}
		return filtered[i].Date > filtered[j].Date
	})
	index, err := s.rosterIndex(ctx)
	if err != nil {
		return nil, err
	}
	return joinEntries(filtered, index), nil
}

// Summary aggregates the dashboard numbers for today. The result is served
// from cache when one is configured; a cache failure falls back to a fresh
// computation.
func (s *AttendanceService) Summary(ctx context.Context) (*models.TodaySummary, error) {
	var cached models.TodaySummary
	today := s.now().Format(models.DateLayout)
	if hit, _ := s.cache.Get(ctx, summaryCacheKey, &cached); hit && cached.Date == today {
		return &cached, nil
	}

	students, err := s.roster.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list students")
	}
	records, err := s.attendance.ListByDate(ctx, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list todays attendance")
	}

	active := 0
	for _, student := range students {
		if student.Active {
			active++
		}
	}
	summary := &models.TodaySummary{
		Date:           today,
		ActiveStudents: active,
		PresentToday:   len(records),
	}
	if active > 0 {
		summary.AttendanceRate = int(math.Round(float64(len(records)) / float64(active) * 100))
	}

	if err := s.cache.Set(ctx, summaryCacheKey, summary, 0); err != nil {
		s.logger.Warn("summary cache write failed", zap.Error(err))
	}
	return summary, nil
}

func (s *AttendanceService) rosterIndex(ctx context.Context) (map[string]models.Student, error) {
	students, err := s.roster.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list students")
	}
	index := make(map[string]models.Student, len(students))
	for _, student := range students {
		index[student.StudentID] = student
	}
	return index, nil
}

func joinEntries(records []models.AttendanceRecord, roster map[string]models.Student) []models.AttendanceEntry {
	entries := make([]models.AttendanceEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, models.AttendanceEntry{
			AttendanceRecord: record,
			Student:          roster[record.StudentID],
		})
	}
	return entries
}
