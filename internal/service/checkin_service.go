package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/qr-attend-api/internal/models"
	appErrors "github.com/noah-isme/qr-attend-api/pkg/errors"
)

type identifierResolver interface {
	Resolve(ctx context.Context, code string) (*models.Student, error)
}

// Check-in outcome labels used for metrics.
const (
	checkinOutcomeRecorded  = "recorded"
	checkinOutcomeDuplicate = "duplicate"
	checkinOutcomeUnknown   = "unknown"
	checkinOutcomeFailed    = "failed"
)

// CheckinService orchestrates one attendance recording attempt. Each call
// maps to a single user action; there is no retry and no idempotency key,
// so a network-level replay of a successful insert is not guarded against.
type CheckinService struct {
	resolver identifierResolver
	repo     AttendanceStore
	metrics  *MetricsService
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
}

// NewCheckinService constructs the check-in service.
func NewCheckinService(resolver identifierResolver, repo AttendanceStore, metrics *MetricsService, cache *CacheService, logger *zap.Logger) *CheckinService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckinService{
		resolver: resolver,
		repo:     repo,
		metrics:  metrics,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// CheckIn resolves the code against the active roster, rejects a second
// check-in for the same student on the same local calendar date, and
// otherwise records a new attendance event with the student's name captured
// as a snapshot.
//
// The duplicate check is a read followed by a write: two near-simultaneous
// attempts from different clients can both pass it. That race is accepted;
// closing it would need a (student_id, date) uniqueness constraint at the
// store level.
func (s *CheckinService) CheckIn(ctx context.Context, code string) (*models.AttendanceRecord, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "code is required")
	}

	student, err := s.resolver.Resolve(ctx, code)
	if err != nil {
		s.countOutcome(err)
		return nil, err
	}

	now := s.now()
	today := now.Format(models.DateLayout)

	existing, err := s.repo.FindByStudentAndDate(ctx, student.StudentID, today)
	if err != nil && err != sql.ErrNoRows {
		s.metrics.RecordCheckin(checkinOutcomeFailed)
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to check existing attendance")
	}
	if existing != nil {
		s.metrics.RecordCheckin(checkinOutcomeDuplicate)
		return nil, appErrors.Clone(appErrors.ErrAlreadyCheckedIn,
			fmt.Sprintf("%s already checked in today at %s", student.Name, existing.Time))
	}

	record := &models.AttendanceRecord{
		StudentID:   student.StudentID,
		StudentName: student.Name,
		Date:        today,
		Time:        now.Format(models.TimeLayout),
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		s.metrics.RecordCheckin(checkinOutcomeFailed)
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to record attendance")
	}

	// The cached summary is stale the moment a new record lands.
	_ = s.cache.Invalidate(ctx, summaryCacheKey)

	s.metrics.RecordCheckin(checkinOutcomeRecorded)
	s.logger.Info("attendance recorded",
		zap.String("student_id", record.StudentID),
		zap.String("date", record.Date),
		zap.String("time", record.Time),
	)
	return record, nil
}

func (s *CheckinService) countOutcome(err error) {
	appErr := appErrors.FromError(err)
	if appErr != nil && appErr.Code == appErrors.ErrNotFound.Code {
		s.metrics.RecordCheckin(checkinOutcomeUnknown)
		return
	}
	s.metrics.RecordCheckin(checkinOutcomeFailed)
}
