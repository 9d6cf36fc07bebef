package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/qr-attend-api/internal/models"
)

// LocalAttendanceRepository keeps check-in records in process memory.
// Append-only, mirroring the PostgreSQL variant.
type LocalAttendanceRepository struct {
	mu      sync.RWMutex
	records []models.AttendanceRecord
}

// NewLocalAttendanceRepository returns an empty in-memory attendance log.
func NewLocalAttendanceRepository() *LocalAttendanceRepository {
	return &LocalAttendanceRepository{}
}

// FindByStudentAndDate looks up the record for one student on one date.
func (r *LocalAttendanceRepository) FindByStudentAndDate(ctx context.Context, studentID, date string) (*models.AttendanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.records {
		if r.records[i].StudentID == studentID && r.records[i].Date == date {
			copied := r.records[i]
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

// Insert appends a new check-in record.
func (r *LocalAttendanceRepository) Insert(ctx context.Context, record *models.AttendanceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	r.records = append(r.records, *record)
	return nil
}

// ListAll returns every record, most recent first. Insertion order breaks
// ties so repeated reads stay stable.
func (r *LocalAttendanceRepository) ListAll(ctx context.Context) ([]models.AttendanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]models.AttendanceRecord, len(r.records))
	copy(records, r.records)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// ListByDate returns the records for one calendar date, latest time first.
func (r *LocalAttendanceRepository) ListByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]models.AttendanceRecord, 0)
	for i := range r.records {
		if r.records[i].Date == date {
			records = append(records, r.records[i])
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Time > records[j].Time
	})
	return records, nil
}
