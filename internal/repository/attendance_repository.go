package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/qr-attend-api/internal/models"
)

// AttendanceRepository persists check-in records in PostgreSQL. Records are
// append-only; there is intentionally no update or delete statement here.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `id, student_id, student_name, date, time, created_at`

// FindByStudentAndDate looks up the record for one student on one calendar
// date. Returns sql.ErrNoRows when the student has not checked in that day.
func (r *AttendanceRepository) FindByStudentAndDate(ctx context.Context, studentID, date string) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE student_id = $1 AND date = $2 LIMIT 1", attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance by student and date: %w", err)
	}
	return &record, nil
}

// Insert appends a new check-in record.
func (r *AttendanceRepository) Insert(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance (id, student_id, student_name, date, time, created_at)
        VALUES (:id, :student_id, :student_name, :date, :time, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// ListAll returns every record, most recent first.
func (r *AttendanceRepository) ListAll(ctx context.Context) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance ORDER BY created_at DESC", attendanceColumns)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// ListByDate returns the records for one calendar date, latest time first.
func (r *AttendanceRepository) ListByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE date = $1 ORDER BY time DESC", attendanceColumns)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, date); err != nil {
		return nil, fmt.Errorf("list attendance by date: %w", err)
	}
	return records, nil
}
