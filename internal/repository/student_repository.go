package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/qr-attend-api/internal/models"
	appErrors "github.com/noah-isme/qr-attend-api/pkg/errors"
)

// pq error code for unique constraint violations.
const uniqueViolation = "23505"

// StudentRepository persists the roster in PostgreSQL.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, student_id, name, age, group_name, parent_id, subscription_type, duration, level, category, attendance_type, subscription_start, subscription_end, notes, active, created_at`

// FindByStudentID fetches a student by the externally assigned identifier.
// Returns sql.ErrNoRows when no student carries the identifier.
func (r *StudentRepository) FindByStudentID(ctx context.Context, studentID string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE student_id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by student_id: %w", err)
	}
	return &student, nil
}

// Insert stores a new student. The student_id unique index rejects
// duplicates regardless of active state, which keeps identifier uniqueness
// across all students ever created.
func (r *StudentRepository) Insert(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO students (id, student_id, name, age, group_name, parent_id, subscription_type, duration, level, category, attendance_type, subscription_start, subscription_end, notes, active, created_at)
        VALUES (:id, :student_id, :name, :age, :group_name, :parent_id, :subscription_type, :duration, :level, :category, :attendance_type, :subscription_start, :subscription_end, :notes, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return appErrors.Clone(appErrors.ErrDuplicateStudentID, "")
		}
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// SetActive toggles the activity flag and returns the updated row.
func (r *StudentRepository) SetActive(ctx context.Context, id string, active bool) (*models.Student, error) {
	query := fmt.Sprintf("UPDATE students SET active = $2 WHERE id = $1 RETURNING %s", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id, active); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("set student active: %w", err)
	}
	return &student, nil
}

// ListAll returns every student, active or not, ordered by name with the
// identifier as tie-breaker so repeat reads agree on equal names.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students ORDER BY name ASC, student_id ASC", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}
