package service

import (
	"context"

	"github.com/noah-isme/qr-attend-api/internal/models"
)

// RosterStore is the backend-agnostic contract for the authoritative set of
// student records. Two implementations exist: the in-process local store
// and the PostgreSQL store; the driver is chosen at startup and consumers
// only ever see this interface. Stores enforce no business rules beyond
// identifier uniqueness.
type RosterStore interface {
	FindByStudentID(ctx context.Context, studentID string) (*models.Student, error)
	Insert(ctx context.Context, student *models.Student) error
	SetActive(ctx context.Context, id string, active bool) (*models.Student, error)
	ListAll(ctx context.Context) ([]models.Student, error)
}

// AttendanceStore is the backend-agnostic contract for the append-only
// check-in log.
type AttendanceStore interface {
	FindByStudentAndDate(ctx context.Context, studentID, date string) (*models.AttendanceRecord, error)
	Insert(ctx context.Context, record *models.AttendanceRecord) error
	ListAll(ctx context.Context) ([]models.AttendanceRecord, error)
	ListByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error)
}
