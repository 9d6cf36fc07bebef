package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/qr-attend-api/internal/models"
	appErrors "github.com/noah-isme/qr-attend-api/pkg/errors"
)

// LocalStudentRepository keeps the roster in process memory. It satisfies
// the same contract as the PostgreSQL variant, including the sql.ErrNoRows
// sentinel, so services stay backend-agnostic.
type LocalStudentRepository struct {
	mu         sync.RWMutex
	byID       map[string]*models.Student
	byStudent  map[string]*models.Student
	everIssued map[string]struct{}
}

// NewLocalStudentRepository returns an empty in-memory roster.
func NewLocalStudentRepository() *LocalStudentRepository {
	return &LocalStudentRepository{
		byID:       make(map[string]*models.Student),
		byStudent:  make(map[string]*models.Student),
		everIssued: make(map[string]struct{}),
	}
}

// FindByStudentID fetches a student by the externally assigned identifier.
func (r *LocalStudentRepository) FindByStudentID(ctx context.Context, studentID string) (*models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	student, ok := r.byStudent[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *student
	return &copied, nil
}

// Insert stores a new student, rejecting identifiers that were ever issued.
func (r *LocalStudentRepository) Insert(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.everIssued[student.StudentID]; taken {
		return appErrors.Clone(appErrors.ErrDuplicateStudentID, "")
	}
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}
	stored := *student
	r.byID[stored.ID] = &stored
	r.byStudent[stored.StudentID] = &stored
	r.everIssued[stored.StudentID] = struct{}{}
	return nil
}

// SetActive toggles the activity flag by surrogate id.
func (r *LocalStudentRepository) SetActive(ctx context.Context, id string, active bool) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	student, ok := r.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	student.Active = active
	copied := *student
	return &copied, nil
}

// ListAll returns every student ordered by name ascending.
func (r *LocalStudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	students := make([]models.Student, 0, len(r.byID))
	for _, student := range r.byID {
		students = append(students, *student)
	}
	sort.SliceStable(students, func(i, j int) bool {
		if students[i].Name == students[j].Name {
			return students[i].StudentID < students[j].StudentID
		}
		return students[i].Name < students[j].Name
	})
	return students, nil
}
