package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/noah-isme/qr-attend-api/internal/models"
	appErrors "github.com/noah-isme/qr-attend-api/pkg/errors"
)

// fakeRosterStore is a map-backed RosterStore with injectable failures.
type fakeRosterStore struct {
	byID      map[string]*models.Student
	byStudent map[string]*models.Student

	findErr   error
	insertErr error
	listErr   error
}

func newFakeRosterStore(students ...models.Student) *fakeRosterStore {
	store := &fakeRosterStore{
		byID:      make(map[string]*models.Student),
		byStudent: make(map[string]*models.Student),
	}
	for i := range students {
		s := students[i]
		if s.ID == "" {
			s.ID = "id-" + s.StudentID
		}
		store.byID[s.ID] = &s
		store.byStudent[s.StudentID] = &s
	}
	return store
}

func (f *fakeRosterStore) FindByStudentID(ctx context.Context, studentID string) (*models.Student, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	student, ok := f.byStudent[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *student
	return &copied, nil
}

func (f *fakeRosterStore) Insert(ctx context.Context, student *models.Student) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, taken := f.byStudent[student.StudentID]; taken {
		return appErrors.Clone(appErrors.ErrDuplicateStudentID, "")
	}
	if student.ID == "" {
		student.ID = "id-" + student.StudentID
	}
	stored := *student
	f.byID[stored.ID] = &stored
	f.byStudent[stored.StudentID] = &stored
	return nil
}

func (f *fakeRosterStore) SetActive(ctx context.Context, id string, active bool) (*models.Student, error) {
	student, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	student.Active = active
	copied := *student
	return &copied, nil
}

func (f *fakeRosterStore) ListAll(ctx context.Context) ([]models.Student, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	students := make([]models.Student, 0, len(f.byID))
	for _, student := range f.byID {
		students = append(students, *student)
	}
	return students, nil
}

// fakeAttendanceStore is a slice-backed AttendanceStore with injectable
// failures.
type fakeAttendanceStore struct {
	records []models.AttendanceRecord

	findErr   error
	insertErr error
	listErr   error
}

func (f *fakeAttendanceStore) FindByStudentAndDate(ctx context.Context, studentID, date string) (*models.AttendanceRecord, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for i := range f.records {
		if f.records[i].StudentID == studentID && f.records[i].Date == date {
			copied := f.records[i]
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAttendanceStore) Insert(ctx context.Context, record *models.AttendanceRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if record.ID == "" {
		record.ID = "rec-" + record.StudentID + "-" + record.Date
	}
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeAttendanceStore) ListAll(ctx context.Context) ([]models.AttendanceRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	records := make([]models.AttendanceRecord, len(f.records))
	copy(records, f.records)
	return records, nil
}

func (f *fakeAttendanceStore) ListByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	records := make([]models.AttendanceRecord, 0)
	for i := range f.records {
		if f.records[i].Date == date {
			records = append(records, f.records[i])
		}
	}
	return records, nil
}

// fakeCacheRepository stores marshalled payloads in memory.
type fakeCacheRepository struct {
	entries map[string][]byte
	sets    int
}

func newFakeCacheRepository() *fakeCacheRepository {
	return &fakeCacheRepository{entries: make(map[string][]byte)}
}

func (f *fakeCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	f.sets++
	return nil
}

func (f *fakeCacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	f.entries = make(map[string][]byte)
	return nil
}
