package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qr-attend-api/internal/models"
	appErrors "github.com/noah-isme/qr-attend-api/pkg/errors"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "name", "age", "group_name", "parent_id", "subscription_type", "duration", "level", "category", "attendance_type", "subscription_start", "subscription_end", "notes", "active", "created_at"})
}

func TestStudentRepositoryFindByStudentID(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := studentRows().
		AddRow("u1", "A1", "Lina", 14, "G1", "", "squad", "month", 2, "First", "Offline", "", "", "", true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, name, age, group_name, parent_id, subscription_type, duration, level, category, attendance_type, subscription_start, subscription_end, notes, active, created_at FROM students WHERE student_id = $1")).
		WithArgs("A1").
		WillReturnRows(rows)

	student, err := repo.FindByStudentID(context.Background(), "A1")
	require.NoError(t, err)
	assert.Equal(t, "A1", student.StudentID)
	assert.Equal(t, "Lina", student.Name)
	assert.True(t, student.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByStudentIDNotFound(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT .* FROM students WHERE student_id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	student, err := repo.FindByStudentID(context.Background(), "missing")
	assert.Nil(t, student)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStudentRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{StudentID: "A1", Name: "Lina", SubscriptionType: models.SubscriptionSquad, Active: true}
	err := repo.Insert(context.Background(), student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.False(t, student.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryInsertDuplicate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := repo.Insert(context.Background(), &models.Student{StudentID: "A1", Name: "Lina"})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrDuplicateStudentID.Code, appErr.Code)
}

func TestStudentRepositorySetActive(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := studentRows().
		AddRow("u1", "A1", "Lina", 14, "G1", "", "squad", "month", 2, "First", "Offline", "", "", "", false, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE students SET active = $2 WHERE id = $1 RETURNING")).
		WithArgs("u1", false).
		WillReturnRows(rows)

	student, err := repo.SetActive(context.Background(), "u1", false)
	require.NoError(t, err)
	assert.False(t, student.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := studentRows().
		AddRow("u1", "A1", "Ben", 12, "", "", "core", "", 0, "", "", "", "", "", true, time.Now()).
		AddRow("u2", "A2", "Lina", 14, "", "", "squad", "", 0, "", "", "", "", "", false, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM students ORDER BY name ASC, student_id ASC")).
		WillReturnRows(rows)

	students, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, students, 2)
	assert.Equal(t, "Ben", students[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
