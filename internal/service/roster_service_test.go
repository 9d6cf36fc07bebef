package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qr-attend-api/internal/models"
	appErrors "github.com/noah-isme/qr-attend-api/pkg/errors"
)

func TestRosterServiceRegister(t *testing.T) {
	store := newFakeRosterStore()
	svc := NewRosterService(store, nil, nil)

	student, err := svc.Register(context.Background(), RegisterStudentRequest{
		StudentID:        " A1 ",
		Name:             " Lina ",
		Age:              14,
		SubscriptionType: "Squad",
	})
	require.NoError(t, err)
	assert.Equal(t, "A1", student.StudentID)
	assert.Equal(t, "Lina", student.Name)
	assert.Equal(t, models.SubscriptionSquad, student.SubscriptionType)
	assert.True(t, student.Active)
	assert.NotEmpty(t, student.ID)
}

func TestRosterServiceRegisterValidation(t *testing.T) {
	svc := NewRosterService(newFakeRosterStore(), nil, nil)

	cases := []struct {
		name string
		req  RegisterStudentRequest
	}{
		{"missing student id", RegisterStudentRequest{Name: "Lina", SubscriptionType: "squad"}},
		{"missing name", RegisterStudentRequest{StudentID: "A1", SubscriptionType: "squad"}},
		{"unknown subscription type", RegisterStudentRequest{StudentID: "A1", Name: "Lina", SubscriptionType: "gold"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.req)
			appErr := appErrors.FromError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		})
	}
}

func TestRosterServiceRegisterDuplicate(t *testing.T) {
	store := newFakeRosterStore(models.Student{StudentID: "A1", Name: "Lina", Active: true})
	svc := NewRosterService(store, nil, nil)

	_, err := svc.Register(context.Background(), RegisterStudentRequest{
		StudentID:        "A1",
		Name:             "Other",
		SubscriptionType: "core",
	})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrDuplicateStudentID.Code, appErr.Code)
}

func TestRosterServiceSetActiveNotFound(t *testing.T) {
	svc := NewRosterService(newFakeRosterStore(), nil, nil)

	_, err := svc.SetActive(context.Background(), "nope", true)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRosterServiceResolve(t *testing.T) {
	store := newFakeRosterStore(
		models.Student{StudentID: "A1", Name: "Lina", Active: true},
		models.Student{StudentID: "A2", Name: "Ben", Active: false},
	)
	svc := NewRosterService(store, nil, nil)
	ctx := context.Background()

	student, err := svc.Resolve(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Lina", student.Name)

	// Unknown and inactive identifiers yield the same outcome.
	for _, code := range []string{"A2", "A3"} {
		_, err := svc.Resolve(ctx, code)
		appErr := appErrors.FromError(err)
		require.NotNil(t, appErr, code)
		assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
		assert.Equal(t, "student not registered or inactive", appErr.Message)
	}
}
