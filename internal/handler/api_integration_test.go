package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qr-attend-api/internal/repository"
	"github.com/noah-isme/qr-attend-api/internal/service"
	"github.com/noah-isme/qr-attend-api/pkg/storage"
)

func buildTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rosterStore := repository.NewLocalStudentRepository()
	attendanceStore := repository.NewLocalAttendanceRepository()

	fileStore, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)

	rosterSvc := service.NewRosterService(rosterStore, nil, nil)
	checkinSvc := service.NewCheckinService(rosterSvc, attendanceStore, nil, nil, nil)
	attendanceSvc := service.NewAttendanceService(attendanceStore, rosterStore, nil, nil)
	importSvc := service.NewImportService(rosterStore, nil)
	exportSvc := service.NewExportService(attendanceSvc, fileStore, signer,
		service.ExportConfig{APIPrefix: "/api/v1"}, nil, nil, nil)

	studentHandler := NewStudentHandler(rosterSvc, attendanceSvc, importSvc)
	checkinHandler := NewCheckinHandler(checkinSvc)
	attendanceHandler := NewAttendanceHandler(attendanceSvc)
	exportHandler := NewExportHandler(exportSvc)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/checkins", checkinHandler.Create)
	api.GET("/attendance", attendanceHandler.List)
	api.GET("/attendance/today", attendanceHandler.Today)
	api.GET("/attendance/summary", attendanceHandler.Summary)
	api.GET("/students", studentHandler.List)
	api.POST("/students", studentHandler.Create)
	api.POST("/students/import", studentHandler.Import)
	api.PATCH("/students/:id/active", studentHandler.SetActive)
	api.GET("/students/:id/attendance", studentHandler.History)
	api.POST("/exports/attendance", exportHandler.Create)
	api.GET("/exports/:filename", exportHandler.Download)
	return r
}

func performRequest(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func postJSON(r *gin.Engine, path, payload string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	return performRequest(r, req)
}

func TestAPICheckinFlow(t *testing.T) {
	router := buildTestRouter(t)

	resp := postJSON(router, "/api/v1/students", `{"student_id":"A1","name":"Lina","age":14,"subscription_type":"squad"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Contains(t, resp.Body.String(), `"student_id":"A1"`)

	t.Run("duplicate registration", func(t *testing.T) {
		resp := postJSON(router, "/api/v1/students", `{"student_id":"A1","name":"Other","subscription_type":"core"}`)
		require.Equal(t, http.StatusConflict, resp.Code)
		require.Contains(t, resp.Body.String(), "DUPLICATE_STUDENT_ID")
	})

	t.Run("check-in recorded", func(t *testing.T) {
		resp := postJSON(router, "/api/v1/checkins", `{"code":"A1"}`)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Contains(t, resp.Body.String(), `"student_name":"Lina"`)
	})

	t.Run("second check-in same day conflicts", func(t *testing.T) {
		resp := postJSON(router, "/api/v1/checkins", `{"code":"A1"}`)
		require.Equal(t, http.StatusConflict, resp.Code)
		require.Contains(t, resp.Body.String(), "ALREADY_CHECKED_IN")
		require.Contains(t, resp.Body.String(), "Lina already checked in today")
	})

	t.Run("unknown code", func(t *testing.T) {
		resp := postJSON(router, "/api/v1/checkins", `{"code":"nope"}`)
		require.Equal(t, http.StatusNotFound, resp.Code)
		require.Contains(t, resp.Body.String(), "not registered or inactive")
	})

	t.Run("blank code", func(t *testing.T) {
		resp := postJSON(router, "/api/v1/checkins", `{"code":"   "}`)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("today listing", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/attendance/today", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"student_id":"A1"`)
	})

	t.Run("summary", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/attendance/summary", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"present_today":1`)
		require.Contains(t, resp.Body.String(), `"attendance_rate":100`)
	})

	t.Run("student history", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/students/A1/attendance", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"student_id":"A1"`)
	})
}

func TestAPIDeactivationBlocksCheckin(t *testing.T) {
	router := buildTestRouter(t)

	resp := postJSON(router, "/api/v1/students", `{"student_id":"A1","name":"Lina","subscription_type":"squad"}`)
	require.Equal(t, http.StatusCreated, resp.Code)

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)

	req, _ := http.NewRequest(http.MethodPatch,
		fmt.Sprintf("/api/v1/students/%s/active", created.Data.ID),
		bytes.NewBufferString(`{"active":false}`))
	req.Header.Set("Content-Type", "application/json")
	patchResp := performRequest(router, req)
	require.Equal(t, http.StatusOK, patchResp.Code)
	require.Contains(t, patchResp.Body.String(), `"is_active":false`)

	// An inactive student scans like an unknown one.
	checkinResp := postJSON(router, "/api/v1/checkins", `{"code":"A1"}`)
	require.Equal(t, http.StatusNotFound, checkinResp.Code)
}

func TestAPIImportMultipart(t *testing.T) {
	router := buildTestRouter(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "students.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("student_id,group,parent_id,name,age,subscription_type,duration,level,category,attendance_type,subscription_start,subscription_end,notes\n" +
		"A1,G1,,Lina,14,squad,month,2,First,Offline,,,\n" +
		",G1,,No Identifier,12,squad,,,,,,,\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/students/import", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"imported":1`)
	assert.Contains(t, resp.Body.String(), `"skipped":1`)

	listReq, _ := http.NewRequest(http.MethodGet, "/api/v1/students", nil)
	listResp := performRequest(router, listReq)
	require.Equal(t, http.StatusOK, listResp.Code)
	assert.Contains(t, listResp.Body.String(), `"name":"Lina"`)
}

func TestAPIImportRawCSV(t *testing.T) {
	router := buildTestRouter(t)

	csvBody := "student_id,group,parent_id,name,age,subscription_type,duration,level,category,attendance_type,subscription_start,subscription_end,notes\n" +
		"A2,,,Ben,13,core,,,,,,,\n"
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/students/import", strings.NewReader(csvBody))
	req.Header.Set("Content-Type", "text/csv")
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"imported":1`)
}

func TestAPIExportDownload(t *testing.T) {
	router := buildTestRouter(t)

	resp := postJSON(router, "/api/v1/students", `{"student_id":"A1","name":"Lina","subscription_type":"squad"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	resp = postJSON(router, "/api/v1/checkins", `{"code":"A1"}`)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = postJSON(router, "/api/v1/exports/attendance", `{"format":"csv"}`)
	require.Equal(t, http.StatusCreated, resp.Code)

	var created struct {
		Data struct {
			FileName string `json:"file_name"`
			Token    string `json:"token"`
			URL      string `json:"url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.FileName)

	downloadURL := fmt.Sprintf("/api/v1/exports/%s?token=%s",
		created.Data.FileName, url.QueryEscape(created.Data.Token))
	req, _ := http.NewRequest(http.MethodGet, downloadURL, nil)
	downloadResp := performRequest(router, req)
	require.Equal(t, http.StatusOK, downloadResp.Code)
	assert.Contains(t, downloadResp.Body.String(), "Student ID,Student Name")
	assert.Contains(t, downloadResp.Body.String(), "Lina")

	t.Run("tampered token rejected", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet,
			fmt.Sprintf("/api/v1/exports/%s?token=bogus", created.Data.FileName), nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("unsupported format rejected", func(t *testing.T) {
		resp := postJSON(router, "/api/v1/exports/attendance", `{"format":"xlsx"}`)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})
}
