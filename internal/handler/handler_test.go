package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"classtrack/internal/attendance"
	"classtrack/internal/auth"
	"classtrack/internal/qrpass"
	"classtrack/internal/roster"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "classtrack-test"
)

type testEnv struct {
	router *gin.Engine
	att    *attendance.Service
	roster *roster.Service
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rosterSvc := roster.NewService(roster.NewMemoryRepository())
	cal, err := attendance.NewCalendar(time.UTC, nil)
	require.NoError(t, err)
	attSvc := attendance.NewService(rosterSvc, attendance.NewMemoryRepository(), attendance.DefaultSchedule(), cal, nil, zap.NewNop())

	authSvc := auth.NewService(auth.NewMemoryTeacherRepository(), testIssuer, testKey, time.Hour, 24*time.Hour)
	_, err = authSvc.Register(context.Background(), "Maria Lopez", "maria@school.local", "s3cret")
	require.NoError(t, err)

	router := gin.New()
	New(rosterSvc, attSvc, authSvc, zap.NewNop()).Register(router, testKey, testIssuer)

	env := &testEnv{router: router, att: attSvc, roster: rosterSvc}
	env.token = env.login(t, "maria@school.local", "s3cret")
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/auth/login", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	rec := env.do(t, http.MethodPost, "/v1/auth/login", gin.H{"email": "maria@school.local", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	for _, path := range []string{"/v1/students", "/v1/sections", "/v1/attendance", "/v1/stats"} {
		rec := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestEnrollAndFetchStudent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/students", gin.H{
		"lrn": "2024001", "name": "Ana Santos", "section": "Grade 4A", "parentEmail": "mom@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var st roster.Student
	decode(t, rec, &st)
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, "2024001", st.LRN)
	assert.Equal(t, "mom@example.com", st.GuardianEmail)

	rec = env.do(t, http.MethodGet, "/v1/students/"+st.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Legacy spelling enrolls too.
	rec = env.do(t, http.MethodPost, "/v1/students", gin.H{
		"studentId": "2024002", "fullName": "Ben Cruz", "section": "Grade 4A",
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Duplicate LRN conflicts.
	rec = env.do(t, http.MethodPost, "/v1/students", gin.H{"lrn": "2024001", "name": "Someone Else"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStudentQRReturnsPNG(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/students", gin.H{"lrn": "2024001", "name": "Ana Santos"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var st roster.Student
	decode(t, rec, &st)

	rec = env.do(t, http.MethodGet, "/v1/students/"+st.ID+"/qr?size=128", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestScanFlow(t *testing.T) {
	env := newTestEnv(t)
	env.att.WithClock(func() time.Time {
		return time.Date(2026, 3, 2, 7, 45, 0, 0, time.UTC) // Monday morning
	})

	rec := env.do(t, http.MethodPost, "/v1/students", gin.H{"lrn": "2024001", "name": "Ana Santos", "section": "Grade 4A"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var st roster.Student
	decode(t, rec, &st)

	payload, err := qrpass.Encode(st, "teacher-1")
	require.NoError(t, err)

	rec = env.do(t, http.MethodPost, "/v1/scans", gin.H{"payload": payload})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var scan struct {
		Created bool `json:"created"`
		Record  struct {
			Period string `json:"period"`
			Status string `json:"status"`
			Day    string `json:"date"`
		} `json:"record"`
	}
	decode(t, rec, &scan)
	assert.True(t, scan.Created)
	assert.Equal(t, "morning", scan.Record.Period)
	assert.Equal(t, "present", scan.Record.Status)
	assert.Equal(t, "2026-03-02", scan.Record.Day)

	// Re-scan after the late cutoff overrides the same record.
	env.att.WithClock(func() time.Time {
		return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	})
	rec = env.do(t, http.MethodPost, "/v1/scans", gin.H{"payload": payload})
	require.Equal(t, http.StatusOK, rec.Code)

	var rescan struct {
		Created        bool   `json:"created"`
		PreviousStatus string `json:"previous_status"`
		Record         struct {
			Status string `json:"status"`
		} `json:"record"`
	}
	decode(t, rec, &rescan)
	assert.False(t, rescan.Created)
	assert.Equal(t, "present", rescan.PreviousStatus)
	assert.Equal(t, "late", rescan.Record.Status)
}

func TestScanRejectsBadPayloads(t *testing.T) {
	env := newTestEnv(t)
	env.att.WithClock(func() time.Time {
		return time.Date(2026, 3, 2, 7, 45, 0, 0, time.UTC)
	})

	rec := env.do(t, http.MethodPost, "/v1/scans", gin.H{"payload": "not json"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid QR Code")

	rec = env.do(t, http.MethodPost, "/v1/scans", gin.H{"payload": `{"studentId":"no-such"}`})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Student Not Found")
}

func TestScanRejectsNonSchoolDay(t *testing.T) {
	env := newTestEnv(t)
	env.att.WithClock(func() time.Time {
		return time.Date(2026, 3, 7, 7, 45, 0, 0, time.UTC) // Saturday
	})

	rec := env.do(t, http.MethodPost, "/v1/students", gin.H{"lrn": "2024001", "name": "Ana Santos"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/scans", gin.H{"payload": `{"studentId":"2024001"}`})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatsAndAttendanceList(t *testing.T) {
	env := newTestEnv(t)
	env.att.WithClock(func() time.Time {
		return time.Date(2026, 3, 2, 7, 45, 0, 0, time.UTC)
	})

	for i, name := range []string{"Ana Santos", "Ben Cruz", "Carla Reyes"} {
		rec := env.do(t, http.MethodPost, "/v1/students", gin.H{
			"lrn": fmt.Sprintf("202400%d", i+1), "name": name, "section": "Grade 4A",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/v1/scans", gin.H{"payload": `{"studentId":"2024001"}`})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/v1/stats?date=2026-03-02&period=morning", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		Sections []struct {
			Section string `json:"section"`
			Periods map[string]struct {
				Present int `json:"present"`
				Late    int `json:"late"`
				Absent  int `json:"absent"`
			} `json:"periods"`
		} `json:"sections"`
	}
	decode(t, rec, &stats)
	require.Len(t, stats.Sections, 1)
	assert.Equal(t, "Grade 4A", stats.Sections[0].Section)
	assert.Equal(t, 1, stats.Sections[0].Periods["morning"].Present)
	assert.Equal(t, 2, stats.Sections[0].Periods["morning"].Absent)

	rec = env.do(t, http.MethodGet, "/v1/stats?period=evening", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/attendance?date=2026-03-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Records []struct {
			LRN    string `json:"lrn"`
			Status string `json:"status"`
		} `json:"records"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Records, 1)
	assert.Equal(t, "2024001", list.Records[0].LRN)
	assert.Equal(t, "present", list.Records[0].Status)
}

func TestExportSheet(t *testing.T) {
	env := newTestEnv(t)
	env.att.WithClock(func() time.Time {
		return time.Date(2026, 3, 2, 7, 45, 0, 0, time.UTC)
	})

	rec := env.do(t, http.MethodPost, "/v1/students", gin.H{"lrn": "2024001", "name": "Ana Santos", "section": "Grade 4A"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/export?date=2026-03-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attendance-2026-03-02.xlsx")
	assert.NotEmpty(t, rec.Body.Bytes())
}
