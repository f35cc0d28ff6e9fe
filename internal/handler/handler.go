package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"classtrack/internal/attendance"
	"classtrack/internal/auth"
	"classtrack/internal/export"
	"classtrack/internal/qrpass"
	"classtrack/internal/roster"
)

// Handler wires the HTTP API to the services.
type Handler struct {
	roster *roster.Service
	att    *attendance.Service
	auth   *auth.Service
	logger *zap.Logger
}

// New creates a handler.
func New(rosterSvc *roster.Service, attSvc *attendance.Service, authSvc *auth.Service, logger *zap.Logger) *Handler {
	return &Handler{roster: rosterSvc, att: attSvc, auth: authSvc, logger: logger}
}

// Register mounts all routes on r. Everything except login sits behind
// teacher JWT auth.
func (h *Handler) Register(r *gin.Engine, signingKey, issuer string) {
	r.POST("/v1/auth/login", h.Login)

	v1 := r.Group("/v1", auth.TeacherAuth(signingKey, issuer))

	v1.POST("/students", h.EnrollStudent)
	v1.GET("/students", h.ListStudents)
	v1.GET("/students/:id", h.GetStudent)
	v1.PUT("/students/:id", h.UpdateStudent)
	v1.DELETE("/students/:id", h.DeleteStudent)
	v1.GET("/students/:id/qr", h.StudentQR)
	v1.GET("/sections", h.ListSections)

	v1.POST("/scans", h.Scan)
	v1.POST("/attendance", h.RecordManual)
	v1.GET("/attendance", h.ListAttendance)
	v1.GET("/stats", h.Stats)
	v1.GET("/export", h.Export)
}

// ---------- Auth ----------

// Login verifies teacher credentials and returns a token pair.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	teacher, tokens, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"teacher":       gin.H{"id": teacher.ID, "name": teacher.Name, "email": teacher.Email},
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// ---------- Roster ----------

// EnrollStudent accepts the loosely-shaped student object older clients send
// and adds the normalized record to the roster.
func (h *Handler) EnrollStudent(c *gin.Context) {
	var raw roster.RawStudent
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, err := h.roster.Enroll(c.Request.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, roster.ErrInvalidStudent):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, roster.ErrLRNExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.fail(c, err)
		}
		return
	}
	c.JSON(http.StatusCreated, st)
}

// ListStudents returns the roster, optionally one section.
func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.roster.List(c.Request.Context(), c.Query("section"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// GetStudent returns one student.
func (h *Handler) GetStudent(c *gin.Context) {
	st, err := h.roster.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student Not Found"})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// UpdateStudent rewrites a student's mutable fields.
func (h *Handler) UpdateStudent(c *gin.Context) {
	var req struct {
		Name          string `json:"name" binding:"required"`
		Section       string `json:"section"`
		GradeLevel    string `json:"grade_level"`
		GuardianEmail string `json:"guardian_email" binding:"omitempty,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, err := h.roster.Update(c.Request.Context(), roster.Student{
		ID:            c.Param("id"),
		Name:          req.Name,
		Section:       req.Section,
		GradeLevel:    req.GradeLevel,
		GuardianEmail: req.GuardianEmail,
	})
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student Not Found"})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// DeleteStudent removes a student from the roster.
func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.roster.Remove(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student Not Found"})
			return
		}
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSections returns the distinct sections on the roster.
func (h *Handler) ListSections(c *gin.Context) {
	sections, err := h.roster.Sections(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sections": sections})
}

// StudentQR renders the student's QR code as PNG. The issuing teacher's ID is
// embedded so scans can be traced back to the code's origin.
func (h *Handler) StudentQR(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)

	st, err := h.roster.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student Not Found"})
			return
		}
		h.fail(c, err)
		return
	}

	payload, err := qrpass.Encode(st, claims.Subject)
	if err != nil {
		h.fail(c, err)
		return
	}

	size := 256
	if v := c.Query("size"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 2048 {
			size = parsed
		}
	}
	png, err := qrpass.RenderPNG(payload, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ---------- Attendance ----------

// Scan decodes a QR payload and records attendance for the current instant.
func (h *Handler) Scan(c *gin.Context) {
	var req struct {
		Payload string `json:"payload" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity, err := qrpass.Decode(req.Payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid QR Code"})
		return
	}

	claims, _ := auth.ClaimsFrom(c)
	student, outcome, err := h.att.RecordScan(c.Request.Context(), identity.StudentID, claims.Subject)
	if err != nil {
		h.attendanceError(c, err)
		return
	}
	c.JSON(http.StatusOK, scanResponse(student, outcome))
}

// RecordManual writes or overrides a record from a teacher action (toggle
// present/absent, correct a scan, remove an absence).
func (h *Handler) RecordManual(c *gin.Context) {
	var req struct {
		StudentID string `json:"student_id" binding:"required"`
		Period    string `json:"period" binding:"required"`
		Status    string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, _ := auth.ClaimsFrom(c)
	student, outcome, err := h.att.Record(
		c.Request.Context(),
		req.StudentID,
		attendance.Period(req.Period),
		attendance.Status(req.Status),
		time.Now(),
		claims.Subject,
	)
	if err != nil {
		h.attendanceError(c, err)
		return
	}
	c.JSON(http.StatusOK, scanResponse(student, outcome))
}

// ListAttendance returns the day's records joined with roster info.
func (h *Handler) ListAttendance(c *gin.Context) {
	day := c.DefaultQuery("date", h.att.Today())
	period := attendance.Period(c.Query("period"))
	section := c.Query("section")

	records, err := h.att.Logs(c.Request.Context(), day, period)
	if err != nil {
		h.fail(c, err)
		return
	}
	students, err := h.roster.List(c.Request.Context(), section)
	if err != nil {
		h.fail(c, err)
		return
	}

	byID := make(map[string]roster.Student, len(students))
	for _, st := range students {
		byID[st.ID] = st
	}

	type entry struct {
		attendance.Record
		LRN     string `json:"lrn"`
		Name    string `json:"name"`
		Section string `json:"section"`
	}
	entries := make([]entry, 0, len(records))
	for _, rec := range records {
		st, ok := byID[rec.StudentID]
		if !ok {
			continue // outside the requested section, or removed from roster
		}
		entries = append(entries, entry{Record: rec, LRN: st.LRN, Name: st.Name, Section: st.Section})
	}
	c.JSON(http.StatusOK, gin.H{"date": day, "records": entries})
}

// Stats returns per-section tallies for the dashboard.
func (h *Handler) Stats(c *gin.Context) {
	day := c.DefaultQuery("date", h.att.Today())
	period := attendance.Period(c.Query("period"))
	if period != "" && !period.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period"})
		return
	}

	stats, err := h.att.DailyStats(c.Request.Context(), day, period, c.Query("section"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": day, "sections": stats})
}

// Export streams the day's attendance sheet as .xlsx.
func (h *Handler) Export(c *gin.Context) {
	day := c.DefaultQuery("date", h.att.Today())

	students, err := h.roster.List(c.Request.Context(), c.Query("section"))
	if err != nil {
		h.fail(c, err)
		return
	}
	records, err := h.att.Logs(c.Request.Context(), day, "")
	if err != nil {
		h.fail(c, err)
		return
	}

	buf, filename, err := export.DailySheet(day, students, records)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// ---------- helpers ----------

func scanResponse(student roster.Student, outcome attendance.Outcome) gin.H {
	resp := gin.H{
		"student": gin.H{
			"id":      student.ID,
			"lrn":     student.LRN,
			"name":    student.Name,
			"section": student.Section,
		},
		"record":  outcome.Record,
		"created": outcome.Created,
	}
	if !outcome.Created {
		resp["previous_status"] = outcome.PreviousStatus
	}
	return resp
}

func (h *Handler) attendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrUnknownStudent):
		c.JSON(http.StatusNotFound, gin.H{"error": "Student Not Found"})
	case errors.Is(err, attendance.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
	case errors.Is(err, attendance.ErrNotSchoolDay):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrInvalidPeriod), errors.Is(err, attendance.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.fail(c, err)
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	h.logger.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
