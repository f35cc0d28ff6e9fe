// Package export builds the downloadable daily attendance sheet.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"classtrack/internal/attendance"
	"classtrack/internal/roster"
)

const sheetName = "Attendance"

// DailySheet renders one day of attendance as an .xlsx workbook: one row per
// rostered student with the effective morning and afternoon status. Unmarked
// students show as absent, matching the reporting policy.
func DailySheet(day string, students []roster.Student, records []attendance.Record) (*bytes.Buffer, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	headers := []string{"Section", "LRN", "Name", "Morning", "Afternoon"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, "", fmt.Errorf("write header: %w", err)
		}
	}

	// (studentID, period) -> status
	byKey := make(map[string]attendance.Status, len(records))
	for _, rec := range records {
		byKey[rec.StudentID+"|"+string(rec.Period)] = rec.Status
	}
	effective := func(studentID string, period attendance.Period) attendance.Status {
		if status, ok := byKey[studentID+"|"+string(period)]; ok {
			return status
		}
		return attendance.StatusAbsent
	}

	for i, st := range students {
		row := i + 2
		values := []any{
			st.Section,
			st.LRN,
			st.Name,
			string(effective(st.ID, attendance.PeriodMorning)),
			string(effective(st.ID, attendance.PeriodAfternoon)),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, "", fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("generate workbook: %w", err)
	}
	return buf, "attendance-" + day + ".xlsx", nil
}
