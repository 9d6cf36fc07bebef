package models

import "time"

// Layouts for the calendar date and wall-clock time captured on a check-in.
// Both are computed in the server's local time zone, not UTC: the calendar
// date is the partition key for the once-per-day rule.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// AttendanceRecord is one check-in event. Records are immutable once
// created; StudentName is a denormalized snapshot taken at insert time so
// historical listings stay stable when the roster changes later.
type AttendanceRecord struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	StudentName string    `db:"student_name" json:"student_name"`
	Date        string    `db:"date" json:"date"`
	Time        string    `db:"time" json:"time"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AttendanceEntry pairs a record with the current roster snapshot of its
// student. The student may be a zero value when the roster no longer holds
// the referenced identifier; the projection tolerates that.
type AttendanceEntry struct {
	AttendanceRecord
	Student Student `json:"student"`
}

// TodaySummary aggregates the dashboard numbers for the current date.
type TodaySummary struct {
	Date           string `json:"date"`
	ActiveStudents int    `json:"active_students"`
	PresentToday   int    `json:"present_today"`
	AttendanceRate int    `json:"attendance_rate"`
}

// ImportResult reports the outcome of a roster import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ExportFormat identifies a supported export artifact type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// Valid reports whether the format is supported.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatCSV || f == ExportFormatPDF
}
