package models

import "time"

// AttendanceStatus is a self-reported mark.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// AttendanceEntry is appended to a subject and never edited.
type AttendanceEntry struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Status    AttendanceStatus `json:"status"`
}

// SubjectAttendance groups entries for one subject of one student.
type SubjectAttendance struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Entries []AttendanceEntry `json:"entries"`
}

// SelfAttendance is the attendance collection keyed by student email.
type SelfAttendance map[string][]SubjectAttendance

// AttendanceStats summarises a student's entries across subjects.
type AttendanceStats struct {
	Percent int `json:"percent"`
	Streak  int `json:"streak"`
	Present int `json:"present"`
	Late    int `json:"late"`
	Absent  int `json:"absent"`
	Total   int `json:"total"`
}

// CreateSubjectRequest adds a tracked subject.
type CreateSubjectRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// MarkAttendanceRequest records one entry.
type MarkAttendanceRequest struct {
	Status AttendanceStatus `json:"status" validate:"required,oneof=present late absent"`
}

// Export formats for attendance reports.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)
