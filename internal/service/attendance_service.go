package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/export"
)

type selfAttendanceRepository interface {
	StudentAttendance(ctx context.Context, email string) []models.SubjectAttendance
	UpdateStudentAttendance(ctx context.Context, email string, fn func([]models.SubjectAttendance) ([]models.SubjectAttendance, error)) ([]models.SubjectAttendance, error)
}

type reportRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// AttendanceReport is a rendered export ready to be served.
type AttendanceReport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// AttendanceService tracks self-reported attendance. Every operation is
// scoped to the acting student; no role can read another student's records.
type AttendanceService struct {
	repo      selfAttendanceRepository
	validator *validator.Validate
	logger    *zap.Logger
	renderers map[string]reportRenderer
	now       func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo selfAttendanceRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		renderers: map[string]reportRenderer{
			models.ExportFormatCSV: export.NewCSVExporter(),
			models.ExportFormatPDF: export.NewPDFExporter("Campus Portal self attendance"),
		},
		now: utcNow,
	}
}

// Subjects returns the actor's tracked subjects.
func (s *AttendanceService) Subjects(ctx context.Context, actor *models.Session) ([]models.SubjectAttendance, error) {
	if err := requireStudent(actor); err != nil {
		return nil, err
	}
	return s.repo.StudentAttendance(ctx, actor.Email), nil
}

// AddSubject starts tracking a subject.
func (s *AttendanceService) AddSubject(ctx context.Context, actor *models.Session, req models.CreateSubjectRequest) (*models.SubjectAttendance, error) {
	if err := requireStudent(actor); err != nil {
		return nil, err
	}
	req.Name = trimmed(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid subject payload")
	}
	subject := models.SubjectAttendance{ID: newID(prefixSubject), Name: req.Name, Entries: []models.AttendanceEntry{}}
	if _, err := s.repo.UpdateStudentAttendance(ctx, actor.Email, func(subjects []models.SubjectAttendance) ([]models.SubjectAttendance, error) {
		for _, existing := range subjects {
			if strings.EqualFold(existing.Name, subject.Name) {
				return subjects, appErrors.Clone(appErrors.ErrValidation, "subject is already tracked")
			}
		}
		return append(subjects, subject), nil
	}); err != nil {
		return nil, persistError(s.logger, err, "failed to save subject")
	}
	return &subject, nil
}

// DeleteSubject stops tracking a subject and drops its entries.
func (s *AttendanceService) DeleteSubject(ctx context.Context, actor *models.Session, id string) error {
	if err := requireStudent(actor); err != nil {
		return err
	}
	_, err := s.repo.UpdateStudentAttendance(ctx, actor.Email, func(subjects []models.SubjectAttendance) ([]models.SubjectAttendance, error) {
		for i := range subjects {
			if subjects[i].ID == id {
				out := append([]models.SubjectAttendance(nil), subjects[:i]...)
				return append(out, subjects[i+1:]...), nil
			}
		}
		return subjects, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	})
	if err != nil {
		return persistError(s.logger, err, "failed to delete subject")
	}
	return nil
}

// Mark appends an entry to a subject.
func (s *AttendanceService) Mark(ctx context.Context, actor *models.Session, subjectID string, req models.MarkAttendanceRequest) (*models.SubjectAttendance, error) {
	if err := requireStudent(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	entry := models.AttendanceEntry{ID: newID(prefixEntry), Timestamp: s.now(), Status: req.Status}

	var marked models.SubjectAttendance
	_, err := s.repo.UpdateStudentAttendance(ctx, actor.Email, func(subjects []models.SubjectAttendance) ([]models.SubjectAttendance, error) {
		for i := range subjects {
			if subjects[i].ID != subjectID {
				continue
			}
			out := append([]models.SubjectAttendance(nil), subjects...)
			out[i].Entries = append(append([]models.AttendanceEntry{}, out[i].Entries...), entry)
			marked = out[i]
			return out, nil
		}
		return subjects, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	})
	if err != nil {
		return nil, persistError(s.logger, err, "failed to save attendance entry")
	}
	return &marked, nil
}

// Stats summarises the actor's entries across subjects.
func (s *AttendanceService) Stats(ctx context.Context, actor *models.Session) (*models.AttendanceStats, error) {
	if err := requireStudent(actor); err != nil {
		return nil, err
	}
	stats := ComputeAttendanceStats(s.repo.StudentAttendance(ctx, actor.Email))
	return &stats, nil
}

// Export renders the actor's entries as csv or pdf.
func (s *AttendanceService) Export(ctx context.Context, actor *models.Session, format string) (*AttendanceReport, error) {
	if err := requireStudent(actor); err != nil {
		return nil, err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = models.ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	subjects := s.repo.StudentAttendance(ctx, actor.Email)
	body, err := renderer.Render(attendanceDataset(actor.Email, subjects, ComputeAttendanceStats(subjects)))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render attendance report")
	}
	return &AttendanceReport{
		Filename:    fmt.Sprintf("attendance-%s.%s", s.now().Format("20060102"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

// ComputeAttendanceStats counts entries per status. Percent counts late as
// attended and is 100 for subjects without entries and 0 without subjects.
// Streak is the run of non-absent entries counted back from the most recent.
func ComputeAttendanceStats(subjects []models.SubjectAttendance) models.AttendanceStats {
	var stats models.AttendanceStats
	if len(subjects) == 0 {
		return stats
	}

	var entries []models.AttendanceEntry
	for _, subject := range subjects {
		entries = append(entries, subject.Entries...)
	}
	for _, e := range entries {
		switch e.Status {
		case models.AttendancePresent:
			stats.Present++
		case models.AttendanceLate:
			stats.Late++
		case models.AttendanceAbsent:
			stats.Absent++
		}
	}
	stats.Total = len(entries)
	if stats.Total == 0 {
		stats.Percent = 100
	} else {
		stats.Percent = int(math.Round(float64(stats.Present+stats.Late) / float64(stats.Total) * 100))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	for _, e := range entries {
		if e.Status == models.AttendanceAbsent {
			break
		}
		stats.Streak++
	}
	return stats
}

func attendanceDataset(email string, subjects []models.SubjectAttendance, stats models.AttendanceStats) export.Dataset {
	ds := export.Dataset{
		Title:   "Attendance report for " + email,
		Headers: []string{"Subject", "Date", "Time", "Status"},
		Summary: []string{
			fmt.Sprintf("Attendance: %d%%", stats.Percent),
			fmt.Sprintf("Present: %d  Late: %d  Absent: %d  Total: %d", stats.Present, stats.Late, stats.Absent, stats.Total),
			fmt.Sprintf("Current streak: %d", stats.Streak),
		},
	}
	for _, subject := range subjects {
		for _, e := range subject.Entries {
			ds.Rows = append(ds.Rows, map[string]string{
				"Subject": subject.Name,
				"Date":    e.Timestamp.Format("2006-01-02"),
				"Time":    e.Timestamp.Format("15:04"),
				"Status":  string(e.Status),
			})
		}
	}
	return ds
}

func requireStudent(actor *models.Session) error {
	if err := requireSession(actor); err != nil {
		return err
	}
	if actor.Role != models.RoleStudent {
		return appErrors.Clone(appErrors.ErrForbidden, "attendance tracking is for students")
	}
	return nil
}
