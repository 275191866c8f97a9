package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type lectureRepository interface {
	Lectures(ctx context.Context) []models.Lecture
	UpdateLectures(ctx context.Context, fn func([]models.Lecture) ([]models.Lecture, error)) ([]models.Lecture, error)
}

// LectureService manages the lecture schedule.
type LectureService struct {
	repo      lectureRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLectureService constructs the service.
func NewLectureService(repo lectureRepository, validate *validator.Validate, logger *zap.Logger) *LectureService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LectureService{repo: repo, validator: validate, logger: logger}
}

// List returns the schedule in stored order.
func (s *LectureService) List(ctx context.Context) []models.Lecture {
	return s.repo.Lectures(ctx)
}

// Create schedules a lecture. The teacher name defaults to the actor's email.
func (s *LectureService) Create(ctx context.Context, actor *models.Session, req models.CreateLectureRequest) (*models.Lecture, error) {
	if err := requireTeacher(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid lecture payload")
	}
	lecture := models.Lecture{
		ID:          newID(prefixLecture),
		Subject:     trimmed(req.Subject),
		Topic:       trimmed(req.Topic),
		Time:        trimmed(req.Time),
		TeacherName: trimmed(req.TeacherName),
		Room:        trimmed(req.Room),
	}
	if lecture.TeacherName == "" {
		lecture.TeacherName = actor.Email
	}
	if _, err := s.repo.UpdateLectures(ctx, func(lectures []models.Lecture) ([]models.Lecture, error) {
		return append(lectures, lecture), nil
	}); err != nil {
		return nil, persistError(s.logger, err, "failed to save lecture")
	}
	return &lecture, nil
}

// Delete removes a lecture.
func (s *LectureService) Delete(ctx context.Context, actor *models.Session, id string) error {
	if err := requireTeacher(actor); err != nil {
		return err
	}
	_, err := s.repo.UpdateLectures(ctx, func(lectures []models.Lecture) ([]models.Lecture, error) {
		for i := range lectures {
			if lectures[i].ID == id {
				out := append([]models.Lecture(nil), lectures[:i]...)
				return append(out, lectures[i+1:]...), nil
			}
		}
		return lectures, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
	})
	if err != nil {
		return persistError(s.logger, err, "failed to delete lecture")
	}
	return nil
}

func requireTeacher(actor *models.Session) error {
	if err := requireSession(actor); err != nil {
		return err
	}
	if actor.Role != models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrForbidden, "only teachers can manage lectures")
	}
	return nil
}
