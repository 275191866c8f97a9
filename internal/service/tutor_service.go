package service

import (
	"context"
	"encoding/base64"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type tutorRepository interface {
	TutorSessions(ctx context.Context) []models.TutorSession
	UpdateTutorSessions(ctx context.Context, fn func([]models.TutorSession) ([]models.TutorSession, error)) ([]models.TutorSession, error)
}

// AnonymousStudent replaces the student's email in tutor sessions shown to staff.
const AnonymousStudent = "Anonymous Student"

// TutorService runs the student to teacher chat.
type TutorService struct {
	repo      tutorRepository
	validator *validator.Validate
	logger    *zap.Logger
	maxBytes  int64
	now       func() time.Time
}

// NewTutorService constructs the service. maxAttachmentBytes <= 0 disables the size check.
func NewTutorService(repo tutorRepository, validate *validator.Validate, logger *zap.Logger, maxAttachmentBytes int64) *TutorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TutorService{repo: repo, validator: validate, logger: logger, maxBytes: maxAttachmentBytes, now: utcNow}
}

// Teachers returns the roster students can open sessions with.
func (s *TutorService) Teachers() []string {
	return append([]string(nil), models.TeacherRoster...)
}

// List returns the sessions viewer may see, most recently active first.
// Students see their own sessions. Other roles see every session, optionally
// narrowed to one teacher name.
func (s *TutorService) List(ctx context.Context, viewer *models.Session, teacher string) ([]models.TutorSession, error) {
	if err := requireSession(viewer); err != nil {
		return nil, err
	}
	teacher = strings.TrimSpace(teacher)

	all := s.repo.TutorSessions(ctx)
	out := make([]models.TutorSession, 0, len(all))
	for _, sess := range all {
		if viewer.Role == models.RoleStudent {
			if sess.StudentEmail != viewer.Email {
				continue
			}
		} else if teacher != "" && teacher != models.TeacherFilterAll && sess.TeacherName != teacher {
			continue
		}
		out = append(out, presentTutorSession(sess, viewer))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out, nil
}

// Get returns one session if viewer may see it.
func (s *TutorService) Get(ctx context.Context, viewer *models.Session, id string) (*models.TutorSession, error) {
	if err := requireSession(viewer); err != nil {
		return nil, err
	}
	for _, sess := range s.repo.TutorSessions(ctx) {
		if sess.ID != id {
			continue
		}
		if !canViewTutorSession(viewer, sess) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor session not found")
		}
		shown := presentTutorSession(sess, viewer)
		return &shown, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor session not found")
}

// Create opens a session with a rostered teacher. Only students may open sessions.
func (s *TutorService) Create(ctx context.Context, actor *models.Session, req models.CreateTutorSessionRequest) (*models.TutorSession, error) {
	if err := requireSession(actor); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can start tutor sessions")
	}
	req.Subject = trimmed(req.Subject)
	req.TeacherName = trimmed(req.TeacherName)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid tutor session payload")
	}
	if !models.IsRosteredTeacher(req.TeacherName) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is not on the tutor roster")
	}

	sess := models.TutorSession{
		ID:           newID(prefixTutorSession),
		StudentEmail: actor.Email,
		TeacherName:  req.TeacherName,
		Subject:      req.Subject,
		Messages:     []models.ChatMessage{},
		LastUpdated:  s.now(),
	}
	if _, err := s.repo.UpdateTutorSessions(ctx, func(sessions []models.TutorSession) ([]models.TutorSession, error) {
		return append([]models.TutorSession{sess}, sessions...), nil
	}); err != nil {
		return nil, persistError(s.logger, err, "failed to save tutor session")
	}
	return &sess, nil
}

// SendMessage appends a message to a session the actor can see and bumps
// its LastUpdated. A message needs text or at least one attachment.
func (s *TutorService) SendMessage(ctx context.Context, actor *models.Session, id string, req models.SendMessageRequest) (*models.TutorSession, error) {
	if err := requireSession(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid message payload")
	}
	text := trimmed(req.Text)
	if text == "" && len(req.Attachments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message needs text or an attachment")
	}
	attachments, err := s.buildAttachments(req.Attachments)
	if err != nil {
		return nil, err
	}

	at := s.now()
	msg := models.ChatMessage{
		ID:          newID(prefixMessage),
		SenderEmail: actor.Email,
		Text:        text,
		Attachments: attachments,
		Timestamp:   at,
	}

	var updated models.TutorSession
	_, err = s.repo.UpdateTutorSessions(ctx, func(sessions []models.TutorSession) ([]models.TutorSession, error) {
		for i := range sessions {
			if sessions[i].ID != id {
				continue
			}
			if !canViewTutorSession(actor, sessions[i]) {
				break
			}
			out := append([]models.TutorSession(nil), sessions...)
			out[i].Messages = append(append([]models.ChatMessage{}, out[i].Messages...), msg)
			out[i].LastUpdated = at
			updated = out[i]
			return out, nil
		}
		return sessions, appErrors.Clone(appErrors.ErrNotFound, "tutor session not found")
	})
	if err != nil {
		return nil, persistError(s.logger, err, "failed to save message")
	}
	updated = presentTutorSession(updated, actor)
	return &updated, nil
}

func (s *TutorService) buildAttachments(inputs []models.AttachmentInput) ([]models.Attachment, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	out := make([]models.Attachment, 0, len(inputs))
	for _, in := range inputs {
		if s.maxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(in.Data))) > s.maxBytes {
			return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "attachment "+in.Name+" exceeds the size limit")
		}
		out = append(out, models.Attachment{
			ID:   newID(prefixAttachment),
			Type: in.Type,
			Name: trimmed(in.Name),
			Data: in.Data,
		})
	}
	return out, nil
}

// presentTutorSession hides the student from every viewer but the student.
func presentTutorSession(sess models.TutorSession, viewer *models.Session) models.TutorSession {
	if viewer.Role == models.RoleStudent {
		return sess
	}
	student := sess.StudentEmail
	sess.StudentEmail = AnonymousStudent
	messages := make([]models.ChatMessage, len(sess.Messages))
	for i, msg := range sess.Messages {
		if msg.SenderEmail == student {
			msg.SenderEmail = AnonymousStudent
		}
		messages[i] = msg
	}
	sess.Messages = messages
	return sess
}

func canViewTutorSession(viewer *models.Session, sess models.TutorSession) bool {
	if viewer.Role == models.RoleStudent {
		return sess.StudentEmail == viewer.Email
	}
	return true
}
