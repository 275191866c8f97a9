package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

// HighAlertPrefix starts the text of every alert raised from a lost-and-found post.
const HighAlertPrefix = "High Alert: "

type lostFoundRepository interface {
	LostFound(ctx context.Context) []models.Post
	UpdateLostFound(ctx context.Context, fn func([]models.Post) ([]models.Post, error)) ([]models.Post, error)
	Alerts(ctx context.Context) []models.Alert
	SaveAlerts(ctx context.Context, alerts []models.Alert) error
	UpdateLostFoundAndAlerts(ctx context.Context, fn func([]models.Post, []models.Alert) ([]models.Post, []models.Alert, error)) error
}

// LostFoundService manages lost-and-found posts and the alerts raised from them.
type LostFoundService struct {
	repo      lostFoundRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewLostFoundService constructs the service.
func NewLostFoundService(repo lostFoundRepository, validate *validator.Validate, logger *zap.Logger) *LostFoundService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LostFoundService{repo: repo, validator: validate, logger: logger, now: utcNow}
}

// List returns every lost-and-found post, newest first.
func (s *LostFoundService) List(ctx context.Context, viewer *models.Session) []models.Post {
	return presentPosts(s.repo.LostFound(ctx), viewer)
}

// Create adds a post. Any role may post.
func (s *LostFoundService) Create(ctx context.Context, actor *models.Session, req models.CreatePostRequest) (*models.Post, error) {
	if err := requireSession(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid lost and found payload")
	}
	if trimmed(req.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}

	post := newPost(models.PostTypeLostFound, prefixLostFound, actor, req, s.now())
	if _, err := s.repo.UpdateLostFound(ctx, func(posts []models.Post) ([]models.Post, error) {
		return append([]models.Post{post}, posts...), nil
	}); err != nil {
		return nil, persistError(s.logger, err, "failed to save lost and found post")
	}
	return &post, nil
}

// Comment appends a comment. Any role may comment.
func (s *LostFoundService) Comment(ctx context.Context, actor *models.Session, id string, req models.CommentRequest) (*models.Post, error) {
	if err := requireSession(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid comment payload")
	}
	comment := newComment(actor, req.Text, s.now())
	var updated *models.Post
	_, err := s.repo.UpdateLostFound(ctx, func(posts []models.Post) ([]models.Post, error) {
		out, post, ok := appendComment(posts, id, comment)
		if !ok {
			return posts, appErrors.Clone(appErrors.ErrNotFound, "lost and found post not found")
		}
		updated = post
		return out, nil
	})
	if err != nil {
		return nil, persistError(s.logger, err, "failed to save comment")
	}
	post := presentPost(*updated, actor)
	return &post, nil
}

// ToggleHighAlert flips the high-alert flag of a post. Raising it appends a
// campus alert; lowering it removes every alert whose text contains the
// post title, including alerts raised by other posts with overlapping titles.
func (s *LostFoundService) ToggleHighAlert(ctx context.Context, actor *models.Session, id string) (*models.Post, error) {
	if err := requireSession(actor); err != nil {
		return nil, err
	}
	if !actor.Role.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers and presidents can raise high alerts")
	}

	var toggled models.Post
	err := s.repo.UpdateLostFoundAndAlerts(ctx, func(posts []models.Post, alerts []models.Alert) ([]models.Post, []models.Alert, error) {
		idx := indexOfPost(posts, id)
		if idx < 0 {
			return posts, alerts, appErrors.Clone(appErrors.ErrNotFound, "lost and found post not found")
		}
		out := append([]models.Post(nil), posts...)
		out[idx].HighAlert = !out[idx].HighAlert
		toggled = out[idx]

		if toggled.HighAlert {
			alerts = append(alerts, models.Alert{
				ID:   newID(prefixAlert),
				Text: HighAlertPrefix + toggled.Title,
				Time: s.now(),
			})
			return out, alerts, nil
		}
		return out, removeAlertsMentioning(alerts, toggled.Title), nil
	})
	if err != nil {
		return nil, persistError(s.logger, err, "failed to toggle high alert")
	}

	s.logger.Info("high alert toggled",
		zap.String("post_id", id),
		zap.Bool("high_alert", toggled.HighAlert),
		zap.String("by", actor.Email),
	)
	post := presentPost(toggled, actor)
	return &post, nil
}

// Alerts returns the active campus alerts in the order they were raised.
func (s *LostFoundService) Alerts(ctx context.Context) []models.Alert {
	return s.repo.Alerts(ctx)
}

// DismissAlerts clears every alert. Any role may dismiss.
func (s *LostFoundService) DismissAlerts(ctx context.Context, actor *models.Session) error {
	if err := requireSession(actor); err != nil {
		return err
	}
	if err := s.repo.SaveAlerts(ctx, []models.Alert{}); err != nil {
		return persistError(s.logger, err, "failed to dismiss alerts")
	}
	return nil
}

// removeAlertsMentioning drops alerts whose text contains title.
// A plain substring match on an empty title would clear every alert; an
// empty title removes nothing instead. Only legacy or seeded posts can
// have one, since Create requires a title.
func removeAlertsMentioning(alerts []models.Alert, title string) []models.Alert {
	if title == "" {
		return alerts
	}
	kept := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if !strings.Contains(a.Text, title) {
			kept = append(kept, a)
		}
	}
	return kept
}
