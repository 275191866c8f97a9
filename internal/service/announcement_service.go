package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type announcementRepository interface {
	Announcements(ctx context.Context) []models.Post
	UpdateAnnouncements(ctx context.Context, fn func([]models.Post) ([]models.Post, error)) ([]models.Post, error)
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo      announcementRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{repo: repo, validator: validate, logger: logger, now: utcNow}
}

// List returns every announcement, newest first.
func (s *AnnouncementService) List(ctx context.Context, viewer *models.Session) []models.Post {
	return presentPosts(s.repo.Announcements(ctx), viewer)
}

// Create publishes an announcement. Only privileged roles may publish.
func (s *AnnouncementService) Create(ctx context.Context, actor *models.Session, req models.CreatePostRequest) (*models.Post, error) {
	if err := requireSession(actor); err != nil {
		return nil, err
	}
	if !actor.Role.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers and presidents can post announcements")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid announcement payload")
	}
	if trimmed(req.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}

	post := newPost(models.PostTypeAnnouncement, prefixAnnouncement, actor, req, s.now())
	if _, err := s.repo.UpdateAnnouncements(ctx, func(posts []models.Post) ([]models.Post, error) {
		return append([]models.Post{post}, posts...), nil
	}); err != nil {
		return nil, persistError(s.logger, err, "failed to save announcement")
	}
	return &post, nil
}

// Delete removes an announcement. Only privileged roles may delete.
func (s *AnnouncementService) Delete(ctx context.Context, actor *models.Session, id string) error {
	if err := requireSession(actor); err != nil {
		return err
	}
	if !actor.Role.Privileged() {
		return appErrors.Clone(appErrors.ErrForbidden, "only teachers and presidents can delete announcements")
	}
	_, err := s.repo.UpdateAnnouncements(ctx, func(posts []models.Post) ([]models.Post, error) {
		idx := indexOfPost(posts, id)
		if idx < 0 {
			return posts, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		out := append([]models.Post(nil), posts[:idx]...)
		return append(out, posts[idx+1:]...), nil
	})
	if err != nil {
		return persistError(s.logger, err, "failed to delete announcement")
	}
	return nil
}

// Like increments the like counter. Privileged roles cannot like announcements.
func (s *AnnouncementService) Like(ctx context.Context, actor *models.Session, id string) (*models.Post, error) {
	if err := requireSession(actor); err != nil {
		return nil, err
	}
	if actor.Role.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teachers and presidents cannot like announcements")
	}
	var liked models.Post
	_, err := s.repo.UpdateAnnouncements(ctx, func(posts []models.Post) ([]models.Post, error) {
		idx := indexOfPost(posts, id)
		if idx < 0 {
			return posts, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		out := append([]models.Post(nil), posts...)
		out[idx].Likes++
		liked = out[idx]
		return out, nil
	})
	if err != nil {
		return nil, persistError(s.logger, err, "failed to like announcement")
	}
	post := presentPost(liked, actor)
	return &post, nil
}

// Comment appends a comment. Any role may comment.
func (s *AnnouncementService) Comment(ctx context.Context, actor *models.Session, id string, req models.CommentRequest) (*models.Post, error) {
	if err := requireSession(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid comment payload")
	}
	comment := newComment(actor, req.Text, s.now())
	var updated *models.Post
	_, err := s.repo.UpdateAnnouncements(ctx, func(posts []models.Post) ([]models.Post, error) {
		out, post, ok := appendComment(posts, id, comment)
		if !ok {
			return posts, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
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
