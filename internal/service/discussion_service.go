package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type discussionRepository interface {
	Discussions(ctx context.Context) models.Discussions
	UpdateDiscussions(ctx context.Context, fn func(models.Discussions) (models.Discussions, error)) (models.Discussions, error)
}

// DiscussionService manages the category boards.
type DiscussionService struct {
	repo      discussionRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewDiscussionService constructs the service.
func NewDiscussionService(repo discussionRepository, validate *validator.Validate, logger *zap.Logger) *DiscussionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscussionService{repo: repo, validator: validate, logger: logger, now: utcNow}
}

// CategoryKey normalizes a category name. Empty names map to the default category.
func CategoryKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return models.DefaultCategory
	}
	return key
}

// List returns the posts of one category, or of every category when category is empty.
func (s *DiscussionService) List(ctx context.Context, viewer *models.Session, category string) []models.Post {
	discussions := s.repo.Discussions(ctx)
	if strings.TrimSpace(category) == "" {
		return presentPosts(discussions.All(), viewer)
	}
	return presentPosts(discussions.Category(CategoryKey(category)), viewer)
}

// Categories returns the category keys that hold posts.
func (s *DiscussionService) Categories(ctx context.Context) []string {
	discussions := s.repo.Discussions(ctx)
	keys := make([]string, 0, len(discussions))
	for key := range discussions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Create files a discussion post under its category. Privileged roles use announcements instead.
func (s *DiscussionService) Create(ctx context.Context, actor *models.Session, req models.CreatePostRequest) (*models.Post, error) {
	if err := requireSession(actor); err != nil {
		return nil, err
	}
	if actor.Role.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teachers and presidents post announcements, not discussions")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid discussion payload")
	}
	if trimmed(req.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}

	post := newPost(models.PostTypeDiscussion, prefixDiscussion, actor, req, s.now())
	post.Category = CategoryKey(req.Category)
	if _, err := s.repo.UpdateDiscussions(ctx, func(d models.Discussions) (models.Discussions, error) {
		d[post.Category] = append([]models.Post{post}, d[post.Category]...)
		return d, nil
	}); err != nil {
		return nil, persistError(s.logger, err, "failed to save discussion")
	}
	return &post, nil
}

// Comment appends a comment to the discussion post with id, wherever it is filed.
func (s *DiscussionService) Comment(ctx context.Context, actor *models.Session, id string, req models.CommentRequest) (*models.Post, error) {
	if err := requireSession(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid comment payload")
	}
	comment := newComment(actor, req.Text, s.now())
	var updated *models.Post
	_, err := s.repo.UpdateDiscussions(ctx, func(d models.Discussions) (models.Discussions, error) {
		category, _, ok := d.Locate(id)
		if !ok {
			return d, appErrors.Clone(appErrors.ErrNotFound, "discussion not found")
		}
		posts, post, _ := appendComment(d[category], id, comment)
		d[category] = posts
		updated = post
		return d, nil
	})
	if err != nil {
		return nil, persistError(s.logger, err, "failed to save comment")
	}
	post := presentPost(*updated, actor)
	return &post, nil
}
