package service

import (
	"context"
	"strings"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type feedRepository interface {
	Announcements(ctx context.Context) []models.Post
	Discussions(ctx context.Context) models.Discussions
	LostFound(ctx context.Context) []models.Post
}

// FeedService merges the boards into one searchable timeline.
type FeedService struct {
	repo feedRepository
}

// NewFeedService constructs the service.
func NewFeedService(repo feedRepository) *FeedService {
	return &FeedService{repo: repo}
}

// Feed returns posts selected by query.Filter and matching query.Search, newest first.
func (s *FeedService) Feed(ctx context.Context, viewer *models.Session, query models.FeedQuery) ([]models.Post, error) {
	filter := strings.ToLower(strings.TrimSpace(query.Filter))
	if filter == "" {
		filter = models.FeedFilterAll
	}

	var posts []models.Post
	switch filter {
	case models.FeedFilterAll:
		posts = append(posts, s.repo.Announcements(ctx)...)
		posts = append(posts, s.repo.LostFound(ctx)...)
		posts = append(posts, s.repo.Discussions(ctx).All()...)
	case models.FeedFilterAnnouncements:
		posts = s.repo.Announcements(ctx)
	case models.FeedFilterDiscussion:
		posts = s.repo.Discussions(ctx).All()
	case models.FeedFilterLostFound:
		posts = s.repo.LostFound(ctx)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "filter must be one of all, announcements, discussion, lostfound")
	}

	// Search runs after anonymous authors are hidden so they cannot be found by email.
	visible := presentPosts(posts, viewer)
	search := strings.ToLower(strings.TrimSpace(query.Search))
	if search == "" {
		return visible, nil
	}
	matched := make([]models.Post, 0, len(visible))
	for _, p := range visible {
		if matchesSearch(p, search) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

func matchesSearch(p models.Post, needle string) bool {
	return strings.Contains(strings.ToLower(p.Title), needle) ||
		strings.Contains(strings.ToLower(p.Desc), needle) ||
		strings.Contains(strings.ToLower(p.Author), needle)
}
