package service

import (
	"sort"
	"time"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

// AnonymousAuthor replaces the author of anonymous posts for every viewer but the author.
const AnonymousAuthor = "Anonymous"

func requireSession(actor *models.Session) error {
	if actor == nil || actor.Email == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "login required")
	}
	return nil
}

func newPost(kind models.PostType, prefix string, actor *models.Session, req models.CreatePostRequest, at time.Time) models.Post {
	return models.Post{
		ID:       newID(prefix),
		Type:     kind,
		Title:    trimmed(req.Title),
		Desc:     trimmed(req.Desc),
		Author:   actor.Email,
		Time:     at,
		Anon:     req.Anon,
		Likes:    0,
		Comments: []models.Comment{},
		Tags:     req.Tags,
	}
}

func newComment(actor *models.Session, text string, at time.Time) models.Comment {
	return models.Comment{ID: newID(prefixComment), Author: actor.Email, Text: trimmed(text), Time: at}
}

func indexOfPost(posts []models.Post, id string) int {
	for i := range posts {
		if posts[i].ID == id {
			return i
		}
	}
	return -1
}

// appendComment adds comment to the post with id and leaves every other post untouched.
func appendComment(posts []models.Post, id string, comment models.Comment) ([]models.Post, *models.Post, bool) {
	idx := indexOfPost(posts, id)
	if idx < 0 {
		return posts, nil, false
	}
	post := posts[idx]
	post.Comments = append(append([]models.Comment{}, post.Comments...), comment)
	out := append([]models.Post(nil), posts...)
	out[idx] = post
	return out, &post, true
}

func sortPostsByTimeDesc(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Time.After(posts[j].Time)
	})
}

// presentPosts copies posts for viewer, sorted newest first, hiding anonymous authors.
func presentPosts(posts []models.Post, viewer *models.Session) []models.Post {
	out := make([]models.Post, len(posts))
	for i, p := range posts {
		out[i] = presentPost(p, viewer)
	}
	sortPostsByTimeDesc(out)
	return out
}

func presentPost(p models.Post, viewer *models.Session) models.Post {
	if p.Anon && (viewer == nil || viewer.Email != p.Author) {
		p.Author = AnonymousAuthor
	}
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}
	return p
}
