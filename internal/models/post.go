package models

import "time"

// PostType identifies which board a post belongs to.
type PostType string

const (
	PostTypeAnnouncement PostType = "announcement"
	PostTypeDiscussion   PostType = "discussion"
	PostTypeLostFound    PostType = "lostfound"
	PostTypeTutor        PostType = "tutor"
)

// DefaultCategory receives discussion posts filed without a category.
const DefaultCategory = "general"

// Post is shared by announcements, discussions and lost-and-found items.
type Post struct {
	ID        string    `json:"id"`
	Type      PostType  `json:"type"`
	Title     string    `json:"title,omitempty"`
	Desc      string    `json:"desc"`
	Author    string    `json:"author"`
	Time      time.Time `json:"time"`
	Anon      bool      `json:"anon,omitempty"`
	Reported  bool      `json:"reported,omitempty"`
	HighAlert bool      `json:"highAlert,omitempty"`
	Likes     int       `json:"likes"`
	Comments  []Comment `json:"comments"`
	Category  string    `json:"category,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
}

// Comment belongs to exactly one post and is never edited.
type Comment struct {
	ID     string    `json:"id"`
	Author string    `json:"author"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}

// Alert is a campus-wide broadcast raised from a lost-and-found post.
type Alert struct {
	ID   string    `json:"id"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// Discussions maps a category key to its posts.
type Discussions map[string][]Post

// Category returns the posts filed under key, nil when the category is empty.
func (d Discussions) Category(key string) []Post {
	if key == "" {
		key = DefaultCategory
	}
	return d[key]
}

// Locate returns the category holding the post with id. Posts that cannot be
// found resolve to DefaultCategory with ok=false.
func (d Discussions) Locate(id string) (category string, index int, ok bool) {
	for key, posts := range d {
		for i := range posts {
			if posts[i].ID == id {
				return key, i, true
			}
		}
	}
	return DefaultCategory, -1, false
}

// All flattens every category into one slice.
func (d Discussions) All() []Post {
	out := make([]Post, 0)
	for _, posts := range d {
		out = append(out, posts...)
	}
	return out
}

// CreatePostRequest is the payload for every board.
type CreatePostRequest struct {
	Title    string   `json:"title" validate:"max=200"`
	Desc     string   `json:"desc" validate:"required"`
	Anon     bool     `json:"anon"`
	Category string   `json:"category" validate:"omitempty,max=64"`
	Tags     []string `json:"tags" validate:"omitempty,max=10,dive,max=32"`
}

// CommentRequest adds a comment to a post.
type CommentRequest struct {
	Text string `json:"text" validate:"required"`
}

// Feed filters understood by the unified feed.
const (
	FeedFilterAll           = "all"
	FeedFilterAnnouncements = "announcements"
	FeedFilterDiscussion    = "discussion"
	FeedFilterLostFound     = "lostfound"
)

// FeedQuery selects and searches the unified feed.
type FeedQuery struct {
	Filter string `form:"filter"`
	Search string `form:"q"`
}
