package repository

import (
	"context"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// Collection keys. The store prefixes them before they reach the backend.
const (
	KeyUsers          = "users"
	KeySession        = "session"
	KeyAnnouncements  = "announcements"
	KeyDiscussions    = "discussions"
	KeyLostFound      = "lostfound"
	KeyTutorSessions  = "tutor_sessions"
	KeyLectures       = "lectures"
	KeySelfAttendance = "self_attendance"
	KeyAlerts         = "alerts"
)

// CollectionRepository exposes typed load and update helpers for every portal collection.
type CollectionRepository struct {
	store *Store
}

// NewCollectionRepository wraps a store.
func NewCollectionRepository(store *Store) *CollectionRepository {
	return &CollectionRepository{store: store}
}

// Store returns the underlying store.
func (r *CollectionRepository) Store() *Store {
	return r.store
}

// Users returns the users collection keyed by normalized email.
func (r *CollectionRepository) Users(ctx context.Context) models.Users {
	users := Load(ctx, r.store, KeyUsers, models.Users{})
	if users == nil {
		users = models.Users{}
	}
	return users
}

// UpdateUsers replaces the users collection with the result of fn.
func (r *CollectionRepository) UpdateUsers(ctx context.Context, fn func(models.Users) (models.Users, error)) (models.Users, error) {
	return Update(ctx, r.store, KeyUsers, models.Users{}, func(users models.Users) (models.Users, error) {
		if users == nil {
			users = models.Users{}
		}
		return fn(users)
	})
}

// Session returns the active session or nil.
func (r *CollectionRepository) Session(ctx context.Context) *models.Session {
	return Load[*models.Session](ctx, r.store, KeySession, nil)
}

// SaveSession stores s as the active session. A nil session clears it.
func (r *CollectionRepository) SaveSession(ctx context.Context, s *models.Session) error {
	if s == nil {
		return r.store.Remove(ctx, KeySession)
	}
	return r.store.Save(ctx, KeySession, s)
}

func (r *CollectionRepository) Announcements(ctx context.Context) []models.Post {
	return nonNilPosts(Load(ctx, r.store, KeyAnnouncements, []models.Post{}))
}

func (r *CollectionRepository) UpdateAnnouncements(ctx context.Context, fn func([]models.Post) ([]models.Post, error)) ([]models.Post, error) {
	return Update(ctx, r.store, KeyAnnouncements, []models.Post{}, postsFn(fn))
}

func (r *CollectionRepository) Discussions(ctx context.Context) models.Discussions {
	d := Load(ctx, r.store, KeyDiscussions, models.Discussions{})
	if d == nil {
		d = models.Discussions{}
	}
	return d
}

func (r *CollectionRepository) UpdateDiscussions(ctx context.Context, fn func(models.Discussions) (models.Discussions, error)) (models.Discussions, error) {
	return Update(ctx, r.store, KeyDiscussions, models.Discussions{}, func(d models.Discussions) (models.Discussions, error) {
		if d == nil {
			d = models.Discussions{}
		}
		return fn(d)
	})
}

func (r *CollectionRepository) LostFound(ctx context.Context) []models.Post {
	return nonNilPosts(Load(ctx, r.store, KeyLostFound, []models.Post{}))
}

func (r *CollectionRepository) UpdateLostFound(ctx context.Context, fn func([]models.Post) ([]models.Post, error)) ([]models.Post, error) {
	return Update(ctx, r.store, KeyLostFound, []models.Post{}, postsFn(fn))
}

func (r *CollectionRepository) Alerts(ctx context.Context) []models.Alert {
	alerts := Load(ctx, r.store, KeyAlerts, []models.Alert{})
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return alerts
}

func (r *CollectionRepository) SaveAlerts(ctx context.Context, alerts []models.Alert) error {
	unlock := r.store.Lock(KeyAlerts)
	defer unlock()
	return r.store.Save(ctx, KeyAlerts, alerts)
}

// UpdateLostFoundAndAlerts runs fn with both collections locked. Each
// collection is written whole; the pair is not written atomically.
// Nothing is written when either read fails.
func (r *CollectionRepository) UpdateLostFoundAndAlerts(ctx context.Context, fn func([]models.Post, []models.Alert) ([]models.Post, []models.Alert, error)) error {
	unlock := r.store.Lock(KeyLostFound, KeyAlerts)
	defer unlock()

	posts, err := decode(ctx, r.store, KeyLostFound, []models.Post{})
	if err != nil {
		return err
	}
	alerts, err := decode(ctx, r.store, KeyAlerts, []models.Alert{})
	if err != nil {
		return err
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	posts, alerts, err = fn(nonNilPosts(posts), alerts)
	if err != nil {
		return err
	}
	if err := r.store.Save(ctx, KeyLostFound, posts); err != nil {
		return err
	}
	return r.store.Save(ctx, KeyAlerts, alerts)
}

func (r *CollectionRepository) TutorSessions(ctx context.Context) []models.TutorSession {
	sessions := Load(ctx, r.store, KeyTutorSessions, []models.TutorSession{})
	if sessions == nil {
		sessions = []models.TutorSession{}
	}
	return sessions
}

func (r *CollectionRepository) UpdateTutorSessions(ctx context.Context, fn func([]models.TutorSession) ([]models.TutorSession, error)) ([]models.TutorSession, error) {
	return Update(ctx, r.store, KeyTutorSessions, []models.TutorSession{}, fn)
}

func (r *CollectionRepository) Lectures(ctx context.Context) []models.Lecture {
	lectures := Load(ctx, r.store, KeyLectures, []models.Lecture{})
	if lectures == nil {
		lectures = []models.Lecture{}
	}
	return lectures
}

func (r *CollectionRepository) UpdateLectures(ctx context.Context, fn func([]models.Lecture) ([]models.Lecture, error)) ([]models.Lecture, error) {
	return Update(ctx, r.store, KeyLectures, []models.Lecture{}, fn)
}

// StudentAttendance returns the subjects tracked by one student.
func (r *CollectionRepository) StudentAttendance(ctx context.Context, email string) []models.SubjectAttendance {
	all := Load(ctx, r.store, KeySelfAttendance, models.SelfAttendance{})
	subjects := all[email]
	if subjects == nil {
		subjects = []models.SubjectAttendance{}
	}
	return subjects
}

// UpdateStudentAttendance rewrites the subjects of one student and leaves other students untouched.
func (r *CollectionRepository) UpdateStudentAttendance(ctx context.Context, email string, fn func([]models.SubjectAttendance) ([]models.SubjectAttendance, error)) ([]models.SubjectAttendance, error) {
	var updated []models.SubjectAttendance
	_, err := Update(ctx, r.store, KeySelfAttendance, models.SelfAttendance{}, func(all models.SelfAttendance) (models.SelfAttendance, error) {
		if all == nil {
			all = models.SelfAttendance{}
		}
		current := all[email]
		if current == nil {
			current = []models.SubjectAttendance{}
		}
		next, err := fn(current)
		if err != nil {
			return all, err
		}
		all[email] = next
		updated = next
		return all, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func nonNilPosts(posts []models.Post) []models.Post {
	if posts == nil {
		return []models.Post{}
	}
	return posts
}

func postsFn(fn func([]models.Post) ([]models.Post, error)) func([]models.Post) ([]models.Post, error) {
	return func(posts []models.Post) ([]models.Post, error) {
		return fn(nonNilPosts(posts))
	}
}
